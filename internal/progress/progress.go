// Package progress reports fractional completion of long-running
// operations through weighted sub-segment slices.
//
// A Tracker maps the [0,1] progress of one operation segment onto a
// slice of its parent's range, so a routine composed of weighted phases
// hands each phase its own tracker and the caller still observes one
// monotonic 0..1 sequence. Cancellation is not handled here; operations
// take a context.Context and check it cooperatively between rounds.
package progress

// A Reporter receives fractional progress in [0,1].
type Reporter interface {
	Report(fraction float64)
}

// Func adapts a callback to the Reporter interface.
type Func func(fraction float64)

func (f Func) Report(fraction float64) { f(fraction) }

// Tracker maps one segment's progress onto a parent reporter. A nil
// Tracker discards all reports, so callers never guard against a
// missing sink.
type Tracker struct {
	sink  Reporter
	from  float64
	width float64
}

// New creates a root tracker covering the whole [0,1] range of sink.
func New(sink Reporter) *Tracker {
	return &Tracker{sink: sink, from: 0, width: 1}
}

// Slice returns a child tracker covering [from, from+width] of t, both
// expressed as fractions of t's own range.
func (t *Tracker) Slice(from, width float64) *Tracker {
	if t == nil {
		return nil
	}
	return &Tracker{
		sink:  t.sink,
		from:  t.from + from*t.width,
		width: width * t.width,
	}
}

// Report clamps fraction to [0,1], maps it into t's range and forwards
// it to the sink.
func (t *Tracker) Report(fraction float64) {
	if t == nil || t.sink == nil {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	t.sink.Report(t.from + fraction*t.width)
}

// Done reports completion of t's whole range.
func (t *Tracker) Done() {
	t.Report(1)
}
