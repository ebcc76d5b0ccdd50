package store

import (
	"context"
	"sync"

	"github.com/drivevault/drivevault/internal/fault"
)

type state int

const (
	stateDefault state = iota
	stateRestoring
	stateRestored
)

// base carries the lifecycle, dirtiness and commit coalescing shared by
// all typed stores and by Group. The embedding type supplies snapshot
// and write.
type base struct {
	key        string
	autoCommit bool

	snapshot func() (string, error)
	write    func(ctx context.Context, payload string) error

	mu          sync.Mutex
	st          state
	grouped     bool
	dirty       bool
	busy        bool
	pending     []chan error
	lastWritten string
	written     bool
}

// Key returns the logical key this store commits to.
func (b *base) Key() string { return b.key }

// Dirty reports whether in-memory state has diverged since the last
// successful commit or restore.
func (b *base) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// Restored reports whether the store has loaded its persisted value.
func (b *base) Restored() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st == stateRestored
}

func (b *base) beginRestore() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st == stateRestoring {
		return fault.Correctablef("store: %q is already restoring", b.key)
	}
	b.st = stateRestoring
	return nil
}

// finishRestore records the restored snapshot as the change-detection
// baseline. An empty payload means the key was absent.
func (b *base) finishRestore(payload string, found bool) {
	b.mu.Lock()
	b.st = stateRestored
	b.dirty = false
	b.lastWritten = payload
	b.written = found
	b.mu.Unlock()
}

func (b *base) failRestore() {
	b.mu.Lock()
	b.st = stateDefault
	b.mu.Unlock()
}

// ensureRestored gates every mutator.
func (b *base) ensureRestored() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st != stateRestored {
		return fault.Correctablef("store: %q mutated before restore", b.key)
	}
	return nil
}

func (b *base) markDirty() {
	b.mu.Lock()
	b.dirty = true
	b.mu.Unlock()
}

// joinGroup permanently disables self-committing.
func (b *base) joinGroup() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.grouped {
		return fault.Correctablef("store: %q is already in a group", b.key)
	}
	b.grouped = true
	return nil
}

func (b *base) isGrouped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.grouped
}

// afterMutation commits when auto-commit is on and the store commits
// for itself. Group members defer to their group.
func (b *base) afterMutation(ctx context.Context) error {
	b.markDirty()
	if !b.autoCommit || b.isGrouped() {
		return nil
	}
	return b.Commit(ctx)
}

// Commit writes the current snapshot. While a commit is in flight,
// further Commit calls queue up and are all resolved by one follow-up
// write, so n overlapping commits cost at most two physical writes.
func (b *base) Commit(ctx context.Context) error {
	b.mu.Lock()
	if b.st != stateRestored {
		b.mu.Unlock()
		return fault.Correctablef("store: %q committed before restore", b.key)
	}
	if b.grouped {
		b.mu.Unlock()
		return fault.Correctablef("store: %q belongs to a group; commit the group", b.key)
	}
	if b.busy {
		ch := make(chan error, 1)
		b.pending = append(b.pending, ch)
		b.mu.Unlock()
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.busy = true
	b.mu.Unlock()

	first := b.flush(ctx)
	for {
		b.mu.Lock()
		waiters := b.pending
		b.pending = nil
		if len(waiters) == 0 {
			b.busy = false
			b.mu.Unlock()
			return first
		}
		b.mu.Unlock()

		res := b.flush(ctx)
		for _, ch := range waiters {
			ch <- res
		}
	}
}

// flush performs one snapshot-compare-write cycle.
func (b *base) flush(ctx context.Context) error {
	payload, err := b.snapshot()
	if err != nil {
		return err
	}

	b.mu.Lock()
	unchanged := b.written && payload == b.lastWritten
	if unchanged {
		b.dirty = false
	}
	b.mu.Unlock()
	if unchanged {
		return nil
	}

	if err := b.write(ctx, payload); err != nil {
		return err
	}

	b.mu.Lock()
	b.lastWritten = payload
	b.written = true
	b.dirty = false
	b.mu.Unlock()
	return nil
}
