package fault

import (
	"context"
	"errors"
	"fmt"
)

// ErrCorrupted marks a record whose signature or authentication tag does
// not match its content. Corruption is never reported as "not found".
var ErrCorrupted = errors.New("record corrupted")

// CorrectableError is a violated precondition attributable to the calling
// code: a bad state transition, an out-of-range parameter, an operation
// issued before restore. It signals a programming bug to be fixed, not a
// runtime condition to handle.
type CorrectableError struct {
	msg   string
	cause error
}

func (e *CorrectableError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *CorrectableError) Unwrap() error { return e.cause }

// Correctablef creates a CorrectableError with a formatted message.
// A %w verb in format preserves the cause for errors.Is/As.
func Correctablef(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &CorrectableError{msg: err.Error(), cause: errors.Unwrap(err)}
}

// IsCorrectable reports whether err is a precondition violation.
func IsCorrectable(err error) bool {
	var ce *CorrectableError
	return errors.As(err, &ce)
}

// IsAborted reports whether err comes from a fired cancellation token.
// Aborts propagate as-is through call chains; callers short-circuit on
// them without wrapping or logging.
func IsAborted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
