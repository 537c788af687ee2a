package acquire

import (
	"errors"
	"fmt"
)

// ErrNotAvailable means no edition was published for the target.
var ErrNotAvailable = errors.New("gazette edition not available")

// Error records which target and step failed.
type Error struct {
	Target Target
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("acquire %s: %s: %v", e.Target, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(target Target, op string, err error) *Error {
	return &Error{Target: target, Op: op, Err: err}
}
