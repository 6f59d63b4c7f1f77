package persist

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence matches every durable-storage failure.
	ErrPersistence = errors.New("persistence failure")
	// ErrCorruptSnapshot means the stored value is not a readable snapshot.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// Error wraps a storage failure with the bridge operation that hit it.
// The in-memory workspace is never modified by a failed operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPersistence) match.
func (e *Error) Is(target error) bool {
	return target == ErrPersistence
}

func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
