package container

import (
	"errors"
	"fmt"
)

// ErrMalformedContainer matches every structural decode failure.
var ErrMalformedContainer = errors.New("malformed container")

// MalformedError describes why an archive could not be opened. No
// workspace is produced when it is returned.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedContainer, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedContainer, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrMalformedContainer) match.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformedContainer
}

func malformed(reason string, err error) error {
	return &MalformedError{Reason: reason, Err: err}
}

func malformedf(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}
