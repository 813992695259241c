package expreplay

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a buffer is given arguments that
// violate its preconditions, such as sampling more transitions than an
// unbounded buffer holds or adding a vector of the wrong length
var ErrInvalidArgument = errors.New("invalid argument")

// ExpReplayError records an error and the buffer operation that caused
// it
type ExpReplayError struct {
	Op  string
	Err error
}

func (e *ExpReplayError) Error() string {
	return fmt.Sprintf("%v: %v", e.Op, e.Err)
}

func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// IsInvalidArgument returns whether an error was caused by an invalid
// argument to a buffer operation
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func invalidArgument(op, format string, args ...interface{}) error {
	return &ExpReplayError{
		Op:  op,
		Err: fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidArgument},
			args...)...),
	}
}
