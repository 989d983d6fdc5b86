package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrBadArgument is the root of every argument validation failure.
	ErrBadArgument = errors.New("bad argument")

	// ErrSerializationFailed is returned when the engine's encoder disagrees
	// with its own size computation.
	ErrSerializationFailed = errors.New("serialization failed")
)

// ArgumentError describes a rejected operation argument.
// Position is the zero-based argument index, or -1 when the call as a whole
// was rejected (unknown operation, wrong arity).
type ArgumentError struct {
	Op       string
	Position int
	Reason   string
	Err      error
}

func (e *ArgumentError) Error() string {
	msg := e.Op + ": " + e.Reason
	if e.Position >= 0 {
		msg = fmt.Sprintf("%s: argument %d: %s", e.Op, e.Position, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes every ArgumentError match ErrBadArgument.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrBadArgument
}

func (e *ArgumentError) Unwrap() error { return e.Err }
