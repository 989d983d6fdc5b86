package ebitmap

import (
	"errors"
	"fmt"

	"github.com/hupe1980/ebitmap/internal/builder"
	"github.com/hupe1980/ebitmap/internal/dispatch"
	"github.com/hupe1980/ebitmap/internal/handle"
	"github.com/hupe1980/ebitmap/internal/resource"
)

var (
	// ErrBadArgument is returned when an operation rejects its arguments:
	// unknown operation, wrong arity, wrong kind, out-of-range integer,
	// unresolvable handle, or undecodable bytes.
	ErrBadArgument = errors.New("bad argument")

	// ErrInvalidHandle is returned when a handle does not resolve to a live set.
	// Errors matching it also match ErrBadArgument.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrSerializationFailed is returned when the engine's encoder disagrees
	// with its own size computation.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrMemoryLimitExceeded is returned when a new set would exceed the
	// configured memory limit. No handle is created.
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

	// ErrClosed is returned by calls on a closed Runtime.
	ErrClosed = errors.New("runtime closed")
)

// ArgumentError describes a rejected operation argument.
//
// Position is the zero-based argument index, or -1 if the call as a whole was
// rejected. The original underlying error (if any) can be accessed via errors.Unwrap.
type ArgumentError struct {
	Op       string
	Position int
	Reason   string
	cause    error
}

func (e *ArgumentError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("%s: argument %d: %s", e.Op, e.Position, e.Reason)
}

// Is matches ErrBadArgument, and ErrInvalidHandle when the argument was a
// handle that failed to resolve.
func (e *ArgumentError) Is(target error) bool {
	switch target {
	case ErrBadArgument:
		return true
	case ErrInvalidHandle:
		return errors.Is(e.cause, handle.ErrInvalidHandle)
	}
	return false
}

func (e *ArgumentError) Unwrap() error { return e.cause }

// PartialInsertError reports a bulk insert that stopped at a malformed
// element. Values before Position were inserted into Bitmap and stay there;
// retrying with the corrected remainder converges to the intended set.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type PartialInsertError struct {
	Bitmap   *Bitmap
	Position int
	cause    error
}

func (e *PartialInsertError) Error() string {
	return fmt.Sprintf("bulk insert stopped at element %d: %v", e.Position, errors.Unwrap(e.cause))
}

// Is matches ErrBadArgument.
func (e *PartialInsertError) Is(target error) bool {
	return target == ErrBadArgument
}

func (e *PartialInsertError) Unwrap() error { return e.cause }

// translateError maps internal errors onto the public error taxonomy.
// wrap turns an internal handle into the caller-visible Bitmap.
func translateError(err error, wrap func(*handle.Ref) *Bitmap) error {
	if err == nil {
		return nil
	}

	var pe *builder.PartialError
	if errors.As(err, &pe) {
		return &PartialInsertError{Bitmap: wrap(pe.Ref), Position: pe.Position, cause: err}
	}
	var ae *dispatch.ArgumentError
	if errors.As(err, &ae) {
		return &ArgumentError{Op: ae.Op, Position: ae.Position, Reason: ae.Reason, cause: err}
	}

	if errors.Is(err, dispatch.ErrSerializationFailed) {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrMemoryLimitExceeded, err)
	}
	if errors.Is(err, handle.ErrInvalidHandle) {
		return fmt.Errorf("%w: %w: %w", ErrBadArgument, ErrInvalidHandle, err)
	}

	return err
}
