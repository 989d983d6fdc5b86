// Package term decodes the loosely typed arguments a host passes across the
// dispatch boundary: integers of any Go kind, binaries, and value sequences.
package term

import (
	"fmt"
	"math"
	"reflect"
)

// Uint32 converts v to a uint32 if v is an integer in [0, MaxUint32].
// Floats, strings, bools and out-of-range integers are rejected.
func Uint32(v any) (uint32, bool) {
	u, ok := Uint64(v)
	if !ok || u > math.MaxUint32 {
		return 0, false
	}
	return uint32(u), true
}

// Uint64 converts v to a uint64 if v is a non-negative integer.
func Uint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint32:
		return uint64(x), true
	case int:
		return fromSigned(int64(x))
	case uint64:
		return x, true
	case int64:
		return fromSigned(x)
	case uint:
		return uint64(x), true
	case int32:
		return fromSigned(int64(x))
	case uint16:
		return uint64(x), true
	case int16:
		return fromSigned(int64(x))
	case uint8:
		return uint64(x), true
	case int8:
		return fromSigned(int64(x))
	}
	return 0, false
}

func fromSigned(x int64) (uint64, bool) {
	if x < 0 {
		return 0, false
	}
	return uint64(x), true
}

// Binary returns v as a byte slice if it is one.
func Binary(v any) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}

// Describe names the kind of v for error messages.
func Describe(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

// ElementError reports a sequence element that is not a uint32.
type ElementError struct {
	Position int
	Value    any
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %d: %s is not a uint32", e.Position, Describe(e.Value))
}
