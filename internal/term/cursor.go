package term

// Cursor walks a sequence of values one element at a time. A Cursor is the
// unconsumed remainder of its sequence: after Next returns k values, the
// same Cursor describes exactly what is left.
type Cursor interface {
	// Next returns the next value, or ok=false once the sequence is exhausted.
	// A non-nil error means the element at Pos()-1 was not a uint32; the
	// cursor has moved past it.
	Next() (v uint32, ok bool, err error)

	// Len returns the number of values not yet consumed.
	Len() int

	// Pos returns the number of elements consumed so far.
	Pos() int
}

// NewCursor wraps a sequence argument. It accepts []uint32, []uint64, []int,
// []int64, []any, and an existing Cursor (returned as is, so a continuation
// resumes where it stopped).
func NewCursor(v any) (Cursor, bool) {
	switch s := v.(type) {
	case Cursor:
		return s, true
	case []uint32:
		return &uint32Cursor{s: s}, true
	case []any:
		return &sliceCursor[any]{s: s}, true
	case []int:
		return &sliceCursor[int]{s: s}, true
	case []int64:
		return &sliceCursor[int64]{s: s}, true
	case []uint64:
		return &sliceCursor[uint64]{s: s}, true
	}
	return nil, false
}

// Values returns a Cursor over vs.
func Values(vs ...uint32) Cursor {
	return &uint32Cursor{s: vs}
}

type uint32Cursor struct {
	s   []uint32
	pos int
}

func (c *uint32Cursor) Next() (uint32, bool, error) {
	if c.pos >= len(c.s) {
		return 0, false, nil
	}
	v := c.s[c.pos]
	c.pos++
	return v, true, nil
}

func (c *uint32Cursor) Len() int { return len(c.s) - c.pos }
func (c *uint32Cursor) Pos() int { return c.pos }

type sliceCursor[T any] struct {
	s   []T
	pos int
}

func (c *sliceCursor[T]) Next() (uint32, bool, error) {
	if c.pos >= len(c.s) {
		return 0, false, nil
	}
	raw := any(c.s[c.pos])
	c.pos++
	v, ok := Uint32(raw)
	if !ok {
		return 0, false, &ElementError{Position: c.pos - 1, Value: raw}
	}
	return v, true, nil
}

func (c *sliceCursor[T]) Len() int { return len(c.s) - c.pos }
func (c *sliceCursor[T]) Pos() int { return c.pos }
