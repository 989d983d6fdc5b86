package rbm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

var (
	// ErrCorrupt is returned when serialized bytes do not decode to a valid set.
	ErrCorrupt = errors.New("rbm: corrupt serialized bitmap")

	// ErrSizeMismatch is returned when the encoded length differs from the
	// engine's own size computation.
	ErrSizeMismatch = errors.New("rbm: serialized size mismatch")
)

// DefaultCapacity is the capacity hint used when the caller supplies none.
const DefaultCapacity = 8 * 1024

// Set is a mutable compressed set of uint32 values.
// It wraps the official roaring implementation.
//
// A Set is not safe for concurrent use. Ownership and lifetime are managed by
// the handle table; callers never free a Set directly.
type Set struct {
	rb       *roaring.Bitmap
	capacity int
}

// NewWithCapacity creates an empty set. The capacity is a sizing hint only and
// never limits how many values the set can hold.
func NewWithCapacity(capacity int) *Set {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Set{
		rb:       roaring.New(),
		capacity: capacity,
	}
}

// Of returns a set holding the given values.
func Of(values ...uint32) *Set {
	s := NewWithCapacity(len(values))
	s.rb.AddMany(values)
	return s
}

// Capacity returns the capacity hint the set was created with.
func (s *Set) Capacity() int {
	return s.capacity
}

// Add inserts v. Adding a value already present is a no-op.
func (s *Set) Add(v uint32) {
	s.rb.Add(v)
}

// Contains reports whether v is a member.
func (s *Set) Contains(v uint32) bool {
	return s.rb.Contains(v)
}

// Cardinality returns the number of members.
func (s *Set) Cardinality() uint64 {
	return s.rb.GetCardinality()
}

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool {
	return s.rb.IsEmpty()
}

// SizeInBytes estimates the in-memory footprint.
func (s *Set) SizeInBytes() uint64 {
	return s.rb.GetSizeInBytes()
}

// ForEach calls fn for each member in ascending order until fn returns false.
func (s *Set) ForEach(fn func(v uint32) bool) {
	it := s.rb.Iterator()
	for it.HasNext() {
		if !fn(it.Next()) {
			return
		}
	}
}

// Or returns a new set holding the union of a and b. Operands are untouched.
func Or(a, b *Set) *Set {
	return &Set{
		rb:       roaring.Or(a.rb, b.rb),
		capacity: max(a.capacity, b.capacity),
	}
}

// And returns a new set holding the intersection of a and b. Operands are untouched.
func And(a, b *Set) *Set {
	return &Set{
		rb:       roaring.And(a.rb, b.rb),
		capacity: min(a.capacity, b.capacity),
	}
}

// Equals reports whether a and b hold the same members.
func Equals(a, b *Set) bool {
	return a.rb.Equals(b.rb)
}

// IsSubset reports whether every member of a is also a member of b.
func IsSubset(a, b *Set) bool {
	card := a.rb.GetCardinality()
	if card == 0 {
		return true
	}
	if card > b.rb.GetCardinality() {
		return false
	}
	return a.rb.AndCardinality(b.rb) == card
}

// Serialize encodes the set in the portable roaring format.
func (s *Set) Serialize() ([]byte, error) {
	sz := s.rb.GetSerializedSizeInBytes()
	var buf bytes.Buffer
	buf.Grow(int(sz))

	n, err := s.rb.WriteTo(&buf)
	if err != nil {
		return nil, fmt.Errorf("rbm: serialize: %w", err)
	}
	if uint64(n) != sz || uint64(buf.Len()) != sz {
		return nil, fmt.Errorf("%w: computed %d, wrote %d", ErrSizeMismatch, sz, n)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a set produced by Serialize.
// Trailing bytes after a valid encoding are rejected.
func Deserialize(data []byte) (s *Set, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrCorrupt)
	}

	// The decoder indexes into data using lengths read from data itself.
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()

	rb := roaring.New()
	n, err := rb.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if n != int64(len(data)) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, int64(len(data))-n)
	}
	return &Set{rb: rb, capacity: DefaultCapacity}, nil
}

// Free releases the set's containers. The set must not be used afterwards.
func (s *Set) Free() {
	if s.rb != nil {
		s.rb.Clear()
		s.rb = nil
	}
}

// Freed reports whether Free has been called.
func (s *Set) Freed() bool {
	return s.rb == nil
}
