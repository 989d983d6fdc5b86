package rbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_AddIsIdempotent(t *testing.T) {
	s := NewWithCapacity(0)
	assert.Equal(t, DefaultCapacity, s.Capacity())

	for _, v := range []uint32{1, 2, 2, 3} {
		s.Add(v)
	}

	assert.Equal(t, uint64(3), s.Cardinality())
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(5))
}

func TestSet_Algebra(t *testing.T) {
	a := Of(1, 2, 3)
	b := Of(3, 4, 5)

	u := Or(a, b)
	assert.Equal(t, uint64(5), u.Cardinality())
	for v := uint32(1); v <= 5; v++ {
		assert.True(t, u.Contains(v), "union missing %d", v)
	}

	i := And(a, b)
	assert.Equal(t, uint64(1), i.Cardinality())
	assert.True(t, i.Contains(3))

	assert.False(t, IsSubset(a, b))
	assert.True(t, IsSubset(a, u))
	assert.True(t, IsSubset(i, a))
	assert.True(t, IsSubset(NewWithCapacity(0), a))

	// Operands are untouched.
	assert.Equal(t, uint64(3), a.Cardinality())
	assert.Equal(t, uint64(3), b.Cardinality())

	assert.True(t, Equals(Or(a, b), Or(b, a)))
	c := Of(9, 10)
	assert.True(t, Equals(Or(Or(a, b), c), Or(a, Or(b, c))))
}

func TestSet_SerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		values []uint32
	}{
		{"empty", nil},
		{"sparse", []uint32{0, 7, 1 << 20, 1<<32 - 1}},
		{"dense", denseRange(0, 70000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Of(tt.values...)
			data, err := s.Serialize()
			require.NoError(t, err)

			got, err := Deserialize(data)
			require.NoError(t, err)
			assert.True(t, Equals(s, got))
		})
	}
}

func TestDeserialize_Corrupt(t *testing.T) {
	data, err := Of(1, 2, 3).Serialize()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"truncated", data[:len(data)-1]},
		{"trailing", append(append([]byte{}, data...), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.data)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestSet_Statistics(t *testing.T) {
	empty := NewWithCapacity(0).Statistics()
	assert.Equal(t, Statistics{}, empty)

	st := Of(1, 2, 3, 100).Statistics()
	assert.Equal(t, uint64(4), st.Cardinality)
	assert.Equal(t, uint32(1), st.MinValue)
	assert.Equal(t, uint32(100), st.MaxValue)
	assert.Equal(t, uint64(106), st.SumValue)
	assert.Equal(t, uint64(1), st.Containers)

	fields := st.Fields()
	require.Len(t, fields, 14)
	assert.Equal(t, "n_containers", fields[0].Name)
	assert.Equal(t, Field{"cardinality", 4}, fields[13])
}

func TestSet_Free(t *testing.T) {
	s := Of(1)
	assert.False(t, s.Freed())
	s.Free()
	assert.True(t, s.Freed())
	s.Free()
	assert.True(t, s.Freed())
}

func denseRange(lo, hi uint32) []uint32 {
	out := make([]uint32, 0, hi-lo)
	for v := lo; v < hi; v++ {
		out = append(out, v)
	}
	return out
}
