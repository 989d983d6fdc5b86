package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Check value from RFC 3720, B.4.
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
	assert.Equal(t, uint32(0), CRC32C(nil))
}

func TestNewCRC32C_Streaming(t *testing.T) {
	data := []byte("roaring bitmaps compress sets of integers")

	h := NewCRC32C()
	_, _ = h.Write(data[:10])
	_, _ = h.Write(data[10:])
	assert.Equal(t, CRC32C(data), h.Sum32())
}
