package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/ebitmap/internal/hash"
)

// ErrCorrupt is returned when an envelope fails validation.
var ErrCorrupt = errors.New("snapshot: corrupt envelope")

// Compression selects the payload compression of an envelope.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses zstd (better ratio).
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	}
	return 0, fmt.Errorf("snapshot: unknown compression %q", s)
}

// Envelope layout:
//
//	[0:4]   magic "EBM1"
//	[4]     compression
//	[5:9]   uncompressed payload length, uint32 LE
//	[9:13]  CRC-32C of the uncompressed payload, uint32 LE
//	[13:]   payload
const (
	magic      = "EBM1"
	headerSize = 13

	// maxLZ4Ratio bounds how far one LZ4 block byte can expand.
	maxLZ4Ratio = 255
	// maxPayload is the largest payload the header can describe.
	maxPayload = 1<<32 - 1
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxPayload))
	return dec
}

// Encode wraps data in an envelope. If LZ4 cannot shrink the payload the
// envelope falls back to CompressionNone, which Decode reports.
func Encode(data []byte, c Compression) ([]byte, error) {
	if uint64(len(data)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("snapshot: payload of %d bytes too large", len(data))
	}

	if len(data) == 0 {
		c = CompressionNone
	}

	var body []byte
	switch c {
	case CompressionNone:
		body = data
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("snapshot: lz4: %w", err)
		}
		if n == 0 {
			c, body = CompressionNone, data
		} else {
			body = buf[:n]
		}
	case CompressionZstd:
		enc := getZstdEncoder()
		body = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("snapshot: unknown compression %d", uint8(c))
	}

	out := make([]byte, headerSize+len(body))
	copy(out, magic)
	out[4] = byte(c)
	binary.LittleEndian.PutUint32(out[5:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[9:], hash.CRC32C(data))
	copy(out[headerSize:], body)
	return out, nil
}

// Decode validates an envelope and returns its uncompressed payload.
func Decode(env []byte) ([]byte, Compression, error) {
	if len(env) < headerSize || string(env[:4]) != magic {
		return nil, 0, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	c := Compression(env[4])
	size := binary.LittleEndian.Uint32(env[5:])
	sum := binary.LittleEndian.Uint32(env[9:])
	body := env[headerSize:]

	var data []byte
	switch c {
	case CompressionNone:
		data = body
	case CompressionLZ4:
		if uint64(size) > maxLZ4Ratio*uint64(len(body)) {
			return nil, c, fmt.Errorf("%w: lz4: header claims %d bytes from a %d byte body", ErrCorrupt, size, len(body))
		}
		data = make([]byte, size)
		n, err := lz4.UncompressBlock(body, data)
		if err != nil {
			return nil, c, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		data = data[:n]
	case CompressionZstd:
		dec := getZstdDecoder()
		var err error
		// No capacity hint: size is not trusted until the checksum passes.
		data, err = dec.DecodeAll(body, nil)
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, c, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
	default:
		return nil, c, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, uint8(c))
	}

	if uint32(len(data)) != size {
		return nil, c, fmt.Errorf("%w: length %d, header says %d", ErrCorrupt, len(data), size)
	}
	if hash.CRC32C(data) != sum {
		return nil, c, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return data, c, nil
}
