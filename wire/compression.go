package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block compression applied to an encoded
// batch payload.
type Compression uint8

const (
	// CompressionNone stores the payload raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, hot-path
	// friendly).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses zstd block compression (better ratio).
	CompressionZstd Compression = 2
)

// String returns the string representation of the Compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

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
	dec, _ := zstd.NewReader(nil)
	return dec
}

// blockHeaderSize is the fixed block prefix:
// [UncompressedSize uint32][CompressedSize uint32], little-endian.
// CompressedSize == 0 marks a raw block.
const blockHeaderSize = 8

// maxBlockExpansion caps the claimed uncompressed size at a multiple of
// the compressed payload, so a corrupt header cannot force a huge
// allocation before decompression fails.
const maxBlockExpansion = 256

// compressBlock frames data as a single block. Incompressible input is
// stored raw so decompression stays unconditional on the reader side.
func compressBlock(data []byte, c Compression) ([]byte, error) {
	raw := func() []byte {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[blockHeaderSize:], data)
		return out
	}

	switch c {
	case CompressionNone:
		return raw(), nil

	case CompressionLZ4:
		compressed := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 || n >= len(data) {
			// Incompressible.
			return raw(), nil
		}
		out := make([]byte, blockHeaderSize+n)
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], uint32(n))
		copy(out[blockHeaderSize:], compressed[:n])
		return out, nil

	case CompressionZstd:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		compressed := enc.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return raw(), nil
		}
		out := make([]byte, blockHeaderSize+len(compressed))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
		copy(out[blockHeaderSize:], compressed)
		return out, nil

	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
}

// decompressBlock reverses compressBlock.
func decompressBlock(data []byte, c Compression) ([]byte, error) {
	if len(data) < blockHeaderSize {
		return nil, errors.New("block too small for header")
	}
	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])

	if compressedSize == 0 {
		if uint64(len(data)-blockHeaderSize) != uint64(uncompressedSize) {
			return nil, errors.New("raw block length does not match header")
		}
		return data[blockHeaderSize:], nil
	}

	if uint64(len(data)-blockHeaderSize) != uint64(compressedSize) {
		return nil, errors.New("compressed block length does not match header")
	}
	if uint64(uncompressedSize) > uint64(compressedSize)*maxBlockExpansion {
		return nil, fmt.Errorf("implausible uncompressed size %d for %d compressed bytes", uncompressedSize, compressedSize)
	}
	payload := data[blockHeaderSize:]

	switch c {
	case CompressionLZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint32(n) != uncompressedSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil

	case CompressionZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if uint32(len(out)) != uncompressedSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil

	default:
		return nil, fmt.Errorf("compressed block with compression %d", c)
	}
}
