package keycodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

// Escape rules for non-terminal string components. A zero byte inside
// the value is written as 0x00 0x01; the component ends with 0x00 0x00.
// This keeps any encoding from being a prefix of another, so composite
// keys stay memcmp-ordered with unambiguous component boundaries.
const (
	sepByte    = 0x00
	escapeByte = 0x01
)

// ErrShortBuffer indicates a decode on fewer bytes than the component
// requires.
var ErrShortBuffer = errors.New("keycodec: short buffer")

// ErrUnterminated indicates a non-terminal string component without its
// 0x00 0x00 terminator.
var ErrUnterminated = errors.New("keycodec: unterminated string component")

// AppendBool appends the order-preserving encoding of v: one byte,
// 0x00 or 0x01.
func AppendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

// AppendInt8 appends v as a single byte with the sign bit flipped, so
// two's-complement order becomes unsigned lexicographic order.
func AppendInt8(dst []byte, v int8) []byte {
	return append(dst, uint8(v)^0x80)
}

// AppendInt16 appends v big-endian with the sign bit flipped.
func AppendInt16(dst []byte, v int16) []byte {
	return binary.BigEndian.AppendUint16(dst, uint16(v)^0x8000)
}

// AppendInt32 appends v big-endian with the sign bit flipped.
func AppendInt32(dst []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(dst, uint32(v)^0x80000000)
}

// AppendInt64 appends v big-endian with the sign bit flipped.
func AppendInt64(dst []byte, v int64) []byte {
	return binary.BigEndian.AppendUint64(dst, uint64(v)^0x8000000000000000)
}

// AppendFloat32 appends the IEEE-754 bits of v transformed so that
// lexicographic byte order matches numeric order: non-negative values
// get the sign bit set, negative values are bit-complemented.
func AppendFloat32(dst []byte, v float32) []byte {
	bits := math.Float32bits(v)
	if bits&0x80000000 != 0 {
		bits = ^bits
	} else {
		bits |= 0x80000000
	}
	return binary.BigEndian.AppendUint32(dst, bits)
}

// AppendFloat64 appends the order-preserving transform of v; see
// AppendFloat32.
func AppendFloat64(dst []byte, v float64) []byte {
	bits := math.Float64bits(v)
	if bits&0x8000000000000000 != 0 {
		bits = ^bits
	} else {
		bits |= 0x8000000000000000
	}
	return binary.BigEndian.AppendUint64(dst, bits)
}

// AppendString appends the bytes of v. A terminal component (nothing
// follows it in the composite key) is appended raw. A non-terminal
// component is escaped and terminated per the package rules.
func AppendString(dst, v []byte, terminal bool) []byte {
	if terminal {
		return append(dst, v...)
	}
	for {
		i := bytes.IndexByte(v, sepByte)
		if i < 0 {
			break
		}
		dst = append(dst, v[:i]...)
		dst = append(dst, sepByte, escapeByte)
		v = v[i+1:]
	}
	dst = append(dst, v...)
	return append(dst, sepByte, sepByte)
}

// DecodeBool decodes a bool component, returning the remaining bytes.
func DecodeBool(src []byte) (bool, []byte, error) {
	if len(src) < 1 {
		return false, nil, ErrShortBuffer
	}
	return src[0] != 0, src[1:], nil
}

// DecodeInt8 decodes an int8 component, returning the remaining bytes.
func DecodeInt8(src []byte) (int8, []byte, error) {
	if len(src) < 1 {
		return 0, nil, ErrShortBuffer
	}
	return int8(src[0] ^ 0x80), src[1:], nil
}

// DecodeInt16 decodes an int16 component, returning the remaining bytes.
func DecodeInt16(src []byte) (int16, []byte, error) {
	if len(src) < 2 {
		return 0, nil, ErrShortBuffer
	}
	return int16(binary.BigEndian.Uint16(src) ^ 0x8000), src[2:], nil
}

// DecodeInt32 decodes an int32 component, returning the remaining bytes.
func DecodeInt32(src []byte) (int32, []byte, error) {
	if len(src) < 4 {
		return 0, nil, ErrShortBuffer
	}
	return int32(binary.BigEndian.Uint32(src) ^ 0x80000000), src[4:], nil
}

// DecodeInt64 decodes an int64 component, returning the remaining bytes.
func DecodeInt64(src []byte) (int64, []byte, error) {
	if len(src) < 8 {
		return 0, nil, ErrShortBuffer
	}
	return int64(binary.BigEndian.Uint64(src) ^ 0x8000000000000000), src[8:], nil
}

// DecodeFloat32 decodes a float32 component, returning the remaining
// bytes.
func DecodeFloat32(src []byte) (float32, []byte, error) {
	if len(src) < 4 {
		return 0, nil, ErrShortBuffer
	}
	bits := binary.BigEndian.Uint32(src)
	if bits&0x80000000 != 0 {
		bits &^= 0x80000000
	} else {
		bits = ^bits
	}
	return math.Float32frombits(bits), src[4:], nil
}

// DecodeFloat64 decodes a float64 component, returning the remaining
// bytes.
func DecodeFloat64(src []byte) (float64, []byte, error) {
	if len(src) < 8 {
		return 0, nil, ErrShortBuffer
	}
	bits := binary.BigEndian.Uint64(src)
	if bits&0x8000000000000000 != 0 {
		bits &^= 0x8000000000000000
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), src[8:], nil
}

// DecodeString decodes a string component. A terminal component
// consumes all remaining bytes. A non-terminal component is unescaped
// up to its 0x00 0x00 terminator.
func DecodeString(src []byte, terminal bool) ([]byte, []byte, error) {
	if terminal {
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil, nil
	}
	out := make([]byte, 0, len(src))
	for {
		i := bytes.IndexByte(src, sepByte)
		if i < 0 || i+1 >= len(src) {
			return nil, nil, ErrUnterminated
		}
		out = append(out, src[:i]...)
		switch src[i+1] {
		case escapeByte:
			out = append(out, sepByte)
			src = src[i+2:]
		case sepByte:
			return out, src[i+2:], nil
		default:
			return nil, nil, ErrUnterminated
		}
	}
}
