package schema

import (
	"fmt"
	"strings"
)

// Type identifies the declared type of a column.
//
// The set is closed: the row container, the key encoder and the wire
// encoder all dispatch on it, so adding a member is a format change.
type Type uint8

const (
	// TypeUnknown represents an invalid or unspecified type.
	TypeUnknown Type = iota
	// TypeBool is a single-byte boolean.
	TypeBool
	// TypeInt8 is a signed 8-bit integer.
	TypeInt8
	// TypeInt16 is a signed 16-bit integer.
	TypeInt16
	// TypeInt32 is a signed 32-bit integer.
	TypeInt32
	// TypeInt64 is a signed 64-bit integer.
	TypeInt64
	// TypeFloat is an IEEE-754 single-precision float.
	TypeFloat
	// TypeDouble is an IEEE-754 double-precision float.
	TypeDouble
	// TypeString is a variable-length byte string.
	TypeString
)

// stringSlotWidth is the in-row cell width of a string column:
// an 8-byte index into the row's variable-length side table plus an
// 8-byte length, mirroring a pointer/length pair in a contiguous row.
const stringSlotWidth = 16

// Size returns the width in bytes of the column's cell inside a row
// buffer. For TypeString this is the fixed slot width, not the length
// of any particular value.
func (t Type) Size() int {
	switch t {
	case TypeBool, TypeInt8:
		return 1
	case TypeInt16:
		return 2
	case TypeInt32, TypeFloat:
		return 4
	case TypeInt64, TypeDouble:
		return 8
	case TypeString:
		return stringSlotWidth
	default:
		return 0
	}
}

// Fixed reports whether values of the type have a fixed width.
func (t Type) Fixed() bool {
	return t != TypeString && t != TypeUnknown
}

// String returns the string representation of the Type.
func (t Type) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// ParseType returns the Type named by s (case-insensitive).
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "bool":
		return TypeBool, nil
	case "int8":
		return TypeInt8, nil
	case "int16":
		return TypeInt16, nil
	case "int32":
		return TypeInt32, nil
	case "int64":
		return TypeInt64, nil
	case "float":
		return TypeFloat, nil
	case "double":
		return TypeDouble, nil
	case "string":
		return TypeString, nil
	default:
		return TypeUnknown, fmt.Errorf("unknown column type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if t == TypeUnknown {
		return nil, fmt.Errorf("cannot marshal unknown column type")
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
