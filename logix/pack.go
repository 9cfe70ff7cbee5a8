package logix

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Pack encodes a single Go value as the little-endian wire bytes of the
// given atomic type code. Integer kinds accept int64, unsigned kinds
// uint64, floats float64, BOOL bool, strings string.
func Pack(code uint16, value interface{}) ([]byte, error) {
	switch code & 0x0FFF {
	case TypeBOOL:
		b, ok := value.(bool)
		if !ok {
			return nil, packTypeError(code, value)
		}
		if b {
			return []byte{0xFF}, nil
		}
		return []byte{0x00}, nil

	case TypeSINT, TypeINT, TypeDINT, TypeLINT:
		n, ok := value.(int64)
		if !ok {
			return nil, packTypeError(code, value)
		}
		return packUint(code, uint64(n))

	case TypeUSINT, TypeUINT, TypeUDINT, TypeULINT, TypeBYTE, TypeWORD, TypeDWORD, TypeLWORD:
		n, ok := value.(uint64)
		if !ok {
			return nil, packTypeError(code, value)
		}
		return packUint(code, n)

	case TypeREAL:
		f, ok := value.(float64)
		if !ok {
			return nil, packTypeError(code, value)
		}
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(f))), nil

	case TypeLREAL:
		f, ok := value.(float64)
		if !ok {
			return nil, packTypeError(code, value)
		}
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(f)), nil

	case TypeSTRING:
		s, ok := value.(string)
		if !ok {
			return nil, packTypeError(code, value)
		}
		out := binary.LittleEndian.AppendUint32(nil, uint32(len(s)))
		return append(out, s...), nil

	case TypeShortSTRING:
		s, ok := value.(string)
		if !ok {
			return nil, packTypeError(code, value)
		}
		if len(s) > 255 {
			return nil, fmt.Errorf("pack SHORT_STRING: value too long (%d bytes)", len(s))
		}
		return append([]byte{byte(len(s))}, s...), nil

	default:
		return nil, fmt.Errorf("pack: unsupported type code 0x%04X", code)
	}
}

// packUint truncates n to the type's wire width.
func packUint(code uint16, n uint64) ([]byte, error) {
	full := binary.LittleEndian.AppendUint64(nil, n)
	size := TypeSize(code)
	if size == 0 {
		return nil, fmt.Errorf("pack: type %s has no fixed size", TypeName(code))
	}
	return full[:size], nil
}

func packTypeError(code uint16, value interface{}) error {
	return fmt.Errorf("pack %s: unsupported value type %T", TypeName(code), value)
}
