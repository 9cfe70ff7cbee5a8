package logix

import (
	"encoding/binary"
	"fmt"
	"math"
)

// StructureReadMarker is the little-endian value of the A0 02 prefix that
// precedes the structure handle in read replies for UDT tags.
const StructureReadMarker uint16 = 0x02A0

// TagValue is the decoded result of a read: the resolved type code and the
// raw little-endian value bytes, with typed accessors. It is a stateless
// value object with no references back into the codec.
type TagValue struct {
	Name     string // tag name as requested
	DataType uint16 // CIP data type code from the reply
	Handle   uint16 // structure handle (structure reads only)
	Bytes    []byte // raw value bytes (little-endian)
	Count    int    // requested element count
}

// splitReadPayload separates a read reply payload into its type header and
// value bytes. Structured payloads carry [A0 02][handle 2] before the data;
// atomic payloads carry the 2-byte type code only.
func splitReadPayload(data []byte) (typeHeader, value []byte, err error) {
	if len(data) < 2 {
		return nil, nil, fmt.Errorf("read payload too short: %d bytes", len(data))
	}
	if binary.LittleEndian.Uint16(data) == StructureReadMarker {
		if len(data) < 4 {
			return nil, nil, fmt.Errorf("structured read payload missing handle: %d bytes", len(data))
		}
		return data[:4], data[4:], nil
	}
	return data[:2], data[2:], nil
}

// DecodeReadPayload interprets a complete read reply payload (type header
// plus value bytes) as a TagValue.
func DecodeReadPayload(tag string, elements int, data []byte) (*TagValue, error) {
	typeHeader, value, err := splitReadPayload(data)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", tag, err)
	}

	v := &TagValue{
		Name:  tag,
		Bytes: value,
		Count: elements,
	}
	if len(typeHeader) == 4 {
		v.DataType = TypeStructureMask
		v.Handle = binary.LittleEndian.Uint16(typeHeader[2:4])
	} else {
		v.DataType = binary.LittleEndian.Uint16(typeHeader)
	}

	if size := TypeSize(v.DataType); size > 0 && len(value) < size {
		return nil, fmt.Errorf("decode %q: %s value truncated: %d bytes", tag, v.TypeName(), len(value))
	}

	return v, nil
}

// TypeName returns the human-readable type name for this value.
func (v *TagValue) TypeName() string {
	if v.Handle != 0 {
		return fmt.Sprintf("STRUCT(%d)", v.Handle)
	}
	return TypeName(v.DataType)
}

// IsStructure reports whether the value came from a UDT read.
func (v *TagValue) IsStructure() bool {
	return v.Handle != 0 || IsStructure(v.DataType)
}

// Bool returns the value as a boolean. BOOL only.
func (v *TagValue) Bool() (bool, error) {
	if v.DataType&0x0FFF != TypeBOOL {
		return false, fmt.Errorf("type mismatch: expected BOOL, got %s", v.TypeName())
	}
	if len(v.Bytes) < 1 {
		return false, fmt.Errorf("insufficient data for BOOL")
	}
	return v.Bytes[0] != 0, nil
}

// Int returns the value as a signed 64-bit integer.
// Works for SINT, INT, DINT, and LINT.
func (v *TagValue) Int() (int64, error) {
	switch v.DataType & 0x0FFF {
	case TypeSINT:
		if len(v.Bytes) < 1 {
			return 0, fmt.Errorf("insufficient data for SINT")
		}
		return int64(int8(v.Bytes[0])), nil
	case TypeINT:
		if len(v.Bytes) < 2 {
			return 0, fmt.Errorf("insufficient data for INT")
		}
		return int64(int16(binary.LittleEndian.Uint16(v.Bytes))), nil
	case TypeDINT:
		if len(v.Bytes) < 4 {
			return 0, fmt.Errorf("insufficient data for DINT")
		}
		return int64(int32(binary.LittleEndian.Uint32(v.Bytes))), nil
	case TypeLINT:
		if len(v.Bytes) < 8 {
			return 0, fmt.Errorf("insufficient data for LINT")
		}
		return int64(binary.LittleEndian.Uint64(v.Bytes)), nil
	default:
		return 0, fmt.Errorf("type mismatch: expected signed integer, got %s", v.TypeName())
	}
}

// Uint returns the value as an unsigned 64-bit integer.
// Works for USINT, UINT, UDINT, ULINT and the bit string types.
func (v *TagValue) Uint() (uint64, error) {
	switch v.DataType & 0x0FFF {
	case TypeUSINT, TypeBYTE:
		if len(v.Bytes) < 1 {
			return 0, fmt.Errorf("insufficient data for %s", v.TypeName())
		}
		return uint64(v.Bytes[0]), nil
	case TypeUINT, TypeWORD:
		if len(v.Bytes) < 2 {
			return 0, fmt.Errorf("insufficient data for %s", v.TypeName())
		}
		return uint64(binary.LittleEndian.Uint16(v.Bytes)), nil
	case TypeUDINT, TypeDWORD:
		if len(v.Bytes) < 4 {
			return 0, fmt.Errorf("insufficient data for %s", v.TypeName())
		}
		return uint64(binary.LittleEndian.Uint32(v.Bytes)), nil
	case TypeULINT, TypeLWORD:
		if len(v.Bytes) < 8 {
			return 0, fmt.Errorf("insufficient data for %s", v.TypeName())
		}
		return binary.LittleEndian.Uint64(v.Bytes), nil
	default:
		return 0, fmt.Errorf("type mismatch: expected unsigned integer, got %s", v.TypeName())
	}
}

// Float returns the value as a 64-bit float. REAL and LREAL only.
func (v *TagValue) Float() (float64, error) {
	switch v.DataType & 0x0FFF {
	case TypeREAL:
		if len(v.Bytes) < 4 {
			return 0, fmt.Errorf("insufficient data for REAL")
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(v.Bytes))), nil
	case TypeLREAL:
		if len(v.Bytes) < 8 {
			return 0, fmt.Errorf("insufficient data for LREAL")
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(v.Bytes)), nil
	default:
		return 0, fmt.Errorf("type mismatch: expected float, got %s", v.TypeName())
	}
}

// String returns the value as a string. STRING and SHORT_STRING only.
func (v *TagValue) String() (string, error) {
	switch v.DataType & 0x0FFF {
	case TypeSTRING:
		// 4-byte length prefix + character data
		if len(v.Bytes) < 4 {
			return "", fmt.Errorf("insufficient data for STRING")
		}
		n := binary.LittleEndian.Uint32(v.Bytes[:4])
		if int(n) > len(v.Bytes)-4 {
			n = uint32(len(v.Bytes) - 4)
		}
		return string(v.Bytes[4 : 4+n]), nil
	case TypeShortSTRING:
		// 1-byte length prefix + character data
		if len(v.Bytes) < 1 {
			return "", fmt.Errorf("insufficient data for SHORT_STRING")
		}
		n := int(v.Bytes[0])
		if n > len(v.Bytes)-1 {
			n = len(v.Bytes) - 1
		}
		return string(v.Bytes[1 : 1+n]), nil
	default:
		return "", fmt.Errorf("type mismatch: expected string, got %s", v.TypeName())
	}
}

// GoValue converts the value to a plain Go type:
//   - BOOL -> bool ([]bool for arrays)
//   - signed integers -> int64 ([]int64)
//   - unsigned integers and bit strings -> uint64 ([]uint64)
//   - REAL/LREAL -> float64 ([]float64)
//   - STRING/SHORT_STRING -> string ([]string)
//   - structures and unknown types -> []int (raw bytes, JSON friendly)
func (v *TagValue) GoValue() interface{} {
	if v.IsStructure() {
		return v.bytesToIntArray()
	}

	baseType := v.DataType & 0x0FFF

	isArray := IsArray(v.DataType) || v.Count > 1
	if !isArray {
		if size := TypeSize(baseType); size > 0 && len(v.Bytes) > size {
			isArray = true
		}
	}

	if isArray {
		return v.goArray(baseType)
	}
	return v.goScalar(baseType)
}

func (v *TagValue) goScalar(baseType uint16) interface{} {
	switch baseType {
	case TypeBOOL:
		if b, err := v.Bool(); err == nil {
			return b
		}
	case TypeSINT, TypeINT, TypeDINT, TypeLINT:
		if n, err := v.Int(); err == nil {
			return n
		}
	case TypeUSINT, TypeUINT, TypeUDINT, TypeULINT, TypeBYTE, TypeWORD, TypeDWORD, TypeLWORD:
		if n, err := v.Uint(); err == nil {
			return n
		}
	case TypeREAL, TypeLREAL:
		if f, err := v.Float(); err == nil {
			return f
		}
	case TypeSTRING, TypeShortSTRING:
		if s, err := v.String(); err == nil {
			return s
		}
	}
	return v.bytesToIntArray()
}

func (v *TagValue) goArray(baseType uint16) interface{} {
	size := TypeSize(baseType)

	switch baseType {
	case TypeBOOL:
		out := make([]bool, len(v.Bytes))
		for i, b := range v.Bytes {
			out[i] = b != 0
		}
		return out

	case TypeSINT, TypeINT, TypeDINT, TypeLINT:
		count := len(v.Bytes) / size
		out := make([]int64, count)
		for i := 0; i < count; i++ {
			elem := v.Bytes[i*size:]
			switch size {
			case 1:
				out[i] = int64(int8(elem[0]))
			case 2:
				out[i] = int64(int16(binary.LittleEndian.Uint16(elem)))
			case 4:
				out[i] = int64(int32(binary.LittleEndian.Uint32(elem)))
			case 8:
				out[i] = int64(binary.LittleEndian.Uint64(elem))
			}
		}
		return out

	case TypeUSINT, TypeUINT, TypeUDINT, TypeULINT, TypeBYTE, TypeWORD, TypeDWORD, TypeLWORD:
		count := len(v.Bytes) / size
		out := make([]uint64, count)
		for i := 0; i < count; i++ {
			elem := v.Bytes[i*size:]
			switch size {
			case 1:
				out[i] = uint64(elem[0])
			case 2:
				out[i] = uint64(binary.LittleEndian.Uint16(elem))
			case 4:
				out[i] = uint64(binary.LittleEndian.Uint32(elem))
			case 8:
				out[i] = binary.LittleEndian.Uint64(elem)
			}
		}
		return out

	case TypeREAL, TypeLREAL:
		count := len(v.Bytes) / size
		out := make([]float64, count)
		for i := 0; i < count; i++ {
			elem := v.Bytes[i*size:]
			if size == 4 {
				out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(elem)))
			} else {
				out[i] = math.Float64frombits(binary.LittleEndian.Uint64(elem))
			}
		}
		return out

	case TypeShortSTRING:
		var out []string
		data := v.Bytes
		for len(data) > 0 {
			n := int(data[0])
			data = data[1:]
			if n > len(data) {
				n = len(data)
			}
			out = append(out, string(data[:n]))
			data = data[n:]
		}
		return out

	case TypeSTRING:
		var out []string
		data := v.Bytes
		for len(data) >= 4 {
			n := int(binary.LittleEndian.Uint32(data[:4]))
			data = data[4:]
			if n > len(data) {
				n = len(data)
			}
			out = append(out, string(data[:n]))
			data = data[n:]
		}
		return out

	default:
		return v.bytesToIntArray()
	}
}

func (v *TagValue) bytesToIntArray() []int {
	out := make([]int, len(v.Bytes))
	for i, b := range v.Bytes {
		out[i] = int(b)
	}
	return out
}
