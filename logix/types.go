package logix

import (
	"fmt"
	"strings"
)

// Logix CIP data type codes. These appear in read reply payloads and in
// packed write bodies; callers interpret raw tag bytes against them.
const (
	TypeBOOL  uint16 = 0x00C1 // 1 byte (0 or 1)
	TypeSINT  uint16 = 0x00C2 // 1 byte signed
	TypeINT   uint16 = 0x00C3 // 2 bytes signed
	TypeDINT  uint16 = 0x00C4 // 4 bytes signed
	TypeLINT  uint16 = 0x00C5 // 8 bytes signed
	TypeUSINT uint16 = 0x00C6 // 1 byte unsigned
	TypeUINT  uint16 = 0x00C7 // 2 bytes unsigned
	TypeUDINT uint16 = 0x00C8 // 4 bytes unsigned
	TypeULINT uint16 = 0x00C9 // 8 bytes unsigned
	TypeREAL  uint16 = 0x00CA // 4 bytes IEEE 754 float
	TypeLREAL uint16 = 0x00CB // 8 bytes IEEE 754 double

	// String types
	TypeSTRING      uint16 = 0x00D0 // Logix STRING (4-byte len + chars)
	TypeShortSTRING uint16 = 0x00DA // 1-byte len + chars

	// Bit string types (arrays of bits)
	TypeBYTE  uint16 = 0x00D1 // 8 bits
	TypeWORD  uint16 = 0x00D2 // 16 bits
	TypeDWORD uint16 = 0x00D3 // 32 bits
	TypeLWORD uint16 = 0x00D4 // 64 bits

	// Structure flag - bit 15 set means structure/UDT; low bits carry the
	// template instance.
	TypeStructureMask uint16 = 0x8000

	// Array flag - bit 13.
	TypeArrayMask uint16 = 0x2000
)

// atomicTypes is the single source of truth for name/code/size mapping.
var atomicTypes = []struct {
	code uint16
	name string
	size int
}{
	{TypeBOOL, "BOOL", 1},
	{TypeSINT, "SINT", 1},
	{TypeINT, "INT", 2},
	{TypeDINT, "DINT", 4},
	{TypeLINT, "LINT", 8},
	{TypeUSINT, "USINT", 1},
	{TypeUINT, "UINT", 2},
	{TypeUDINT, "UDINT", 4},
	{TypeULINT, "ULINT", 8},
	{TypeREAL, "REAL", 4},
	{TypeLREAL, "LREAL", 8},
	{TypeBYTE, "BYTE", 1},
	{TypeWORD, "WORD", 2},
	{TypeDWORD, "DWORD", 4},
	{TypeLWORD, "LWORD", 8},
	{TypeSTRING, "STRING", 0},
	{TypeShortSTRING, "SHORT_STRING", 0},
}

// TypeSize returns the element byte size for atomic types.
// Returns 0 for structures, strings, and unknown codes.
func TypeSize(dataType uint16) int {
	baseType := dataType & 0x0FFF
	for _, t := range atomicTypes {
		if t.code == baseType {
			return t.size
		}
	}
	return 0
}

// IsStructure reports whether the type code represents a structure/UDT.
func IsStructure(dataType uint16) bool {
	return dataType&TypeStructureMask != 0
}

// IsArray reports whether the type code carries the array flag.
func IsArray(dataType uint16) bool {
	return dataType&TypeArrayMask != 0
}

// TemplateID extracts the template instance from a structure type code.
// Returns 0 for non-structure types.
func TemplateID(dataType uint16) uint16 {
	if !IsStructure(dataType) {
		return 0
	}
	return dataType & 0x0FFF
}

// TypeName returns a human-readable name for a type code.
func TypeName(dataType uint16) string {
	var name string
	if IsStructure(dataType) {
		name = fmt.Sprintf("STRUCT(%d)", TemplateID(dataType))
	} else {
		base := dataType & 0x0FFF
		name = "UNKNOWN"
		for _, t := range atomicTypes {
			if t.code == base {
				name = t.name
				break
			}
		}
	}
	if IsArray(dataType) {
		return name + "[]"
	}
	return name
}

// TypeCodeFromName returns the type code for an atomic type name.
func TypeCodeFromName(name string) (uint16, bool) {
	upper := strings.ToUpper(name)
	for _, t := range atomicTypes {
		if t.name == upper {
			return t.code, true
		}
	}
	return 0, false
}

// SupportedTypeNames returns the atomic type names accepted for manual
// tag entry, in declaration order.
func SupportedTypeNames() []string {
	names := make([]string, 0, len(atomicTypes))
	for _, t := range atomicTypes {
		names = append(names, t.name)
	}
	return names
}
