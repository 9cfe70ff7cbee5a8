package cip

import (
	"encoding/binary"
	"fmt"
)

// EPath is an encoded CIP request path.
type EPath []byte

// WordLen returns the path length in 16-bit words, as carried on the wire.
func (p EPath) WordLen() byte {
	return byte(len(p) / 2)
}

type logicalType byte
type logicalFormat byte

const (
	segLogical  byte = 0b001
	segSymbolic byte = 0b011

	typeClassID    logicalType = 0b000
	typeInstanceID logicalType = 0b001
	typeMemberID   logicalType = 0b010

	format8bit  logicalFormat = 0b00
	format16bit logicalFormat = 0b01
	format32bit logicalFormat = 0b10
)

// PathBuilder assembles an EPath from logical and symbolic segments.
// Errors are latched and reported by Build.
type PathBuilder struct {
	err    error
	path   EPath
	padded bool
}

// Path starts a new padded EPath builder. Padded paths word-align 16- and
// 32-bit logical values with an internal pad byte per ODVA 1.4.
func Path() *PathBuilder {
	return &PathBuilder{padded: true}
}

func (b *PathBuilder) add(p EPath, err error) *PathBuilder {
	if b.err != nil {
		return b
	}
	if err != nil {
		b.err = err
		return b
	}
	b.path = append(b.path, p...)
	return b
}

// Class appends an 8-bit class ID segment.
func (b *PathBuilder) Class(id byte) *PathBuilder {
	return b.add(logicalSegment(typeClassID, format8bit, []byte{id}, b.padded))
}

// Instance appends an 8-bit instance ID segment.
func (b *PathBuilder) Instance(id byte) *PathBuilder {
	return b.add(logicalSegment(typeInstanceID, format8bit, []byte{id}, b.padded))
}

// Instance16 appends a 16-bit instance ID segment.
func (b *PathBuilder) Instance16(id uint16) *PathBuilder {
	return b.add(logicalSegment(typeInstanceID, format16bit, binary.LittleEndian.AppendUint16(nil, id), b.padded))
}

// Instance32 appends a 32-bit instance ID segment.
func (b *PathBuilder) Instance32(id uint32) *PathBuilder {
	return b.add(logicalSegment(typeInstanceID, format32bit, binary.LittleEndian.AppendUint32(nil, id), b.padded))
}

// Symbol appends symbolic segments for a tag path. Dots separate nested
// members, brackets denote array indices ("Program:Main.Counts[3].ACC").
// The colon is not a separator: "Program:Main" is one symbolic segment.
func (b *PathBuilder) Symbol(tag string) *PathBuilder {
	for _, part := range splitTagPath(tag) {
		if part.isIndex {
			b = b.add(memberSegment(part.index))
		} else {
			b = b.add(symbolicSegment([]byte(part.name)))
		}
	}
	return b
}

// Build finalizes the path, padding to a word boundary if needed.
// The builder may continue to be used after Build.
func (b *PathBuilder) Build() (EPath, error) {
	if b.err != nil {
		return nil, b.err
	}

	out := append(EPath{}, b.path...)
	if b.padded && len(out)%2 != 0 {
		out = append(out, 0x00)
	}
	return out, nil
}

// logicalSegment encodes one logical segment. For padded paths, 16- and
// 32-bit formats require a pad byte between the segment header and value.
func logicalSegment(lt logicalType, lf logicalFormat, value []byte, padded bool) (EPath, error) {
	switch lf {
	case format8bit:
		if len(value) != 1 {
			return nil, fmt.Errorf("logical segment: 8-bit format requires 1 byte, got %d", len(value))
		}
	case format16bit:
		if len(value) != 2 {
			return nil, fmt.Errorf("logical segment: 16-bit format requires 2 bytes, got %d", len(value))
		}
	case format32bit:
		if len(value) != 4 {
			return nil, fmt.Errorf("logical segment: 32-bit format requires 4 bytes, got %d", len(value))
		}
	default:
		return nil, fmt.Errorf("logical segment: unsupported format %v", lf)
	}

	out := make(EPath, 1, 2+len(value))
	out[0] |= (segLogical & 0b111) << 5
	out[0] |= (byte(lt) & 0b111) << 2
	out[0] |= byte(lf) & 0b11

	if padded && lf != format8bit {
		out = append(out, 0x00)
	}
	out = append(out, value...)

	return out, nil
}

// memberSegment encodes an array index as a member segment, picking the
// narrowest format that fits.
func memberSegment(index uint32) (EPath, error) {
	switch {
	case index <= 0xFF:
		return EPath{0x28, byte(index)}, nil
	case index <= 0xFFFF:
		return EPath{0x29, 0x00, byte(index), byte(index >> 8)}, nil
	default:
		return EPath{0x2A, 0x00, byte(index), byte(index >> 8), byte(index >> 16), byte(index >> 24)}, nil
	}
}

// symbolicSegment encodes an extended-ASCII symbolic segment, padded to an
// even byte count.
func symbolicSegment(symbol []byte) (EPath, error) {
	if len(symbol) == 0 {
		return nil, fmt.Errorf("symbolic segment: empty symbol")
	}
	if len(symbol) > 255 {
		return nil, fmt.Errorf("symbolic segment: symbol too long (%d bytes, max 255)", len(symbol))
	}
	out := EPath{0x91, byte(len(symbol))}
	out = append(out, symbol...)
	if len(out)%2 != 0 {
		out = append(out, 0x00)
	}
	return out, nil
}

// tagPart is one component of a tag path: a symbolic name or an array index.
type tagPart struct {
	name    string
	index   uint32
	isIndex bool
}

// splitTagPath parses "Program:Main.Tag[5].Member" into ordered parts.
func splitTagPath(tag string) []tagPart {
	var parts []tagPart
	current := ""

	flush := func() {
		if current != "" {
			parts = append(parts, tagPart{name: current})
			current = ""
		}
	}

	for i := 0; i < len(tag); i++ {
		switch tag[i] {
		case '.':
			flush()
		case '[':
			flush()
			j := i + 1
			for j < len(tag) && tag[j] != ']' {
				j++
			}
			if j > i+1 {
				var idx uint32
				for _, c := range tag[i+1 : j] {
					if c >= '0' && c <= '9' {
						idx = idx*10 + uint32(c-'0')
					}
				}
				parts = append(parts, tagPart{index: idx, isIndex: true})
			}
			i = j
		case ']':
			// consumed by the '[' case
		default:
			current += string(tag[i])
		}
	}
	flush()

	return parts
}
