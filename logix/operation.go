package logix

import (
	"encoding/binary"
	"fmt"

	"taglink/cip"
)

// TypeInfo describes the type of a tag: either a named atomic type or a
// structure identified by its template's structure handle. Operations are
// invalid until their TypeInfo resolves.
type TypeInfo struct {
	Name   string // atomic type name, e.g. "DINT" (empty for structures)
	Struct bool   // true for UDT/structure tags
	Size   int    // element byte size on the wire (0 if unknown)
	Handle uint16 // structure handle (structures only)
}

// AtomicType resolves a TypeInfo from an atomic type name.
func AtomicType(name string) (TypeInfo, error) {
	code, ok := TypeCodeFromName(name)
	if !ok {
		return TypeInfo{}, fmt.Errorf("unsupported data type: %q", name)
	}
	return TypeInfo{Name: name, Size: TypeSize(code)}, nil
}

// StructType builds a TypeInfo for a UDT with the given structure handle
// and instance byte size.
func StructType(handle uint16, size int) TypeInfo {
	return TypeInfo{Struct: true, Size: size, Handle: handle}
}

// Code returns the CIP type code for atomic TypeInfos.
func (t TypeInfo) Code() (uint16, bool) {
	if t.Struct {
		return 0, false
	}
	return TypeCodeFromName(t.Name)
}

// packed returns the type prefix used in write bodies: the structure
// marker plus handle for UDTs, or the 2-byte atomic type code.
func (t TypeInfo) packed() ([]byte, error) {
	if t.Struct {
		out := []byte{0xA0, 0x02}
		return binary.LittleEndian.AppendUint16(out, t.Handle), nil
	}
	code, ok := TypeCodeFromName(t.Name)
	if !ok {
		return nil, fmt.Errorf("unsupported data type: %q", t.Name)
	}
	return binary.LittleEndian.AppendUint16(nil, code), nil
}

// Kind selects the tag service an Operation maps to.
type Kind int

const (
	KindRead Kind = iota
	KindReadFragmented
	KindWrite
	KindWriteFragmented
	KindReadModifyWrite
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindReadFragmented:
		return "read-fragmented"
	case KindWrite:
		return "write"
	case KindWriteFragmented:
		return "write-fragmented"
	case KindReadModifyWrite:
		return "read-modify-write"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// service returns the CIP service code for the kind.
func (k Kind) service() byte {
	switch k {
	case KindRead:
		return cip.SvcReadTag
	case KindReadFragmented:
		return cip.SvcReadTagFragmented
	case KindWrite:
		return cip.SvcWriteTag
	case KindWriteFragmented:
		return cip.SvcWriteTagFragmented
	case KindReadModifyWrite:
		return cip.SvcReadModifyWriteTag
	default:
		return 0
	}
}

// Operation is one logical tag operation. The caller owns it; the codec
// only reads it and caches the compiled request path.
type Operation struct {
	Kind     Kind
	Tag      string
	Elements uint16
	Type     TypeInfo

	// Value holds raw little-endian bytes for write kinds.
	Value []byte

	// RequestID correlates the operation to caller context; it is never
	// sent on the wire.
	RequestID int

	// InstanceID plus UseInstanceID select numeric Symbol Object
	// addressing instead of symbolic segments.
	InstanceID    uint32
	UseInstanceID bool

	path cip.EPath
}

// RequestPath compiles (and caches) the CIP request path for the tag.
// Numeric instance addressing targets the Symbol Object; otherwise the tag
// name is compiled into symbolic segments.
func (op *Operation) RequestPath() (cip.EPath, error) {
	if op.path != nil {
		return op.path, nil
	}

	var (
		path cip.EPath
		err  error
	)
	if op.UseInstanceID && op.InstanceID != 0 {
		b := cip.Path().Class(cip.ClassSymbolObject)
		if op.InstanceID <= 0xFFFF {
			b = b.Instance16(uint16(op.InstanceID))
		} else {
			b = b.Instance32(op.InstanceID)
		}
		path, err = b.Build()
	} else {
		path, err = cip.Path().Symbol(op.Tag).Build()
	}
	if err != nil {
		return nil, fmt.Errorf("%s %q: failed to build request path: %w", op.Kind, op.Tag, err)
	}

	op.path = path
	return path, nil
}

// Validate checks the operation before any byte is built. All violations
// here are build errors, detected synchronously and never sent.
func (op *Operation) Validate() error {
	if op.Tag == "" && !(op.UseInstanceID && op.InstanceID != 0) {
		return fmt.Errorf("%s: empty tag name", op.Kind)
	}
	if op.Elements < 1 {
		return fmt.Errorf("%s %q: element count must be >= 1, got %d", op.Kind, op.Tag, op.Elements)
	}

	switch op.Kind {
	case KindWrite, KindWriteFragmented:
		if op.Type.Struct {
			if op.Type.Handle == 0 {
				return fmt.Errorf("%s %q: structure type requires a structure handle", op.Kind, op.Tag)
			}
			// UDT writes only accept pre-encoded raw bytes.
			if op.Value == nil {
				return fmt.Errorf("%s %q: structure writes require raw value bytes", op.Kind, op.Tag)
			}
		} else if _, ok := op.Type.Code(); !ok {
			return fmt.Errorf("%s %q: unsupported data type %q", op.Kind, op.Tag, op.Type.Name)
		}
	case KindRead, KindReadFragmented:
		// The reply carries the authoritative type code, but a descriptor
		// that is supplied must still resolve.
		if op.Type.Struct && op.Type.Handle == 0 {
			return fmt.Errorf("%s %q: structure type requires a structure handle", op.Kind, op.Tag)
		}
		if !op.Type.Struct && op.Type.Name != "" {
			if _, ok := op.Type.Code(); !ok {
				return fmt.Errorf("%s %q: unsupported data type %q", op.Kind, op.Tag, op.Type.Name)
			}
		}
	case KindReadModifyWrite:
		if maskSize(op.Type) == 0 {
			return fmt.Errorf("%s %q: data type %q has no mask width", op.Kind, op.Tag, op.Type.Name)
		}
	default:
		return fmt.Errorf("invalid operation kind %d", int(op.Kind))
	}

	return nil
}
