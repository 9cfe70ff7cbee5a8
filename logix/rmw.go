package logix

import (
	"encoding/binary"
	"fmt"

	"taglink/cip"
)

// MaskedWrite accumulates individual bit writes into one Read Modify Write
// Tag request, saving a round trip per bit. The target applies
// new = (old AND and-mask) OR or-mask.
type MaskedWrite struct {
	op      *Operation
	size    int // mask byte width (1/2/4/8)
	orMask  uint64
	andMask uint64
	bits    []int
}

// maskSize returns the mask byte width for a type, 0 if it has none.
func maskSize(t TypeInfo) int {
	if t.Struct {
		return 0
	}
	switch t.Size {
	case 1, 2, 4, 8:
		return t.Size
	default:
		return 0
	}
}

// NewMaskedWrite creates a masked write for a tag. The masks start as
// identities: all-ones AND, all-zeros OR. A type without a known byte
// width is a construction error; the operation is never built.
func NewMaskedWrite(tag string, t TypeInfo, requestID int) (*MaskedWrite, error) {
	op := &Operation{
		Kind:      KindReadModifyWrite,
		Tag:       tag,
		Elements:  1,
		Type:      t,
		RequestID: requestID,
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	return &MaskedWrite{
		op:      op,
		size:    maskSize(t),
		orMask:  0,
		andMask: ^uint64(0),
	}, nil
}

// SetBit records one bit write. Bit indices wrap at the type's bit width,
// matching hardware word addressing. Later calls for the same bit override
// earlier ones.
func (m *MaskedWrite) SetBit(bit int, value bool) {
	bit %= m.size * 8
	if bit < 0 {
		bit += m.size * 8
	}

	if value {
		// Survives the AND pass, then forced on by OR.
		m.orMask |= 1 << bit
		m.andMask |= 1 << bit
	} else {
		// Forced off regardless of the OR pass.
		m.orMask &^= 1 << bit
		m.andMask &^= 1 << bit
	}
	m.bits = append(m.bits, bit)
}

// Bits returns the bit indices recorded so far, in call order.
func (m *MaskedWrite) Bits() []int {
	return m.bits
}

// Masks returns the current OR and AND masks.
func (m *MaskedWrite) Masks() (orMask, andMask uint64) {
	return m.orMask, m.andMask
}

// Build materializes the request:
// [service] [path] [mask size 2] [or-mask] [and-mask]
// Both masks are truncated to the declared mask byte width.
func (m *MaskedWrite) Build() (cip.Request, error) {
	path, err := m.op.RequestPath()
	if err != nil {
		return cip.Request{}, err
	}

	or8 := binary.LittleEndian.AppendUint64(nil, m.orMask)
	and8 := binary.LittleEndian.AppendUint64(nil, m.andMask)

	data := make([]byte, 0, 2+2*m.size)
	data = binary.LittleEndian.AppendUint16(data, uint16(m.size))
	data = append(data, or8[:m.size]...)
	data = append(data, and8[:m.size]...)

	return cip.Request{
		Service: cip.SvcReadModifyWriteTag,
		Path:    path,
		Data:    data,
	}, nil
}

// ParseReply decodes the status-only reply for the masked write.
func (m *MaskedWrite) ParseReply(raw []byte) *Result {
	return ParseWriteReply(m.op, raw)
}

// Execute builds the request, performs the round trip, and parses the
// status-only reply.
func (m *MaskedWrite) Execute(rt Requester) *Result {
	req, err := m.Build()
	if err != nil {
		return failedResult(m.op, nil, err)
	}
	raw, err := rt.RoundTrip(req.Marshal())
	if err != nil {
		return failedResult(m.op, nil, fmt.Errorf("read modify write %q: %w", m.op.Tag, err))
	}
	return m.ParseReply(raw)
}
