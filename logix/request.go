package logix

import (
	"encoding/binary"
	"fmt"

	"taglink/cip"
)

// Result is the outcome of one logical tag operation. Failures of any kind
// (build, status, decode, transport) land in Err; callers check OK()
// instead of probing for absent values.
type Result struct {
	Tag       string
	RequestID int
	Reply     *cip.Reply // last reply, kept for diagnostics (nil before one arrives)
	Value     *TagValue  // decoded value for reads (nil on failure and for writes)
	Err       error
}

// OK reports whether the operation completed without error.
func (r *Result) OK() bool {
	return r.Err == nil
}

func newResult(op *Operation) *Result {
	return &Result{Tag: op.Tag, RequestID: op.RequestID}
}

func failedResult(op *Operation, reply *cip.Reply, err error) *Result {
	r := newResult(op)
	r.Reply = reply
	r.Err = err
	return r
}

// BuildRequest materializes the request message for an operation. The
// fragmented kinds start at offset zero and carry the whole value; the
// fragmentation engine builds per-round requests itself. Read-modify-write
// operations are built through MaskedWrite.
func BuildRequest(op *Operation) (cip.Request, error) {
	switch op.Kind {
	case KindRead:
		return BuildRead(op)
	case KindReadFragmented:
		return BuildReadFragmented(op, 0)
	case KindWrite:
		return BuildWrite(op)
	case KindWriteFragmented:
		return BuildWriteFragmented(op, 0, op.Value)
	case KindReadModifyWrite:
		return cip.Request{}, fmt.Errorf("%s %q: build through MaskedWrite", op.Kind, op.Tag)
	default:
		return cip.Request{}, fmt.Errorf("invalid operation kind %d", int(op.Kind))
	}
}

// BuildRead builds a Read Tag request:
// [service] [path] [element count 2]
func BuildRead(op *Operation) (cip.Request, error) {
	if err := op.Validate(); err != nil {
		return cip.Request{}, err
	}
	path, err := op.RequestPath()
	if err != nil {
		return cip.Request{}, err
	}
	return cip.Request{
		Service: cip.SvcReadTag,
		Path:    path,
		Data:    binary.LittleEndian.AppendUint16(nil, op.Elements),
	}, nil
}

// BuildReadFragmented builds a Read Tag Fragmented request:
// [service] [path] [element count 2] [byte offset 4]
func BuildReadFragmented(op *Operation, offset uint32) (cip.Request, error) {
	if err := op.Validate(); err != nil {
		return cip.Request{}, err
	}
	path, err := op.RequestPath()
	if err != nil {
		return cip.Request{}, err
	}
	data := binary.LittleEndian.AppendUint16(nil, op.Elements)
	data = binary.LittleEndian.AppendUint32(data, offset)
	return cip.Request{
		Service: cip.SvcReadTagFragmented,
		Path:    path,
		Data:    data,
	}, nil
}

// BuildWrite builds a Write Tag request:
// [service] [path] [packed type 2|4] [element count 2] [value n]
func BuildWrite(op *Operation) (cip.Request, error) {
	if err := op.Validate(); err != nil {
		return cip.Request{}, err
	}
	path, err := op.RequestPath()
	if err != nil {
		return cip.Request{}, err
	}
	packed, err := op.Type.packed()
	if err != nil {
		return cip.Request{}, fmt.Errorf("%s %q: %w", op.Kind, op.Tag, err)
	}

	data := make([]byte, 0, len(packed)+2+len(op.Value))
	data = append(data, packed...)
	data = binary.LittleEndian.AppendUint16(data, op.Elements)
	data = append(data, op.Value...)

	return cip.Request{
		Service: cip.SvcWriteTag,
		Path:    path,
		Data:    data,
	}, nil
}

// BuildWriteFragmented builds one Write Tag Fragmented round:
// [service] [path] [packed type 2|4] [element count 2] [byte offset 4] [segment n]
func BuildWriteFragmented(op *Operation, offset uint32, segment []byte) (cip.Request, error) {
	if err := op.Validate(); err != nil {
		return cip.Request{}, err
	}
	path, err := op.RequestPath()
	if err != nil {
		return cip.Request{}, err
	}
	packed, err := op.Type.packed()
	if err != nil {
		return cip.Request{}, fmt.Errorf("%s %q: %w", op.Kind, op.Tag, err)
	}

	data := make([]byte, 0, len(packed)+6+len(segment))
	data = append(data, packed...)
	data = binary.LittleEndian.AppendUint16(data, op.Elements)
	data = binary.LittleEndian.AppendUint32(data, offset)
	data = append(data, segment...)

	return cip.Request{
		Service: cip.SvcWriteTagFragmented,
		Path:    path,
		Data:    data,
	}, nil
}

// ParseReply decodes a raw reply for the operation's kind.
func ParseReply(op *Operation, raw []byte) *Result {
	switch op.Kind {
	case KindRead, KindReadFragmented:
		return ParseReadReply(op, raw)
	case KindWrite, KindWriteFragmented, KindReadModifyWrite:
		return ParseWriteReply(op, raw)
	default:
		return failedResult(op, nil, fmt.Errorf("invalid operation kind %d", int(op.Kind)))
	}
}

// ParseReadReply decodes a read reply. Decode failures do not propagate:
// the result keeps the reply for diagnostics, clears the value, and carries
// the error.
func ParseReadReply(op *Operation, raw []byte) *Result {
	reply, err := cip.ParseReply(raw)
	if err != nil {
		return failedResult(op, nil, err)
	}
	if err := checkReplyService(op.Kind.service(), reply); err != nil {
		return failedResult(op, reply, err)
	}
	if err := reply.StatusError(); err != nil {
		return failedResult(op, reply, err)
	}

	value, err := DecodeReadPayload(op.Tag, int(op.Elements), reply.Data)
	if err != nil {
		return failedResult(op, reply, fmt.Errorf("failed to parse reply: %w", err))
	}

	r := newResult(op)
	r.Reply = reply
	r.Value = value
	return r
}

// ParseWriteReply decodes a status-only reply; writes carry no payload.
func ParseWriteReply(op *Operation, raw []byte) *Result {
	reply, err := cip.ParseReply(raw)
	if err != nil {
		return failedResult(op, nil, err)
	}
	if err := checkReplyService(op.Kind.service(), reply); err != nil {
		return failedResult(op, reply, err)
	}
	if err := reply.StatusError(); err != nil {
		return failedResult(op, reply, err)
	}

	r := newResult(op)
	r.Reply = reply
	return r
}

func checkReplyService(service byte, reply *cip.Reply) error {
	if reply.Service != service|cip.ReplyMask {
		return fmt.Errorf("unexpected reply service: 0x%02X, want 0x%02X", reply.Service, service|cip.ReplyMask)
	}
	return nil
}
