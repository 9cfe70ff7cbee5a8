package logix

import (
	"encoding/binary"
	"fmt"

	"taglink/cip"
)

// maxBatchSize caps the number of operations in one Multiple Service
// Packet; the 2-byte offset table cannot address more anyway.
const maxBatchSize = 200

// BuildMulti packs independent read operations into one Multiple Service
// Packet addressed to the Message Router. Only plain reads can be batched:
// write and fragmented bodies are not supported inside a batch.
//
// Keeping the combined message inside the connection's payload limit is
// the caller's job; retry with fewer operations when it does not fit.
func BuildMulti(ops []*Operation) (cip.Request, error) {
	if len(ops) == 0 {
		return cip.Request{}, fmt.Errorf("multi service: no operations")
	}
	if len(ops) > maxBatchSize {
		return cip.Request{}, fmt.Errorf("multi service: too many operations (%d), max %d", len(ops), maxBatchSize)
	}

	segments := make([][]byte, 0, len(ops))
	for _, op := range ops {
		if op.Kind != KindRead {
			return cip.Request{}, fmt.Errorf("multi service: %s %q: only plain reads can be batched", op.Kind, op.Tag)
		}
		req, err := BuildRead(op)
		if err != nil {
			return cip.Request{}, err
		}
		segments = append(segments, req.Marshal())
	}

	// Offset table: [count 2] [offset 2 per operation]; the first offset
	// points immediately past the table.
	tableSize := 2 + 2*len(ops)
	data := binary.LittleEndian.AppendUint16(nil, uint16(len(ops)))
	offset := tableSize
	for _, seg := range segments {
		data = binary.LittleEndian.AppendUint16(data, uint16(offset))
		offset += len(seg)
	}
	for _, seg := range segments {
		data = append(data, seg...)
	}

	path, err := cip.Path().Class(cip.ClassMessageRouter).Instance(cip.InstanceMessageRouter).Build()
	if err != nil {
		return cip.Request{}, err
	}

	return cip.Request{
		Service: cip.SvcMultipleServicePacket,
		Path:    path,
		Data:    data,
	}, nil
}

// ParseMulti splits a Multiple Service Packet reply into per-operation
// results, in request order. Each slice between consecutive offsets is a
// complete Message Router reply and is delegated to the single-operation
// parser. A general status of Embedded Service Error means some
// sub-services failed; the per-operation results carry the detail.
func ParseMulti(ops []*Operation, raw []byte) ([]*Result, error) {
	reply, err := cip.ParseReply(raw)
	if err != nil {
		return nil, err
	}
	if err := checkReplyService(cip.SvcMultipleServicePacket, reply); err != nil {
		return nil, err
	}
	if reply.Status != cip.StatusSuccess && reply.Status != cip.StatusEmbeddedService {
		return nil, reply.StatusError()
	}

	data := reply.Data
	if len(data) < 2 {
		return nil, fmt.Errorf("multi service reply too short: %d bytes", len(data))
	}
	count := int(binary.LittleEndian.Uint16(data[:2]))
	if count != len(ops) {
		return nil, fmt.Errorf("multi service reply count %d, want %d", count, len(ops))
	}

	tableSize := 2 + 2*count
	if len(data) < tableSize {
		return nil, fmt.Errorf("multi service reply too short for %d offsets", count)
	}

	offsets := make([]int, count)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint16(data[2+i*2:]))
	}

	// Slice i spans [offset[i], offset[i+1]); the last runs to the end.
	// Offsets must be strictly increasing and inside the buffer.
	results := make([]*Result, count)
	for i, op := range ops {
		start := offsets[i]
		end := len(data)
		if i+1 < count {
			end = offsets[i+1]
		}
		if start < tableSize || start >= end || end > len(data) {
			return nil, fmt.Errorf("multi service reply: invalid offset %d for operation %d", start, i)
		}
		results[i] = ParseReply(op, data[start:end])
	}

	return results, nil
}
