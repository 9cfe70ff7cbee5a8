package logix

import (
	"fmt"
	"io"
	"log/slog"

	"taglink/cip"
)

// Requester performs one synchronous CIP round trip over an established
// session. The session protocol allows a single outstanding request, so
// RoundTrip blocks until the matching reply arrives. The codec itself does
// no I/O; this is its only suspension point.
type Requester interface {
	// PayloadLimit returns the negotiated maximum CIP payload size in bytes.
	PayloadLimit() int

	// RoundTrip sends a marshalled Message Router request and returns the
	// raw Message Router reply.
	RoundTrip(request []byte) ([]byte, error)
}

// fragWriteOverhead is the fixed per-round body cost of a fragmented
// write: service code, path length byte, element count, and offset fields.
const fragWriteOverhead = 9

// fragReadState is the transient state of one fragmented read: the running
// byte offset, the type header from the first round, and the ordered value
// chunks. It lives for one logical operation only.
type fragReadState struct {
	offset     uint32
	typeHeader []byte
	chunks     [][]byte
}

// apply folds one round's reply into the state and reports whether the
// transfer is complete. Offsets advance by the wire byte length of each
// chunk, not by element counts.
func (s *fragReadState) apply(reply *cip.Reply) (done bool, err error) {
	if err := reply.StatusError(); err != nil {
		return true, err
	}

	typeHeader, chunk, err := splitReadPayload(reply.Data)
	if err != nil {
		return true, err
	}
	if s.typeHeader == nil {
		s.typeHeader = append([]byte{}, typeHeader...)
	}
	s.chunks = append(s.chunks, chunk)
	s.offset += uint32(len(chunk))

	return !reply.Partial(), nil
}

// assembled returns the concatenated payload of all rounds, type header
// included, ready for value decoding.
func (s *fragReadState) assembled() []byte {
	size := len(s.typeHeader)
	for _, c := range s.chunks {
		size += len(c)
	}
	out := make([]byte, 0, size)
	out = append(out, s.typeHeader...)
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

// ExecuteFragmented drives a fragmented operation to completion and
// returns once a terminal result is reached.
func ExecuteFragmented(rt Requester, op *Operation, log *slog.Logger) *Result {
	switch op.Kind {
	case KindReadFragmented:
		return ExecuteReadFragmented(rt, op, log)
	case KindWriteFragmented:
		return ExecuteWriteFragmented(rt, op, log)
	default:
		return failedResult(op, nil, fmt.Errorf("%s %q: not a fragmented operation", op.Kind, op.Tag))
	}
}

// ExecuteReadFragmented loops Read Tag Fragmented rounds, advancing the
// byte offset while the target reports partial transfers, then reassembles
// the chunks and decodes the value against the original element count.
// A failed round terminates the transfer; partial data is never returned.
func ExecuteReadFragmented(rt Requester, op *Operation, log *slog.Logger) *Result {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	state := &fragReadState{}
	var lastReply *cip.Reply
	var roundErr error

	for round := 1; ; round++ {
		req, err := BuildReadFragmented(op, state.offset)
		if err != nil {
			return failedResult(op, nil, err)
		}

		raw, err := rt.RoundTrip(req.Marshal())
		if err != nil {
			// Transport failure is terminal; no partial-success salvage.
			return failedResult(op, lastReply, fmt.Errorf("read fragmented %q: %w", op.Tag, err))
		}

		reply, err := cip.ParseReply(raw)
		if err != nil {
			return failedResult(op, lastReply, err)
		}
		lastReply = reply

		if err := checkReplyService(cip.SvcReadTagFragmented, reply); err != nil {
			return failedResult(op, reply, err)
		}

		done, err := state.apply(reply)
		log.Debug("read fragment round",
			"tag", op.Tag, "round", round, "offset", state.offset, "status", reply.Status)
		if err != nil {
			roundErr = err
			break
		}
		if done {
			break
		}
	}

	if roundErr != nil {
		return failedResult(op, lastReply, roundErr)
	}

	value, err := DecodeReadPayload(op.Tag, int(op.Elements), state.assembled())
	if err != nil {
		return failedResult(op, lastReply, fmt.Errorf("failed to parse reply: %w", err))
	}

	r := newResult(op)
	r.Reply = lastReply
	r.Value = value
	log.Debug("read fragmented complete", "tag", op.Tag, "bytes", len(value.Bytes))
	return r
}

// ExecuteWriteFragmented splits the operation's value into segments that
// fit the per-round budget and sends one Write Tag Fragmented round per
// segment. The first failed round terminates the transfer; the final
// round's status-only reply is the logical result.
func ExecuteWriteFragmented(rt Requester, op *Operation, log *slog.Logger) *Result {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := op.Validate(); err != nil {
		return failedResult(op, nil, err)
	}
	path, err := op.RequestPath()
	if err != nil {
		return failedResult(op, nil, err)
	}
	packed, err := op.Type.packed()
	if err != nil {
		return failedResult(op, nil, fmt.Errorf("%s %q: %w", op.Kind, op.Tag, err))
	}

	budget, err := writeSegmentBudget(rt.PayloadLimit(), len(path), len(packed), op.Type)
	if err != nil {
		return failedResult(op, nil, fmt.Errorf("%s %q: %w", op.Kind, op.Tag, err))
	}

	var result *Result
	offset := uint32(0)
	segments := splitSegments(op.Value, budget)

	for i, segment := range segments {
		req, err := BuildWriteFragmented(op, offset, segment)
		if err != nil {
			return failedResult(op, nil, err)
		}

		raw, err := rt.RoundTrip(req.Marshal())
		if err != nil {
			return failedResult(op, nil, fmt.Errorf("write fragmented %q: %w", op.Tag, err))
		}

		result = ParseWriteReply(op, raw)
		log.Debug("write fragment round",
			"tag", op.Tag, "round", i+1, "offset", offset, "bytes", len(segment))
		if !result.OK() {
			return result
		}

		offset += uint32(len(segment))
	}

	log.Debug("write fragmented complete", "tag", op.Tag, "bytes", offset, "rounds", len(segments))
	return result
}

// writeSegmentBudget computes the per-round value byte budget. For atomic
// types the budget is rounded down to a whole number of elements so
// segment boundaries never split an element.
func writeSegmentBudget(limit, pathLen, packedLen int, t TypeInfo) (int, error) {
	budget := limit - (pathLen + packedLen + fragWriteOverhead)
	if budget < 1 {
		return 0, fmt.Errorf("payload limit %d leaves no room for data", limit)
	}
	if !t.Struct && t.Size > 0 {
		budget -= budget % t.Size
		if budget == 0 {
			return 0, fmt.Errorf("payload limit %d below one %s element", limit, t.Name)
		}
	}
	return budget, nil
}

// splitSegments cuts value into consecutive segments of at most budget
// bytes. A zero-length value still yields one empty segment: the target
// requires at least one write to apply.
func splitSegments(value []byte, budget int) [][]byte {
	if len(value) == 0 {
		return [][]byte{{}}
	}
	segments := make([][]byte, 0, (len(value)+budget-1)/budget)
	for start := 0; start < len(value); start += budget {
		end := start + budget
		if end > len(value) {
			end = len(value)
		}
		segments = append(segments, value[start:end])
	}
	return segments
}
