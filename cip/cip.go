package cip

import (
	"encoding/binary"
	"fmt"
)

// Request is a single Message Router request: service code, request path,
// and a service-specific body. Once marshalled it is never mutated.
type Request struct {
	Service byte
	Path    EPath
	Data    []byte
}

// Marshal encodes the request as [service 1] [path words 1] [path n] [body n].
func (r Request) Marshal() []byte {
	out := make([]byte, 0, 2+len(r.Path)+len(r.Data))
	out = append(out, r.Service)
	out = append(out, r.Path.WordLen())
	out = append(out, r.Path...)
	out = append(out, r.Data...)
	return out
}

// Reply is a parsed Message Router reply.
// Wire format: [reply service 1] [reserved 1] [status 1] [addl status words 1]
// [addl status 2n] [data n]
type Reply struct {
	Service   byte     // reply service code (request service | 0x80)
	Status    byte     // general status
	ExtStatus []uint16 // additional status words (present on failure)
	Data      []byte   // service payload
}

// ParseReply parses the fixed reply header and extended status words.
// The payload is returned as a sub-slice of raw, not a copy.
func ParseReply(raw []byte) (*Reply, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("cip: reply too short: %d bytes", len(raw))
	}

	addlWords := int(raw[3])
	dataStart := 4 + addlWords*2
	if len(raw) < dataStart {
		return nil, fmt.Errorf("cip: reply truncated: %d additional status words, %d bytes", addlWords, len(raw))
	}

	reply := &Reply{
		Service: raw[0],
		Status:  raw[2],
	}
	for i := 0; i < addlWords; i++ {
		reply.ExtStatus = append(reply.ExtStatus, binary.LittleEndian.Uint16(raw[4+i*2:]))
	}
	reply.Data = raw[dataStart:]

	return reply, nil
}

// OK reports whether the reply carries a Success general status.
func (r *Reply) OK() bool {
	return r.Status == StatusSuccess
}

// Partial reports whether the target signalled a partial transfer (0x06),
// meaning more data is pending. Partial replies are not failures.
func (r *Reply) Partial() bool {
	return r.Status == StatusPartialTransfer
}

// StatusError returns a *StatusError for failed replies, nil otherwise.
// Partial transfer is not treated as a failure.
func (r *Reply) StatusError() error {
	if r.Status == StatusSuccess || r.Status == StatusPartialTransfer {
		return nil
	}
	return &StatusError{Status: r.Status, ExtStatus: r.ExtStatus}
}
