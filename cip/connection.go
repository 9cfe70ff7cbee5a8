package cip

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Connection holds the identifiers of an established CIP connection.
// Negotiating the connection (Forward Open/Close) is the session owner's
// job; this layer only borrows the IDs and the sequence counter.
type Connection struct {
	OTConnID     uint32 // Originator -> Target connection ID
	TOConnID     uint32 // Target -> Originator connection ID
	SerialNumber uint16 // Connection serial number
	Size         uint16 // Negotiated connection size in bytes

	seq uint32 // Atomic sequence counter (low 16 bits used)
}

// NextSequence returns the next sequence number for connected messaging.
// The session protocol requires every connected message to carry a fresh
// sequence number and allows only one outstanding request at a time.
func (c *Connection) NextSequence() uint16 {
	return uint16(atomic.AddUint32(&c.seq, 1))
}

// WrapConnected prefixes the next sequence number to a CIP payload.
func (c *Connection) WrapConnected(payload []byte) []byte {
	out := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(out[0:2], c.NextSequence())
	copy(out[2:], payload)
	return out
}

// UnwrapConnected splits a connected data item into sequence number and
// CIP reply payload.
func (c *Connection) UnwrapConnected(raw []byte) (seq uint16, payload []byte, err error) {
	if len(raw) < 2 {
		return 0, nil, fmt.Errorf("cip: connected data too short: %d bytes", len(raw))
	}
	return binary.LittleEndian.Uint16(raw[0:2]), raw[2:], nil
}
