// Package eip implements the EtherNet/IP encapsulation layer: session
// registration and the framed send/receive primitives that carry CIP
// requests. It knows nothing about tag services.
package eip

import (
	"encoding/binary"
	"fmt"
)

// EtherNet/IP encapsulation commands.
const (
	CmdNop               uint16 = 0x00
	CmdRegisterSession   uint16 = 0x65
	CmdUnRegisterSession uint16 = 0x66
	CmdSendRRData        uint16 = 0x6F
	CmdSendUnitData      uint16 = 0x70
)

// encapHeaderLen is the fixed encapsulation header size.
const encapHeaderLen = 24

// encap is one EtherNet/IP encapsulated frame.
type encap struct {
	command       uint16
	length        uint16
	sessionHandle uint32
	status        uint32
	context       [8]byte
	options       uint32
	data          []byte
}

func (m *encap) bytes() []byte {
	buf := make([]byte, 0, encapHeaderLen+len(m.data))
	buf = binary.LittleEndian.AppendUint16(buf, m.command)
	buf = binary.LittleEndian.AppendUint16(buf, m.length)
	buf = binary.LittleEndian.AppendUint32(buf, m.sessionHandle)
	buf = binary.LittleEndian.AppendUint32(buf, m.status)
	buf = append(buf, m.context[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, m.options)
	buf = append(buf, m.data...)
	return buf
}

// commandData is the interface-handle/timeout wrapper carried by
// SendRRData and SendUnitData frames.
type commandData struct {
	interfaceHandle uint32
	timeout         uint16
	packet          []byte
}

func (r *commandData) bytes() []byte {
	raw := binary.LittleEndian.AppendUint32(nil, r.interfaceHandle)
	raw = binary.LittleEndian.AppendUint16(raw, r.timeout)
	raw = append(raw, r.packet...)
	return raw
}

func parseCommandData(raw []byte) (*commandData, error) {
	if len(raw) < 6 {
		return nil, fmt.Errorf("eip: command data too short: %d bytes", len(raw))
	}
	return &commandData{
		interfaceHandle: binary.LittleEndian.Uint32(raw[:4]),
		timeout:         binary.LittleEndian.Uint16(raw[4:6]),
		packet:          raw[6:],
	}, nil
}
