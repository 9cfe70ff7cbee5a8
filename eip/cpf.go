package eip

// Common Packet Format for EtherNet/IP per ODVA v1.4.

import (
	"encoding/binary"
	"fmt"
)

// Common Packet item type IDs.
const (
	ItemNullAddress      uint16 = 0x00
	ItemConnectedAddress uint16 = 0xA1
	ItemConnectedData    uint16 = 0xB1
	ItemUnconnectedData  uint16 = 0xB2
	ItemSockAddrOtoT     uint16 = 0x8000
	ItemSockAddrTtoO     uint16 = 0x8001
	ItemSequencedAddress uint16 = 0x8002
)

// CommonPacket is an ordered list of address and data items.
type CommonPacket struct {
	Items []CommonPacketItem
}

// CommonPacketItem is one CPF item: a type ID and its payload.
type CommonPacketItem struct {
	TypeID uint16
	Length uint16
	Data   []byte
}

// Bytes returns the little-endian wire form of the packet.
func (p *CommonPacket) Bytes() []byte {
	raw := binary.LittleEndian.AppendUint16(nil, uint16(len(p.Items)))
	for _, item := range p.Items {
		raw = append(raw, item.Bytes()...)
	}
	return raw
}

// Bytes returns the little-endian wire form of the item.
func (item *CommonPacketItem) Bytes() []byte {
	raw := binary.LittleEndian.AppendUint16(nil, item.TypeID)
	raw = binary.LittleEndian.AppendUint16(raw, item.Length)
	raw = append(raw, item.Data...)
	return raw
}

// UnconnectedPacket wraps a CIP request in a null address item plus an
// unconnected data item.
func UnconnectedPacket(request []byte) *CommonPacket {
	return &CommonPacket{
		Items: []CommonPacketItem{
			{TypeID: ItemNullAddress, Length: 0, Data: nil},
			{TypeID: ItemUnconnectedData, Length: uint16(len(request)), Data: request},
		},
	}
}

// ConnectedPacket wraps sequenced connected data in a connected address
// item carrying the O->T connection ID.
func ConnectedPacket(connID uint32, payload []byte) *CommonPacket {
	return &CommonPacket{
		Items: []CommonPacketItem{
			{TypeID: ItemConnectedAddress, Length: 4, Data: binary.LittleEndian.AppendUint32(nil, connID)},
			{TypeID: ItemConnectedData, Length: uint16(len(payload)), Data: payload},
		},
	}
}

// ParseCommonPacket parses the item count and items from a raw buffer.
// Item data aliases the input buffer.
func ParseCommonPacket(raw []byte) (*CommonPacket, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("eip: common packet too short: %d bytes", len(raw))
	}

	count := binary.LittleEndian.Uint16(raw[:2])
	raw = raw[2:]

	items := make([]CommonPacketItem, 0, count)
	for i := uint16(0); i < count; i++ {
		if len(raw) < 4 {
			return nil, fmt.Errorf("eip: truncated item header at item %d: %d bytes left", i, len(raw))
		}
		typeID := binary.LittleEndian.Uint16(raw[:2])
		length := binary.LittleEndian.Uint16(raw[2:4])
		if len(raw) < int(4+length) {
			return nil, fmt.Errorf("eip: item %d needs %d bytes, have %d", i, 4+length, len(raw))
		}
		items = append(items, CommonPacketItem{TypeID: typeID, Length: length, Data: raw[4 : 4+length]})
		raw = raw[4+length:]
	}

	return &CommonPacket{Items: items}, nil
}
