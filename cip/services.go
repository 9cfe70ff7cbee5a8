package cip

// Logix-specific CIP services (Allen-Bradley extensions to CIP).
const (
	// Read Tag Service - reads tag data by symbolic name
	SvcReadTag byte = 0x4C

	// Write Tag Service - writes tag data by symbolic name
	SvcWriteTag byte = 0x4D

	// Read Tag Fragmented - for large data transfers
	SvcReadTagFragmented byte = 0x52

	// Write Tag Fragmented - for large data transfers
	SvcWriteTagFragmented byte = 0x53

	// Read Modify Write Tag - masked bit-level write
	SvcReadModifyWriteTag byte = 0x4E

	// Multiple Service Packet - batch multiple requests
	SvcMultipleServicePacket byte = 0x0A
)

// ReplyMask is set on the service code of every reply.
const ReplyMask byte = 0x80

// Unconnected Send, used to route requests through the Connection Manager.
const SvcUnconnectedSend byte = 0x52

// Message Router object, the target of Multiple Service Packet requests.
const (
	ClassMessageRouter    byte = 0x02
	InstanceMessageRouter byte = 0x01
)

// Connection Manager object, the target of Unconnected Send requests.
const (
	ClassConnectionManager    byte = 0x06
	InstanceConnectionManager byte = 0x01
)

// Symbol Object class, used for instance-ID tag addressing.
const ClassSymbolObject byte = 0x6B

// CIP general status codes.
const (
	StatusSuccess           byte = 0x00
	StatusConnectionFailure byte = 0x01
	StatusPathSegmentError  byte = 0x04
	StatusPathUnknown       byte = 0x05
	StatusPartialTransfer   byte = 0x06 // More data available
	StatusServiceNotSupport byte = 0x08
	StatusInvalidAttrValue  byte = 0x09
	StatusAlreadyInState    byte = 0x0A
	StatusObjectStateConfl  byte = 0x0C
	StatusAttrNotSettable   byte = 0x0E
	StatusPrivilegeViolat   byte = 0x0F
	StatusDeviceStateConfl  byte = 0x10
	StatusReplyDataTooLarge byte = 0x11
	StatusNotEnoughData     byte = 0x13
	StatusAttrNotSupported  byte = 0x14
	StatusTooMuchData       byte = 0x15
	StatusObjectNotExist    byte = 0x16
	StatusFragNotSupported  byte = 0x17
	StatusInvalidRequest    byte = 0x1A
	StatusEmbeddedService   byte = 0x1E // One or more embedded services failed
	StatusMemberNotSettable byte = 0x1F
	StatusGeneralError      byte = 0xFF
)

// Logix extended status codes (second-level detail, usually under 0xFF).
const (
	ExtStatusIllegalType  uint16 = 0x2101 // Wrong data type for tag
	ExtStatusTagNotFound  uint16 = 0x2104 // Tag does not exist
	ExtStatusTagReadOnly  uint16 = 0x2105 // Cannot write to tag
	ExtStatusSizeTooSmall uint16 = 0x2107 // Data too small
	ExtStatusSizeTooLarge uint16 = 0x2108 // Data too large
	ExtStatusOffsetError  uint16 = 0x2109 // Offset out of range
)
