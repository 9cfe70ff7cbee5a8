package cip

import "fmt"

// StatusError is a failed CIP reply: a general status plus any extended
// status words returned by the target.
type StatusError struct {
	Status    byte
	ExtStatus []uint16
}

func (e *StatusError) Error() string {
	if len(e.ExtStatus) > 0 && e.ExtStatus[0] != 0 {
		return fmt.Sprintf("CIP error: %s (0x%02X), extended: %s (0x%04X)",
			StatusName(e.Status), e.Status, ExtStatusName(e.ExtStatus[0]), e.ExtStatus[0])
	}
	return fmt.Sprintf("CIP error: %s (0x%02X)", StatusName(e.Status), e.Status)
}

// StatusName returns the human-readable name for a CIP general status code.
func StatusName(status byte) string {
	switch status {
	case StatusSuccess:
		return "Success"
	case StatusConnectionFailure:
		return "Connection Failure"
	case 0x02:
		return "Resource Unavailable"
	case 0x03:
		return "Invalid Parameter"
	case StatusPathSegmentError:
		return "Path Segment Error"
	case StatusPathUnknown:
		return "Path Unknown"
	case StatusPartialTransfer:
		return "Partial Transfer"
	case 0x07:
		return "Connection Lost"
	case StatusServiceNotSupport:
		return "Service Not Supported"
	case StatusInvalidAttrValue:
		return "Invalid Attribute Value"
	case StatusAlreadyInState:
		return "Already In Requested State"
	case StatusObjectStateConfl:
		return "Object State Conflict"
	case 0x0D:
		return "Object Already Exists"
	case StatusAttrNotSettable:
		return "Attribute Not Settable"
	case StatusPrivilegeViolat:
		return "Privilege Violation"
	case StatusDeviceStateConfl:
		return "Device State Conflict"
	case StatusReplyDataTooLarge:
		return "Reply Data Too Large"
	case StatusNotEnoughData:
		return "Not Enough Data"
	case StatusAttrNotSupported:
		return "Attribute Not Supported"
	case StatusTooMuchData:
		return "Too Much Data"
	case StatusObjectNotExist:
		return "Object Does Not Exist"
	case StatusFragNotSupported:
		return "Fragmentation Not Supported"
	case StatusInvalidRequest:
		return "Invalid Request"
	case 0x1C:
		return "Not Enough Data Received"
	case StatusEmbeddedService:
		return "Embedded Service Error"
	case StatusMemberNotSettable:
		return "Member Not Settable"
	case 0x20:
		return "Invalid Parameter Type"
	case 0x26:
		return "Invalid Path"
	case StatusGeneralError:
		return "General Error"
	default:
		return fmt.Sprintf("Status 0x%02X", status)
	}
}

// ExtStatusName returns the human-readable name for a Logix extended status.
func ExtStatusName(ext uint16) string {
	switch ext {
	case ExtStatusIllegalType:
		return "Illegal Data Type"
	case ExtStatusTagNotFound:
		return "Tag Not Found"
	case ExtStatusTagReadOnly:
		return "Tag Read Only"
	case ExtStatusSizeTooSmall:
		return "Size Too Small"
	case ExtStatusSizeTooLarge:
		return "Size Too Large"
	case ExtStatusOffsetError:
		return "Offset Out of Range"
	case 0x0100:
		return "Connection In Use"
	case 0x0103:
		return "Transport Class Not Supported"
	case 0x0107:
		return "Connection Not Found"
	case 0x0109:
		return "Invalid Connection Size"
	case 0x0203:
		return "Connection Timed Out"
	case 0x0204:
		return "Unconnected Send Timed Out"
	default:
		return fmt.Sprintf("Extended Status 0x%04X", ext)
	}
}
