package logix

import (
	"bytes"
	"encoding/binary"
	"testing"

	"taglink/cip"
)

func sintInfo(t *testing.T) TypeInfo {
	t.Helper()
	info, err := AtomicType("SINT")
	if err != nil {
		t.Fatal(err)
	}
	return info
}

func dintInfo(t *testing.T) TypeInfo {
	t.Helper()
	info, err := AtomicType("DINT")
	if err != nil {
		t.Fatal(err)
	}
	return info
}

func TestMaskedWriteIdentity(t *testing.T) {
	m, err := NewMaskedWrite("Flags", sintInfo(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	or, and := m.Masks()
	if or != 0 {
		t.Errorf("initial OR mask = 0x%X, want 0", or)
	}
	if and != ^uint64(0) {
		t.Errorf("initial AND mask = 0x%X, want all ones", and)
	}
}

func TestMaskedWriteSetBit(t *testing.T) {
	t.Run("set true", func(t *testing.T) {
		m, _ := NewMaskedWrite("Flags", sintInfo(t), 0)
		m.SetBit(3, true)
		or, and := m.Masks()
		if or != 0x08 {
			t.Errorf("OR = 0x%X, want 0x08", or)
		}
		if byte(and) != 0xFF {
			t.Errorf("AND low byte = 0x%X, want 0xFF", byte(and))
		}
	})

	t.Run("set false", func(t *testing.T) {
		m, _ := NewMaskedWrite("Flags", sintInfo(t), 0)
		m.SetBit(3, false)
		or, and := m.Masks()
		if or != 0 {
			t.Errorf("OR = 0x%X, want 0", or)
		}
		if byte(and) != 0xF7 {
			t.Errorf("AND low byte = 0x%X, want 0xF7", byte(and))
		}
	})

	t.Run("last write wins", func(t *testing.T) {
		m, _ := NewMaskedWrite("Flags", sintInfo(t), 0)
		m.SetBit(3, true)
		m.SetBit(3, false)
		or, and := m.Masks()
		if or&0x08 != 0 || and&0x08 != 0 {
			t.Errorf("bit 3 should end cleared: OR 0x%X AND 0x%X", or, and)
		}
	})

	t.Run("index wraps at type width", func(t *testing.T) {
		m, _ := NewMaskedWrite("Counters", dintInfo(t), 0)
		m.SetBit(35, true) // 35 mod 32 = 3
		or, _ := m.Masks()
		if or != 0x08 {
			t.Errorf("OR = 0x%X, want 0x08", or)
		}
		if got := m.Bits(); len(got) != 1 || got[0] != 3 {
			t.Errorf("Bits() = %v", got)
		}
	})

	t.Run("mixed bits on dword", func(t *testing.T) {
		info, err := AtomicType("DWORD")
		if err != nil {
			t.Fatal(err)
		}
		m, _ := NewMaskedWrite("Status", info, 0)
		m.SetBit(0, true)
		m.SetBit(1, false)
		or, and := m.Masks()
		if or != 0x00000001 {
			t.Errorf("OR = 0x%08X, want 0x00000001", or)
		}
		if uint32(and) != 0xFFFFFFFD {
			t.Errorf("AND = 0x%08X, want 0xFFFFFFFD", uint32(and))
		}
	})
}

func TestMaskedWriteBuild(t *testing.T) {
	m, err := NewMaskedWrite("Status", dintInfo(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	m.SetBit(0, true)
	m.SetBit(1, false)

	req, err := m.Build()
	if err != nil {
		t.Fatal(err)
	}
	if req.Service != cip.SvcReadModifyWriteTag {
		t.Errorf("service = 0x%02X", req.Service)
	}

	// [mask size 2] [or 4] [and 4], both masks cut to the declared width.
	if len(req.Data) != 10 {
		t.Fatalf("body = % X", req.Data)
	}
	if binary.LittleEndian.Uint16(req.Data) != 4 {
		t.Errorf("mask size = %d", binary.LittleEndian.Uint16(req.Data))
	}
	if !bytes.Equal(req.Data[2:6], []byte{0x01, 0x00, 0x00, 0x00}) {
		t.Errorf("OR mask = % X", req.Data[2:6])
	}
	if !bytes.Equal(req.Data[6:10], []byte{0xFD, 0xFF, 0xFF, 0xFF}) {
		t.Errorf("AND mask = % X", req.Data[6:10])
	}
}

func TestMaskedWriteRejectsUnmaskableTypes(t *testing.T) {
	if _, err := NewMaskedWrite("Recipe", StructType(0x10, 88), 0); err == nil {
		t.Error("structures have no mask width")
	}
	if _, err := NewMaskedWrite("Name", TypeInfo{Name: "STRING"}, 0); err == nil {
		t.Error("variable length types have no mask width")
	}
}

func TestMaskedWriteExecute(t *testing.T) {
	m, err := NewMaskedWrite("Status", dintInfo(t), 3)
	if err != nil {
		t.Fatal(err)
	}
	m.SetBit(5, true)

	rt := &scriptedRequester{
		limit:   480,
		replies: [][]byte{replyBytes(cip.SvcReadModifyWriteTag, cip.StatusSuccess, nil, nil)},
	}

	result := m.Execute(rt)
	if !result.OK() {
		t.Fatalf("Err = %v", result.Err)
	}
	if result.RequestID != 3 {
		t.Errorf("RequestID = %d", result.RequestID)
	}
	if len(rt.requests) != 1 || rt.requests[0][0] != cip.SvcReadModifyWriteTag {
		t.Errorf("requests = %v", rt.requests)
	}
}
