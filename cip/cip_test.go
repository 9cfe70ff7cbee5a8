package cip

import (
	"bytes"
	"strings"
	"testing"
)

func TestRequestMarshal(t *testing.T) {
	path, err := Path().Symbol("MyTag").Build()
	if err != nil {
		t.Fatal(err)
	}

	req := Request{
		Service: SvcReadTag,
		Path:    path,
		Data:    []byte{0x01, 0x00},
	}

	want := []byte{
		0x4C,       // service
		0x04,       // path length in words
		0x91, 0x05, // symbolic segment, 5 chars
		'M', 'y', 'T', 'a', 'g',
		0x00,       // pad to word boundary
		0x01, 0x00, // element count
	}
	if got := req.Marshal(); !bytes.Equal(got, want) {
		t.Errorf("Marshal() = % X, want % X", got, want)
	}
}

func TestParseReply(t *testing.T) {
	t.Run("success with payload", func(t *testing.T) {
		raw := []byte{0xCC, 0x00, 0x00, 0x00, 0xC4, 0x00, 0x2A, 0x00, 0x00, 0x00}
		reply, err := ParseReply(raw)
		if err != nil {
			t.Fatal(err)
		}
		if reply.Service != 0xCC {
			t.Errorf("Service = 0x%02X", reply.Service)
		}
		if !reply.OK() {
			t.Error("OK() = false")
		}
		if len(reply.ExtStatus) != 0 {
			t.Errorf("ExtStatus = %v", reply.ExtStatus)
		}
		if !bytes.Equal(reply.Data, raw[4:]) {
			t.Errorf("Data = % X", reply.Data)
		}
	})

	t.Run("failure with extended status", func(t *testing.T) {
		raw := []byte{0xCC, 0x00, 0x04, 0x01, 0x04, 0x21}
		reply, err := ParseReply(raw)
		if err != nil {
			t.Fatal(err)
		}
		if reply.Status != StatusPathSegmentError {
			t.Errorf("Status = 0x%02X", reply.Status)
		}
		if len(reply.ExtStatus) != 1 || reply.ExtStatus[0] != ExtStatusTagNotFound {
			t.Errorf("ExtStatus = %v", reply.ExtStatus)
		}
		if len(reply.Data) != 0 {
			t.Errorf("Data = % X", reply.Data)
		}
	})

	t.Run("too short", func(t *testing.T) {
		for _, raw := range [][]byte{nil, {0xCC}, {0xCC, 0x00, 0x00}} {
			if _, err := ParseReply(raw); err == nil {
				t.Errorf("ParseReply(% X) expected error", raw)
			}
		}
	})

	t.Run("truncated extended status", func(t *testing.T) {
		raw := []byte{0xCC, 0x00, 0xFF, 0x02, 0x04, 0x21}
		if _, err := ParseReply(raw); err == nil {
			t.Error("expected error for truncated extended status")
		}
	})
}

func TestReplyStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  byte
		ok      bool
		partial bool
		wantErr bool
	}{
		{"success", StatusSuccess, true, false, false},
		{"partial transfer", StatusPartialTransfer, false, true, false},
		{"path segment error", StatusPathSegmentError, false, false, true},
		{"general error", StatusGeneralError, false, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &Reply{Status: tc.status}
			if r.OK() != tc.ok {
				t.Errorf("OK() = %v", r.OK())
			}
			if r.Partial() != tc.partial {
				t.Errorf("Partial() = %v", r.Partial())
			}
			if (r.StatusError() != nil) != tc.wantErr {
				t.Errorf("StatusError() = %v", r.StatusError())
			}
		})
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Status: StatusGeneralError, ExtStatus: []uint16{ExtStatusTagNotFound}}
	msg := err.Error()
	if !strings.Contains(msg, "General Error") || !strings.Contains(msg, "Tag Not Found") {
		t.Errorf("Error() = %q", msg)
	}

	err = &StatusError{Status: StatusServiceNotSupport}
	if !strings.Contains(err.Error(), "Service Not Supported") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestConnectionSequence(t *testing.T) {
	conn := &Connection{OTConnID: 0x11223344}

	first := conn.NextSequence()
	second := conn.NextSequence()
	if second != first+1 {
		t.Errorf("sequence did not advance: %d then %d", first, second)
	}

	payload := []byte{0x4C, 0x03}
	wrapped := conn.WrapConnected(payload)
	if len(wrapped) != len(payload)+2 {
		t.Fatalf("wrapped length = %d", len(wrapped))
	}

	seq, got, err := conn.UnwrapConnected(wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if seq != first+2 {
		t.Errorf("seq = %d, want %d", seq, first+2)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = % X", got)
	}

	if _, _, err := conn.UnwrapConnected([]byte{0x01}); err == nil {
		t.Error("expected error for short connected data")
	}
}
