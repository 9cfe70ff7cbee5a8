package logix

import (
	"bytes"
	"encoding/binary"
	"testing"

	"taglink/cip"
)

func TestPayloadLimit(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want int
	}{
		{"default", nil, 480},
		{"explicit override", []Option{WithPayloadLimit(1400)}, 1400},
		{"from connection size", []Option{WithConnection(&cip.Connection{Size: 4002})}, 3902},
		{"tiny connection falls back", []Option{WithConnection(&cip.Connection{Size: 64})}, 480},
		{
			"override beats connection",
			[]Option{WithConnection(&cip.Connection{Size: 4002}), WithPayloadLimit(240)},
			240,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClient(nil, tc.opts...)
			if got := c.PayloadLimit(); got != tc.want {
				t.Errorf("PayloadLimit() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWrapUnconnectedSend(t *testing.T) {
	request := []byte{0x4C, 0x03, 0x91, 0x04, 'T', 'a', 'n', 'k', 0x01, 0x00}
	route := []byte{0x01, 0x00}

	raw := wrapUnconnectedSend(request, route)

	// Outer request: Unconnected Send to the Connection Manager.
	if raw[0] != cip.SvcUnconnectedSend {
		t.Errorf("service = 0x%02X", raw[0])
	}
	if !bytes.Equal(raw[2:6], []byte{0x20, 0x06, 0x24, 0x01}) {
		t.Errorf("path = % X", raw[2:6])
	}

	body := raw[6:]
	if body[0] != 0x0A || body[1] != 0x05 {
		t.Errorf("timing = % X", body[:2])
	}
	if binary.LittleEndian.Uint16(body[2:4]) != uint16(len(request)) {
		t.Errorf("embedded size = %d", binary.LittleEndian.Uint16(body[2:4]))
	}
	if !bytes.Equal(body[4:4+len(request)], request) {
		t.Errorf("embedded request = % X", body[4:4+len(request)])
	}

	// Even-length request needs no pad: route words follow directly.
	tail := body[4+len(request):]
	if tail[0] != 0x01 || tail[1] != 0x00 {
		t.Errorf("route header = % X", tail[:2])
	}
	if !bytes.Equal(tail[2:], route) {
		t.Errorf("route = % X", tail[2:])
	}
}

func TestWrapUnconnectedSendPadsOddRequest(t *testing.T) {
	request := []byte{0x4C, 0x03, 0x91} // odd length
	raw := wrapUnconnectedSend(request, []byte{0x01, 0x00})

	body := raw[6:]
	if body[4+len(request)] != 0x00 {
		t.Errorf("missing pad byte after odd-length request")
	}
	if body[4+len(request)+1] != 0x01 {
		t.Errorf("route word count misplaced: % X", body)
	}
}

func TestUnwrapUnconnectedSend(t *testing.T) {
	embedded := replyBytes(cip.SvcReadTag, cip.StatusSuccess, nil, readPayload(TypeDINT, []byte{42, 0, 0, 0}))

	t.Run("embedded reply passes through", func(t *testing.T) {
		// The router forwards the embedded service's reply on success.
		got, err := unwrapUnconnectedSend(embedded)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, embedded) {
			t.Errorf("reply = % X", got)
		}
	})

	t.Run("fragmented reply shares the service code", func(t *testing.T) {
		// 0xD2 with a good status is a Read Tag Fragmented reply, not a
		// router error.
		raw := replyBytes(cip.SvcReadTagFragmented, cip.StatusPartialTransfer, nil, readPayload(TypeDINT, []byte{1, 0, 0, 0}))
		got, err := unwrapUnconnectedSend(raw)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, raw) {
			t.Errorf("reply = % X", got)
		}
	})

	t.Run("routing failure", func(t *testing.T) {
		raw := replyBytes(cip.SvcUnconnectedSend, cip.StatusConnectionFailure, []uint16{0x0204}, nil)
		if _, err := unwrapUnconnectedSend(raw); err == nil {
			t.Error("expected routing error")
		}
	})
}

func TestTypeCache(t *testing.T) {
	c := NewClient(nil)

	if _, ok := c.TypeOf("Tank"); ok {
		t.Error("cache should start empty")
	}

	c.cacheType("Tank", &TagValue{Name: "Tank", DataType: TypeDINT, Bytes: []byte{1, 0, 0, 0}, Count: 1})
	info, ok := c.TypeOf("Tank")
	if !ok || info.Name != "DINT" || info.Size != 4 {
		t.Errorf("TypeOf() = %+v, %v", info, ok)
	}

	c.cacheType("Recipe", &TagValue{Name: "Recipe", DataType: TypeStructureMask, Handle: 0x01FE, Count: 1})
	info, ok = c.TypeOf("Recipe")
	if !ok || !info.Struct || info.Handle != 0x01FE {
		t.Errorf("TypeOf() = %+v, %v", info, ok)
	}
}
