package decoder

import (
	"errors"
	"testing"

	"firestige.xyz/dnsrtt/internal/core"
)

func TestDecodeDNSHeader(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		id       uint16
		response bool
	}{
		{
			name:    "standard query",
			payload: []byte{0x12, 0x34, 0x01, 0x00, 0, 1, 0, 0, 0, 0, 0, 0},
			id:      0x1234,
		},
		{
			name:     "response with rd/ra",
			payload:  []byte{0x12, 0x34, 0x81, 0x80, 0, 1, 0, 1, 0, 0, 0, 0},
			id:       0x1234,
			response: true,
		},
		{
			name:     "qr only",
			payload:  []byte{0xFF, 0xFF, 0x80, 0x00, 0, 0, 0, 0, 0, 0, 0, 0, 0xAA},
			id:       0xFFFF,
			response: true,
		},
		{
			name:    "opcode bits do not set qr",
			payload: []byte{0x00, 0x01, 0x78, 0x00, 0, 0, 0, 0, 0, 0, 0, 0},
			id:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := decodeDNSHeader(tt.payload)
			if err != nil {
				t.Fatalf("decodeDNSHeader failed: %v", err)
			}
			if h.ID != tt.id {
				t.Errorf("Expected ID 0x%04x, got 0x%04x", tt.id, h.ID)
			}
			if h.Response != tt.response {
				t.Errorf("Expected Response %v, got %v", tt.response, h.Response)
			}
		})
	}
}

func TestDecodeDNSHeaderTooShort(t *testing.T) {
	for n := 0; n < dnsHeaderLen; n++ {
		if _, err := decodeDNSHeader(make([]byte, n)); !errors.Is(err, core.ErrPacketTooShort) {
			t.Errorf("len %d: expected ErrPacketTooShort, got %v", n, err)
		}
	}
}
