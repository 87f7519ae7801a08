package decoder

import (
	"errors"
	"testing"

	"firestige.xyz/dnsrtt/internal/core"
)

func TestDecodeEthernetBasic(t *testing.T) {
	data := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, // Dst MAC
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, // Src MAC
		0x08, 0x00, // EtherType: IPv4
		0x45, 0x00, // Payload (start of IP header)
	}

	eth, payload, err := decodeEthernet(data)
	if err != nil {
		t.Fatalf("decodeEthernet failed: %v", err)
	}

	expectedDstMAC := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	if eth.DstMAC != expectedDstMAC {
		t.Errorf("Expected DstMAC %v, got %v", expectedDstMAC, eth.DstMAC)
	}

	expectedSrcMAC := [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	if eth.SrcMAC != expectedSrcMAC {
		t.Errorf("Expected SrcMAC %v, got %v", expectedSrcMAC, eth.SrcMAC)
	}

	if eth.EtherType != 0x0800 {
		t.Errorf("Expected EtherType 0x0800, got 0x%04x", eth.EtherType)
	}

	if len(payload) != 2 {
		t.Errorf("Expected payload length 2, got %d", len(payload))
	}
}

func TestDecodeEthernetExactHeader(t *testing.T) {
	data := make([]byte, ethernetHeaderLen)
	data[12], data[13] = 0x86, 0xDD

	eth, payload, err := decodeEthernet(data)
	if err != nil {
		t.Fatalf("decodeEthernet failed: %v", err)
	}
	if eth.EtherType != etherTypeIPv6 {
		t.Errorf("Expected EtherType 0x86DD, got 0x%04x", eth.EtherType)
	}
	if len(payload) != 0 {
		t.Errorf("Expected empty payload, got %d bytes", len(payload))
	}
}

func TestDecodeEthernetTooShort(t *testing.T) {
	for n := 0; n < ethernetHeaderLen; n++ {
		_, _, err := decodeEthernet(make([]byte, n))
		if !errors.Is(err, core.ErrPacketTooShort) {
			t.Errorf("len %d: expected ErrPacketTooShort, got %v", n, err)
		}
	}
}
