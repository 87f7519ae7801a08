package decoder

import (
	"errors"
	"net/netip"
	"testing"

	"firestige.xyz/dnsrtt/internal/core"
)

// makeDNSv4Frame builds Ethernet + IPv4 + UDP + 12-byte DNS header.
func makeDNSv4Frame(srcPort, dstPort uint16, id uint16, response bool) []byte {
	packet := make([]byte, 54)

	// Ethernet header (14 bytes)
	packet[0], packet[1], packet[2] = 0x00, 0x11, 0x22
	packet[3], packet[4], packet[5] = 0x33, 0x44, 0x55
	packet[6], packet[7], packet[8] = 0xAA, 0xBB, 0xCC
	packet[9], packet[10], packet[11] = 0xDD, 0xEE, 0xFF
	packet[12], packet[13] = 0x08, 0x00 // EtherType: IPv4

	// IPv4 header (20 bytes)
	packet[14] = 0x45                   // Version 4, IHL 5
	packet[16], packet[17] = 0x00, 0x28 // Total Length: 40 bytes
	packet[22] = 0x40                   // TTL: 64
	packet[23] = 0x11                   // Protocol: UDP (17)
	// Src IP: 192.168.1.1
	packet[26], packet[27], packet[28], packet[29] = 192, 168, 1, 1
	// Dst IP: 192.168.1.2
	packet[30], packet[31], packet[32], packet[33] = 192, 168, 1, 2

	// UDP header (8 bytes)
	packet[34], packet[35] = byte(srcPort>>8), byte(srcPort)
	packet[36], packet[37] = byte(dstPort>>8), byte(dstPort)
	packet[38], packet[39] = 0x00, 0x14 // Length: 20 bytes

	// DNS header (12 bytes)
	packet[42], packet[43] = byte(id>>8), byte(id)
	if response {
		packet[44] = 0x81
	} else {
		packet[44] = 0x01
	}
	return packet
}

func TestDNSDecoderDecodeIPv4Query(t *testing.T) {
	decoder := NewDNSDecoder(Config{})

	pkt, err := decoder.Decode(makeDNSv4Frame(40000, 53, 0x1234, false))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if pkt.Ethernet.EtherType != 0x0800 {
		t.Errorf("Expected EtherType 0x0800, got 0x%04x", pkt.Ethernet.EtherType)
	}
	if pkt.IP.Version != 4 {
		t.Errorf("Expected IP version 4, got %d", pkt.IP.Version)
	}
	if pkt.IP.SrcIP != netip.MustParseAddr("192.168.1.1") {
		t.Errorf("unexpected SrcIP %v", pkt.IP.SrcIP)
	}
	if pkt.Transport.DstPort != 53 {
		t.Errorf("Expected DstPort 53, got %d", pkt.Transport.DstPort)
	}
	if pkt.DNS.ID != 0x1234 {
		t.Errorf("Expected DNS ID 0x1234, got 0x%04x", pkt.DNS.ID)
	}
	if pkt.DNS.Response {
		t.Error("Expected a query")
	}
}

func TestDNSDecoderDecodeResponseFromSourcePort(t *testing.T) {
	decoder := NewDNSDecoder(Config{})

	pkt, err := decoder.Decode(makeDNSv4Frame(53, 40000, 0xBEEF, true))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !pkt.DNS.Response {
		t.Error("Expected a response")
	}
}

func TestDNSDecoderCustomPort(t *testing.T) {
	decoder := NewDNSDecoder(Config{DNSPort: 5353})
	if decoder.Port() != 5353 {
		t.Fatalf("Expected port 5353, got %d", decoder.Port())
	}

	if _, err := decoder.Decode(makeDNSv4Frame(40000, 5353, 1, false)); err != nil {
		t.Errorf("Decode on custom port failed: %v", err)
	}
	if _, err := decoder.Decode(makeDNSv4Frame(40000, 53, 1, false)); !errors.Is(err, core.ErrNotDNS) {
		t.Errorf("Expected ErrNotDNS for port 53, got %v", err)
	}
}

func TestDNSDecoderDecodeIPv6(t *testing.T) {
	frame := make([]byte, 14+40+8+12)
	frame[12], frame[13] = 0x86, 0xDD
	ip := frame[14:]
	ip[0] = 0x60
	ip[5] = 20
	ip[6] = 17
	ip[7] = 64
	src := netip.MustParseAddr("2001:db8::10").As16()
	dst := netip.MustParseAddr("2001:db8::53").As16()
	copy(ip[8:24], src[:])
	copy(ip[24:40], dst[:])
	udp := ip[40:]
	udp[0], udp[1] = 0x9C, 0x40 // 40000
	udp[2], udp[3] = 0x00, 0x35 // 53
	dns := udp[8:]
	dns[0], dns[1] = 0xAB, 0xCD

	pkt, err := NewDNSDecoder(Config{}).Decode(frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if pkt.IP.Version != 6 {
		t.Errorf("Expected IP version 6, got %d", pkt.IP.Version)
	}
	if pkt.IP.SrcIP != netip.MustParseAddr("2001:db8::10") {
		t.Errorf("unexpected SrcIP %v", pkt.IP.SrcIP)
	}
	if pkt.DNS.ID != 0xABCD {
		t.Errorf("Expected DNS ID 0xabcd, got 0x%04x", pkt.DNS.ID)
	}
}

func TestDNSDecoderRejects(t *testing.T) {
	decoder := NewDNSDecoder(Config{})

	tests := []struct {
		name  string
		frame func() []byte
		want  error
	}{
		{
			name:  "empty",
			frame: func() []byte { return []byte{} },
			want:  core.ErrPacketTooShort,
		},
		{
			name: "arp",
			frame: func() []byte {
				f := makeDNSv4Frame(40000, 53, 1, false)
				f[12], f[13] = 0x08, 0x06
				return f
			},
			want: core.ErrUnsupportedProto,
		},
		{
			name: "vlan tagged",
			frame: func() []byte {
				f := makeDNSv4Frame(40000, 53, 1, false)
				f[12], f[13] = 0x81, 0x00
				return f
			},
			want: core.ErrUnsupportedProto,
		},
		{
			name: "tcp",
			frame: func() []byte {
				f := makeDNSv4Frame(40000, 53, 1, false)
				f[23] = 6
				return f
			},
			want: core.ErrUnsupportedProto,
		},
		{
			name: "unrelated udp port",
			frame: func() []byte {
				return makeDNSv4Frame(5000, 5001, 1, false)
			},
			want: core.ErrNotDNS,
		},
		{
			name:  "truncated ip",
			frame: func() []byte { return makeDNSv4Frame(40000, 53, 1, false)[:30] },
			want:  core.ErrPacketTooShort,
		},
		{
			name:  "truncated udp",
			frame: func() []byte { return makeDNSv4Frame(40000, 53, 1, false)[:40] },
			want:  core.ErrPacketTooShort,
		},
		{
			name:  "dns header one byte short",
			frame: func() []byte { return makeDNSv4Frame(40000, 53, 1, false)[:53] },
			want:  core.ErrPacketTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decoder.Decode(tt.frame())
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// Every prefix of a valid frame must decode or fail cleanly; none may panic.
func TestDNSDecoderEveryPrefix(t *testing.T) {
	decoder := NewDNSDecoder(Config{})
	frame := makeDNSv4Frame(40000, 53, 7, false)

	for n := 0; n < len(frame); n++ {
		if _, err := decoder.Decode(frame[:n]); err == nil {
			t.Errorf("prefix of %d bytes decoded without error", n)
		}
	}
	if _, err := decoder.Decode(frame); err != nil {
		t.Errorf("full frame failed: %v", err)
	}
}

func TestDNSDecoderDoesNotAllocate(t *testing.T) {
	decoder := NewDNSDecoder(Config{})
	frame := makeDNSv4Frame(40000, 53, 7, false)

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = decoder.Decode(frame)
	})
	if allocs != 0 {
		t.Errorf("Decode allocated %.1f times per run", allocs)
	}
}

func BenchmarkDNSDecoderDecode(b *testing.B) {
	decoder := NewDNSDecoder(Config{})
	packet := makeDNSv4Frame(40000, 53, 0x1234, false)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := decoder.Decode(packet); err != nil {
			b.Fatal(err)
		}
	}
}
