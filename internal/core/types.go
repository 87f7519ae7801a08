// Package core defines core types with zero external dependencies.
package core

import "net/netip"

// EthernetHeader represents L2 Ethernet II frame header.
type EthernetHeader struct {
	SrcMAC    [6]byte
	DstMAC    [6]byte
	EtherType uint16 // 0x0800=IPv4, 0x86DD=IPv6
}

// IPHeader represents L3 IP header (IPv4/IPv6).
type IPHeader struct {
	Version  uint8
	SrcIP    netip.Addr // value type, zero allocation
	DstIP    netip.Addr
	Protocol uint8 // next header for IPv6
	TTL      uint8
	TotalLen uint16
}

// TransportHeader represents the L4 UDP header.
type TransportHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Protocol uint8
}

// DNSHeader carries the only two DNS fields used for correlation.
type DNSHeader struct {
	ID       uint16 // host order
	Response bool   // QR flag
}

// Verdict is the outcome returned for a processed frame.
type Verdict uint8

const (
	// VerdictPass lets the frame continue unmodified. It is the only verdict
	// the probe ever returns.
	VerdictPass Verdict = iota
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	default:
		return "unknown"
	}
}
