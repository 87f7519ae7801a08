// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawPacket is captured from the network interface, zero-copy reference to ring buffer.
type RawPacket struct {
	Data           []byte    // Raw frame data, valid until the next read on the source
	Timestamp      time.Time // Capture timestamp (kernel timestamp preferred)
	CaptureLen     uint32
	OrigLen        uint32
	InterfaceIndex int
}

// DNSPacket is the result of decoding an Ethernet/IP/UDP frame up to the
// DNS header. It is a plain value; decoding it never allocates.
type DNSPacket struct {
	Ethernet  EthernetHeader
	IP        IPHeader
	Transport TransportHeader
	DNS       DNSHeader
}
