// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/dnsrtt/internal/core"
)

const (
	ipv4HeaderMinLen = 20
	ipv6HeaderLen    = 40
)

// decodeIPv4 decodes an IPv4 header, honouring IHL.
// Non-initial fragments carry no UDP header and are rejected with
// core.ErrFragment.
func decodeIPv4(data []byte) (core.IPHeader, []byte, error) {
	if len(data) < ipv4HeaderMinLen {
		return core.IPHeader{}, nil, core.ErrPacketTooShort
	}
	if data[0]>>4 != 4 {
		return core.IPHeader{}, nil, core.ErrUnsupportedProto
	}

	// IHL is in 32-bit words
	headerLen := int(data[0]&0x0F) * 4
	if headerLen < ipv4HeaderMinLen || len(data) < headerLen {
		return core.IPHeader{}, nil, core.ErrPacketTooShort
	}

	ip := core.IPHeader{
		Version:  4,
		TotalLen: binary.BigEndian.Uint16(data[2:4]),
		TTL:      data[8],
		Protocol: data[9],
		SrcIP:    netip.AddrFrom4([4]byte(data[12:16])),
		DstIP:    netip.AddrFrom4([4]byte(data[16:20])),
	}

	if isNonInitialFragment(data) {
		return ip, nil, core.ErrFragment
	}

	return ip, data[headerLen:], nil
}

// decodeIPv6 decodes the fixed IPv6 header. Extension headers are not
// walked; Protocol holds the raw next-header value.
func decodeIPv6(data []byte) (core.IPHeader, []byte, error) {
	if len(data) < ipv6HeaderLen {
		return core.IPHeader{}, nil, core.ErrPacketTooShort
	}
	if data[0]>>4 != 6 {
		return core.IPHeader{}, nil, core.ErrUnsupportedProto
	}

	payloadLen := binary.BigEndian.Uint16(data[4:6])
	ip := core.IPHeader{
		Version:  6,
		TotalLen: uint16(ipv6HeaderLen) + payloadLen,
		Protocol: data[6], // Next Header
		TTL:      data[7], // Hop Limit
		SrcIP:    netip.AddrFrom16([16]byte(data[8:24])),
		DstIP:    netip.AddrFrom16([16]byte(data[24:40])),
	}

	return ip, data[ipv6HeaderLen:], nil
}

// isNonInitialFragment reports whether an IPv4 header (at least 20 bytes)
// has a non-zero fragment offset.
func isNonInitialFragment(ipData []byte) bool {
	flagsOffset := binary.BigEndian.Uint16(ipData[6:8])
	return flagsOffset&0x1FFF != 0
}
