// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/dnsrtt/internal/core"
)

const (
	ethernetHeaderLen = 14

	// EtherType values
	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86DD
)

// decodeEthernet decodes an Ethernet II header.
// Returns EthernetHeader and remaining payload. VLAN-tagged frames come back
// with the tag EtherType and are rejected by the caller.
func decodeEthernet(data []byte) (core.EthernetHeader, []byte, error) {
	if len(data) < ethernetHeaderLen {
		return core.EthernetHeader{}, nil, core.ErrPacketTooShort
	}

	eth := core.EthernetHeader{}
	copy(eth.DstMAC[:], data[0:6])
	copy(eth.SrcMAC[:], data[6:12])
	eth.EtherType = binary.BigEndian.Uint16(data[12:14])

	return eth, data[ethernetHeaderLen:], nil
}
