package decoder

import (
	"encoding/binary"

	"firestige.xyz/dnsrtt/internal/core"
)

const (
	dnsHeaderLen = 12
	dnsFlagQR    = 0x80
)

// decodeDNSHeader extracts the transaction ID and QR flag. No other DNS
// field is interpreted.
func decodeDNSHeader(payload []byte) (core.DNSHeader, error) {
	if len(payload) < dnsHeaderLen {
		return core.DNSHeader{}, core.ErrPacketTooShort
	}
	return core.DNSHeader{
		ID:       binary.BigEndian.Uint16(payload[0:2]),
		Response: payload[2]&dnsFlagQR != 0,
	}, nil
}
