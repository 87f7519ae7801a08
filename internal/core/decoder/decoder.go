// Package decoder implements the bounds-checked Ethernet/IP/UDP walk that
// feeds DNS latency correlation.
//
// Every layer checks the remaining slice length against its own header size
// before touching a field; a successful check at one layer says nothing
// about the next. Nothing here allocates or loops on packet data.
package decoder

import "firestige.xyz/dnsrtt/internal/core"

const defaultDNSPort = 53

// Decoder decodes raw frames into DNS packets.
type Decoder interface {
	Decode(frame []byte) (core.DNSPacket, error)
}

// Config configures the DNS decoder.
type Config struct {
	DNSPort uint16 // UDP port gating DNS inspection (default 53)
}

// DNSDecoder walks Ethernet → IPv4|IPv6 → UDP → DNS header.
type DNSDecoder struct {
	port uint16
}

// NewDNSDecoder creates a decoder gated on cfg.DNSPort.
func NewDNSDecoder(cfg Config) *DNSDecoder {
	if cfg.DNSPort == 0 {
		cfg.DNSPort = defaultDNSPort
	}
	return &DNSDecoder{port: cfg.DNSPort}
}

// Port returns the DNS port the decoder gates on.
func (d *DNSDecoder) Port() uint16 {
	return d.port
}

// Decode parses frame up to the DNS header. The returned error is one of
// core.ErrPacketTooShort, core.ErrUnsupportedProto, core.ErrFragment or
// core.ErrNotDNS; callers treat every one of them as "pass through".
func (d *DNSDecoder) Decode(frame []byte) (core.DNSPacket, error) {
	var pkt core.DNSPacket

	eth, rest, err := decodeEthernet(frame)
	if err != nil {
		return pkt, err
	}
	pkt.Ethernet = eth

	var ip core.IPHeader
	switch eth.EtherType {
	case etherTypeIPv4:
		ip, rest, err = decodeIPv4(rest)
	case etherTypeIPv6:
		ip, rest, err = decodeIPv6(rest)
	default:
		return pkt, core.ErrUnsupportedProto
	}
	if err != nil {
		return pkt, err
	}
	pkt.IP = ip

	if ip.Protocol != protocolUDP {
		return pkt, core.ErrUnsupportedProto
	}

	udp, payload, err := decodeUDP(rest)
	if err != nil {
		return pkt, err
	}
	pkt.Transport = udp

	if udp.SrcPort != d.port && udp.DstPort != d.port {
		return pkt, core.ErrNotDNS
	}

	dns, err := decodeDNSHeader(payload)
	if err != nil {
		return pkt, err
	}
	pkt.DNS = dns

	return pkt, nil
}
