// Package dnstest builds DNS-over-UDP Ethernet frames for tests.
package dnstest

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/miekg/dns"
)

var (
	ClientMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	ServerMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x35}
)

// Query returns a packed A query for name with transaction id.
func Query(t testing.TB, id uint16, name string) *dns.Msg {
	t.Helper()
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)
	m.Id = id
	return m
}

// Reply returns the response to q carrying one A record.
func Reply(t testing.TB, q *dns.Msg) *dns.Msg {
	t.Helper()
	r := new(dns.Msg)
	r.SetReply(q)
	rr, err := dns.NewRR(q.Question[0].Name + " 60 IN A 192.0.2.10")
	if err != nil {
		t.Fatalf("build answer: %v", err)
	}
	r.Answer = append(r.Answer, rr)
	return r
}

// Frame serializes msg inside Ethernet/IP/UDP from src:sport to dst:dport.
// The IP version follows src.
func Frame(t testing.TB, src, dst netip.Addr, sport, dport uint16, msg *dns.Msg) []byte {
	t.Helper()
	payload, err := msg.Pack()
	if err != nil {
		t.Fatalf("pack dns message: %v", err)
	}
	return UDPFrame(t, src, dst, sport, dport, payload)
}

// UDPFrame serializes an arbitrary UDP payload.
func UDPFrame(t testing.TB, src, dst netip.Addr, sport, dport uint16, payload []byte) []byte {
	t.Helper()

	eth := &layers.Ethernet{SrcMAC: ClientMAC, DstMAC: ServerMAC}
	udp := &layers.UDP{SrcPort: layers.UDPPort(sport), DstPort: layers.UDPPort(dport)}

	var ip gopacket.SerializableLayer
	if src.Is4() {
		eth.EthernetType = layers.EthernetTypeIPv4
		ip4 := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IP(src.AsSlice()),
			DstIP:    net.IP(dst.AsSlice()),
		}
		if err := udp.SetNetworkLayerForChecksum(ip4); err != nil {
			t.Fatalf("udp checksum layer: %v", err)
		}
		ip = ip4
	} else {
		eth.EthernetType = layers.EthernetTypeIPv6
		ip6 := &layers.IPv6{
			Version:    6,
			NextHeader: layers.IPProtocolUDP,
			HopLimit:   64,
			SrcIP:      net.IP(src.AsSlice()),
			DstIP:      net.IP(dst.AsSlice()),
		}
		if err := udp.SetNetworkLayerForChecksum(ip6); err != nil {
			t.Fatalf("udp checksum layer: %v", err)
		}
		ip = ip6
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("serialize frame: %v", err)
	}
	return buf.Bytes()
}

// Exchange returns the query frame (client → server:53) and the matching
// response frame (server:53 → client) for transaction id.
func Exchange(t testing.TB, client, server netip.Addr, id uint16) (query, response []byte) {
	t.Helper()
	q := Query(t, id, "example.com")
	r := Reply(t, q)
	query = Frame(t, client, server, 40000, 53, q)
	response = Frame(t, server, client, 53, 40000, r)
	return query, response
}
