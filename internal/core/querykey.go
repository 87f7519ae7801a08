package core

import (
	"net/netip"
	"strconv"
)

// QueryKey identifies an in-flight DNS query: IP version, transaction ID and
// the querying client's address.
//
// Addr holds the IPv4 address in its first four bytes and zeroes elsewhere,
// or the full IPv6 address. Keys must be built with NewQueryKey so the unused
// tail is always zero; that keeps == and map hashing exact.
type QueryKey struct {
	Version uint8
	ID      uint16
	Addr    [16]byte
}

// NewQueryKey builds a key for addr. IPv4-mapped IPv6 addresses are kept as
// IPv6 since that is how they appeared on the wire.
func NewQueryKey(id uint16, addr netip.Addr) QueryKey {
	var k QueryKey
	k.ID = id
	if addr.Is4() {
		k.Version = 4
		a4 := addr.As4()
		copy(k.Addr[:4], a4[:])
		return k
	}
	k.Version = 6
	k.Addr = addr.As16()
	return k
}

// KeyFor builds the correlation key for a decoded DNS packet. A query is
// keyed on its source (the client), a response on its destination (the same
// client, now receiving).
func KeyFor(pkt *DNSPacket) QueryKey {
	if pkt.DNS.Response {
		return NewQueryKey(pkt.DNS.ID, pkt.IP.DstIP)
	}
	return NewQueryKey(pkt.DNS.ID, pkt.IP.SrcIP)
}

// Equal reports whether k and o name the same query. Only the address bytes
// that belong to the key's version take part.
func (k QueryKey) Equal(o QueryKey) bool {
	if k.Version != o.Version || k.ID != o.ID {
		return false
	}
	if k.Version == 4 {
		return [4]byte(k.Addr[:4]) == [4]byte(o.Addr[:4])
	}
	return k.Addr == o.Addr
}

// Address returns the client address held by the key.
func (k QueryKey) Address() netip.Addr {
	if k.Version == 4 {
		return netip.AddrFrom4([4]byte(k.Addr[:4]))
	}
	return netip.AddrFrom16(k.Addr)
}

// Hash returns a 32-bit FNV-1a hash over the bytes that take part in
// equality. The loop bound is the fixed address width.
func (k QueryKey) Hash() uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	h = (h ^ uint32(k.Version)) * prime32
	h = (h ^ uint32(k.ID>>8)) * prime32
	h = (h ^ uint32(k.ID&0xff)) * prime32
	n := 16
	if k.Version == 4 {
		n = 4
	}
	for i := 0; i < n; i++ {
		h = (h ^ uint32(k.Addr[i])) * prime32
	}
	return h
}

func (k QueryKey) String() string {
	return k.Address().String() + "#" + strconv.Itoa(int(k.ID))
}
