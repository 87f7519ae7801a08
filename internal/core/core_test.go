package core

import (
	"errors"
	"fmt"
	"net/netip"
	"testing"
)

func TestStructZeroValues(t *testing.T) {
	t.Run("IPHeader", func(t *testing.T) {
		var ip IPHeader
		if ip.Version != 0 {
			t.Errorf("expected Version=0, got %d", ip.Version)
		}
		if ip.SrcIP.IsValid() || ip.DstIP.IsValid() {
			t.Errorf("expected invalid addresses, got %v %v", ip.SrcIP, ip.DstIP)
		}
	})

	t.Run("DNSHeader", func(t *testing.T) {
		var h DNSHeader
		if h.ID != 0 || h.Response {
			t.Errorf("expected zero header, got %+v", h)
		}
	})

	t.Run("Verdict", func(t *testing.T) {
		var v Verdict
		if v != VerdictPass {
			t.Errorf("zero verdict should be pass, got %v", v)
		}
		if v.String() != "pass" {
			t.Errorf("expected \"pass\", got %q", v.String())
		}
	})
}

func TestNewQueryKeyIPv4ZeroesTail(t *testing.T) {
	k := NewQueryKey(0x1234, netip.MustParseAddr("10.0.0.1"))
	if k.Version != 4 {
		t.Fatalf("expected version 4, got %d", k.Version)
	}
	if k.ID != 0x1234 {
		t.Errorf("expected id 0x1234, got 0x%04x", k.ID)
	}
	want := [16]byte{10, 0, 0, 1}
	if k.Addr != want {
		t.Errorf("expected addr %v, got %v", want, k.Addr)
	}
	if got := k.Address(); got != netip.MustParseAddr("10.0.0.1") {
		t.Errorf("Address() = %v", got)
	}
}

func TestNewQueryKeyIPv6(t *testing.T) {
	addr := netip.MustParseAddr("2001:db8::1")
	k := NewQueryKey(7, addr)
	if k.Version != 6 {
		t.Fatalf("expected version 6, got %d", k.Version)
	}
	if k.Addr != addr.As16() {
		t.Errorf("expected %v, got %v", addr.As16(), k.Addr)
	}
	if k.Address() != addr {
		t.Errorf("Address() = %v, want %v", k.Address(), addr)
	}
}

func TestQueryKeyEquality(t *testing.T) {
	v4 := NewQueryKey(1, netip.MustParseAddr("192.0.2.1"))

	// A key with garbage in the unused tail still compares equal via Equal.
	dirty := v4
	dirty.Addr[10] = 0xff
	if !v4.Equal(dirty) {
		t.Error("IPv4 keys must ignore bytes past the address")
	}
	if v4.Hash() != dirty.Hash() {
		t.Error("IPv4 hash must ignore bytes past the address")
	}

	tests := []struct {
		name string
		a, b QueryKey
		want bool
	}{
		{"same v4", v4, NewQueryKey(1, netip.MustParseAddr("192.0.2.1")), true},
		{"different id", v4, NewQueryKey(2, netip.MustParseAddr("192.0.2.1")), false},
		{"different v4 addr", v4, NewQueryKey(1, netip.MustParseAddr("192.0.2.2")), false},
		{"v4 vs mapped v6", v4, NewQueryKey(1, netip.MustParseAddr("::ffff:192.0.2.1")), false},
		{
			"v6 last byte",
			NewQueryKey(9, netip.MustParseAddr("2001:db8::1")),
			NewQueryKey(9, netip.MustParseAddr("2001:db8::2")),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
			if got := tt.a == tt.b; got != tt.want {
				t.Errorf("== = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyForUsesClientAddress(t *testing.T) {
	client := netip.MustParseAddr("10.0.0.1")
	server := netip.MustParseAddr("10.0.0.53")

	query := DNSPacket{
		IP:  IPHeader{Version: 4, SrcIP: client, DstIP: server},
		DNS: DNSHeader{ID: 0xbeef},
	}
	response := DNSPacket{
		IP:  IPHeader{Version: 4, SrcIP: server, DstIP: client},
		DNS: DNSHeader{ID: 0xbeef, Response: true},
	}

	qk, rk := KeyFor(&query), KeyFor(&response)
	if qk != rk {
		t.Fatalf("query key %v and response key %v must match", qk, rk)
	}
	if qk.Address() != client {
		t.Errorf("expected client address %v, got %v", client, qk.Address())
	}
	if qk.String() != "10.0.0.1#48879" {
		t.Errorf("unexpected String(): %q", qk.String())
	}
}

func TestSentinelErrors(t *testing.T) {
	errs := []error{
		ErrPacketTooShort,
		ErrUnsupportedProto,
		ErrFragment,
		ErrNotDNS,
		ErrSourceTimeout,
		ErrLinkType,
		ErrConfigInvalid,
	}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v must not match %v", a, b)
			}
		}
	}

	wrapped := fmt.Errorf("decode ipv4: %w", ErrPacketTooShort)
	if !errors.Is(wrapped, ErrPacketTooShort) {
		t.Error("wrapped error should match ErrPacketTooShort")
	}
}
