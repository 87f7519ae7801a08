// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Decoding errors never escape the probe: they only select
// the pass-through exit and the outcome counter.
var (
	// Packet decoding errors
	ErrPacketTooShort   = errors.New("dnsrtt: packet too short")
	ErrUnsupportedProto = errors.New("dnsrtt: unsupported protocol")
	ErrFragment         = errors.New("dnsrtt: non-initial ip fragment")
	ErrNotDNS           = errors.New("dnsrtt: not dns traffic")

	// Capture errors
	ErrSourceTimeout = errors.New("dnsrtt: capture source read timeout")
	ErrLinkType      = errors.New("dnsrtt: unsupported link type")

	// Configuration errors
	ErrConfigInvalid = errors.New("dnsrtt: invalid configuration")
)
