//go:build !linux

package capture

import (
	"fmt"
	"time"

	"github.com/google/gopacket"

	"firestige.xyz/dnsrtt/internal/core"
)

// AFPacketConfig configures a TPACKET_V3 ring.
type AFPacketConfig struct {
	Interface   string
	SnapLen     int
	RingSizeMB  int
	PollTimeout time.Duration
	FanoutID    uint16
	BPFFilter   string
}

// AFPacketSource is unavailable outside Linux.
type AFPacketSource struct{}

// NewAFPacket always fails outside Linux.
func NewAFPacket(cfg AFPacketConfig) (*AFPacketSource, error) {
	return nil, fmt.Errorf("%w: afpacket capture requires linux", core.ErrConfigInvalid)
}

func (s *AFPacketSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return nil, gopacket.CaptureInfo{}, core.ErrSourceTimeout
}

func (s *AFPacketSource) Close() error { return nil }
