//go:build linux

package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"

	"firestige.xyz/dnsrtt/internal/core"
)

// AFPacketConfig configures a TPACKET_V3 ring.
type AFPacketConfig struct {
	Interface   string
	SnapLen     int
	RingSizeMB  int
	PollTimeout time.Duration
	FanoutID    uint16 // 0 disables fanout
	BPFFilter   string
}

// AFPacketSource reads frames from an AF_PACKET ring.
type AFPacketSource struct {
	handle *afpacket.TPacket
	iface  string
}

// NewAFPacket opens a ring on cfg.Interface. Workers sharing a FanoutID split
// the interface's flows between them by hash, so both directions of a DNS
// exchange land on the same worker.
func NewAFPacket(cfg AFPacketConfig) (*AFPacketSource, error) {
	if cfg.Interface == "" {
		return nil, fmt.Errorf("%w: afpacket interface is required", core.ErrConfigInvalid)
	}

	frameSize, blockSize, numBlocks, err := ringGeometry(cfg.RingSizeMB, cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("afpacket ring geometry: %w", err)
	}

	handle, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(cfg.PollTimeout),
		afpacket.OptTPacketVersion(afpacket.TPacketVersion3),
		afpacket.SocketRaw,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create TPacket handle on %s: %w", cfg.Interface, err)
	}

	if cfg.FanoutID > 0 {
		if err := handle.SetFanout(afpacket.FanoutHash, cfg.FanoutID); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set fanout: %w", err)
		}
	}

	if cfg.BPFFilter != "" {
		insns, err := CompileBPF(cfg.BPFFilter, cfg.SnapLen)
		if err != nil {
			handle.Close()
			return nil, err
		}
		if err := handle.SetBPF(insns); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set BPF: %w", err)
		}
	}

	if err := handle.InitSocketStats(); err != nil {
		slog.Warn("failed to init socket stats", "interface", cfg.Interface, "error", err)
	}

	slog.Debug("afpacket source opened",
		"interface", cfg.Interface,
		"frame_size", frameSize,
		"block_size", blockSize,
		"num_blocks", numBlocks,
		"fanout_id", cfg.FanoutID,
		"bpf_filter", cfg.BPFFilter)

	return &AFPacketSource{handle: handle, iface: cfg.Interface}, nil
}

// ReadPacketData returns the next frame as a zero-copy view of the ring.
func (s *AFPacketSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.handle.ZeroCopyReadPacketData()
	if errors.Is(err, afpacket.ErrTimeout) {
		return nil, ci, core.ErrSourceTimeout
	}
	return data, ci, err
}

// Stats returns the kernel's packet and drop counters for the socket.
func (s *AFPacketSource) Stats() (Stats, error) {
	_, v3, err := s.handle.SocketStats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Packets: uint64(v3.Packets()), Drops: uint64(v3.Drops())}, nil
}

// Close releases the ring. It must be called by the goroutine that reads,
// after its last read.
func (s *AFPacketSource) Close() error {
	s.handle.Close()
	slog.Debug("afpacket source closed", "interface", s.iface)
	return nil
}
