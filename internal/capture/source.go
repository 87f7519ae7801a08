// Package capture provides the frame sources feeding the probe: live
// AF_PACKET rings and pcap/pcapng files.
package capture

import "github.com/google/gopacket"

// Source yields raw Ethernet frames. The returned data is only valid until
// the next call; callers must not retain it.
//
// ReadPacketData returns io.EOF when a finite source is exhausted and
// core.ErrSourceTimeout when a live source had nothing to read within its
// poll timeout.
type Source interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	Close() error
}

// Stats is a snapshot of a source's kernel-side counters.
type Stats struct {
	Packets uint64
	Drops   uint64
}

// StatsSource is implemented by sources that can report kernel counters.
type StatsSource interface {
	Stats() (Stats, error)
}

// Opener opens the source used by one pipeline worker.
type Opener func(worker int) (Source, error)
