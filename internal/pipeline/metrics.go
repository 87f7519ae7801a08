package pipeline

import (
	"sync/atomic"
)

// Metrics contains per-worker counters.
type Metrics struct {
	Worker int

	Received   atomic.Uint64
	ReadErrors atomic.Uint64
	Timeouts   atomic.Uint64

	// last values reported by the kernel for the worker's socket
	KernelPackets atomic.Uint64
	KernelDrops   atomic.Uint64
}

// Snapshot is a plain copy of Metrics.
type Snapshot struct {
	Received      uint64
	ReadErrors    uint64
	Timeouts      uint64
	KernelPackets uint64
	KernelDrops   uint64
}

// NewMetrics creates a new metrics instance.
func NewMetrics(worker int) *Metrics {
	return &Metrics{Worker: worker}
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Received:      m.Received.Load(),
		ReadErrors:    m.ReadErrors.Load(),
		Timeouts:      m.Timeouts.Load(),
		KernelPackets: m.KernelPackets.Load(),
		KernelDrops:   m.KernelDrops.Load(),
	}
}

func (s Snapshot) add(o Snapshot) Snapshot {
	return Snapshot{
		Received:      s.Received + o.Received,
		ReadErrors:    s.ReadErrors + o.ReadErrors,
		Timeouts:      s.Timeouts + o.Timeouts,
		KernelPackets: s.KernelPackets + o.KernelPackets,
		KernelDrops:   s.KernelDrops + o.KernelDrops,
	}
}
