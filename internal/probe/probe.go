// Package probe correlates DNS queries with their responses frame by frame
// and feeds the round-trip latency into the histogram.
//
// Process is the per-frame entry point. It never blocks, never logs and
// always returns core.VerdictPass: the probe observes traffic, it does not
// filter it. The pending table and the histogram are shared services built
// once and injected; Process may run concurrently on many goroutines.
package probe

import (
	"errors"
	"fmt"
	"time"

	"firestige.xyz/dnsrtt/internal/core"
	"firestige.xyz/dnsrtt/internal/core/decoder"
	"firestige.xyz/dnsrtt/internal/histogram"
	"firestige.xyz/dnsrtt/internal/pending"
)

// Config holds the fixed parameters of the probe.
type Config struct {
	DNSPort       uint16
	TableCapacity int
	Buckets       int
	MaxRTT        time.Duration
}

// DefaultConfig returns the reference parameters: port 53, 1024 pending
// queries, 30 buckets, 500ms ceiling.
func DefaultConfig() Config {
	return Config{
		DNSPort:       53,
		TableCapacity: pending.DefaultCapacity,
		Buckets:       histogram.DefaultBuckets,
		MaxRTT:        histogram.DefaultCeiling,
	}
}

// Validate checks cfg.
func (c Config) Validate() error {
	if c.DNSPort == 0 {
		return fmt.Errorf("%w: dns port must be non-zero", core.ErrConfigInvalid)
	}
	if c.TableCapacity <= 0 {
		return fmt.Errorf("%w: table capacity must be positive, got %d", core.ErrConfigInvalid, c.TableCapacity)
	}
	if c.Buckets <= 0 || c.Buckets > 64 {
		return fmt.Errorf("%w: buckets must be in [1,64], got %d", core.ErrConfigInvalid, c.Buckets)
	}
	if c.MaxRTT <= 0 {
		return fmt.Errorf("%w: max rtt must be positive, got %s", core.ErrConfigInvalid, c.MaxRTT)
	}
	return nil
}

// Probe is the dispatch logic tying decoder, pending table and histogram
// together.
type Probe struct {
	decoder *decoder.DNSDecoder
	table   *pending.Table
	hist    *histogram.Histogram
	clock   Clock
	stats   Stats
}

// Option customizes a Probe.
type Option func(*Probe)

// WithClock replaces the default monotonic clock.
func WithClock(c Clock) Option {
	return func(p *Probe) {
		p.clock = c
	}
}

// New creates a probe over the shared table and histogram.
func New(port uint16, table *pending.Table, hist *histogram.Histogram, opts ...Option) *Probe {
	p := &Probe{
		decoder: decoder.NewDNSDecoder(decoder.Config{DNSPort: port}),
		table:   table,
		hist:    hist,
		clock:   NewMonotonicClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build creates the table, histogram and probe described by cfg.
func Build(cfg Config, opts ...Option) (*Probe, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	table, err := pending.New(cfg.TableCapacity)
	if err != nil {
		return nil, err
	}
	hist := histogram.New(cfg.Buckets, cfg.MaxRTT)
	return New(cfg.DNSPort, table, hist, opts...), nil
}

// Table returns the shared pending-query table.
func (p *Probe) Table() *pending.Table {
	return p.table
}

// Histogram returns the shared latency histogram.
func (p *Probe) Histogram() *histogram.Histogram {
	return p.hist
}

// Stats returns the per-outcome counters.
func (p *Probe) Stats() *Stats {
	return &p.stats
}

// Now reads the probe's clock.
func (p *Probe) Now() uint64 {
	return p.clock.Now()
}

// Process handles one frame using the probe's clock.
func (p *Probe) Process(frame []byte) core.Verdict {
	return p.ProcessAt(frame, p.clock.Now())
}

// ProcessAt handles one frame observed at now (nanoseconds on a clock shared
// by every caller). frame is not retained.
func (p *Probe) ProcessAt(frame []byte, now uint64) core.Verdict {
	pkt, err := p.decoder.Decode(frame)
	if err != nil {
		p.stats.inc(outcomeForError(err))
		return core.VerdictPass
	}

	key := core.KeyFor(&pkt)
	if !pkt.DNS.Response {
		p.table.Record(key, now)
		p.stats.inc(OutcomeRecorded)
		return core.VerdictPass
	}

	latency, ok := p.table.Resolve(key, now)
	if !ok {
		p.stats.inc(OutcomeUnmatched)
		return core.VerdictPass
	}
	if !p.hist.Observe(latency) {
		p.stats.inc(OutcomeDiscarded)
		return core.VerdictPass
	}
	p.stats.inc(OutcomeCorrelated)
	return core.VerdictPass
}

func outcomeForError(err error) Outcome {
	switch {
	case errors.Is(err, core.ErrPacketTooShort):
		return OutcomeTruncated
	case errors.Is(err, core.ErrNotDNS):
		return OutcomeNotDNS
	case errors.Is(err, core.ErrFragment):
		return OutcomeFragment
	default:
		return OutcomeUnsupported
	}
}
