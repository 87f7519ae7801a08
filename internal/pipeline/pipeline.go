// Package pipeline runs the capture workers that feed frames to the probe.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"firestige.xyz/dnsrtt/internal/capture"
	"firestige.xyz/dnsrtt/internal/core"
	"firestige.xyz/dnsrtt/internal/probe"
)

// statsEvery is how many frames a worker handles between kernel stats polls.
const statsEvery = 1024

// Consecutive read errors back off from minErrorBackoff, doubling up to
// maxErrorBackoff, so a broken handle does not spin the worker.
const (
	minErrorBackoff = time.Millisecond
	maxErrorBackoff = 100 * time.Millisecond
)

// Config contains pipeline configuration.
type Config struct {
	Workers int
	Open    capture.Opener
	Probe   *probe.Probe

	// UseCaptureTime stamps frames with their capture timestamp instead of
	// the probe's clock. Replays need it to reproduce recorded latencies.
	UseCaptureTime bool
}

// Pipeline owns one capture source per worker. Each worker hands frames to
// the probe inline, so zero-copy buffers never outlive the read.
type Pipeline struct {
	cfg     Config
	metrics []*Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// New creates a new pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Open == nil {
		return nil, fmt.Errorf("%w: pipeline needs a source opener", core.ErrConfigInvalid)
	}
	if cfg.Probe == nil {
		return nil, fmt.Errorf("%w: pipeline needs a probe", core.ErrConfigInvalid)
	}

	metrics := make([]*Metrics, cfg.Workers)
	for i := range metrics {
		metrics[i] = NewMetrics(i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		cfg:     cfg,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

// Start opens every source, then starts the workers. If any source fails to
// open, the ones already opened are closed and nothing runs.
func (p *Pipeline) Start() error {
	sources := make([]capture.Source, 0, p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		src, err := p.cfg.Open(i)
		if err != nil {
			for _, s := range sources {
				s.Close()
			}
			p.cancel()
			close(p.done)
			return fmt.Errorf("open source for worker %d: %w", i, err)
		}
		sources = append(sources, src)
	}

	slog.Info("pipeline starting", "workers", p.cfg.Workers, "capture_time", p.cfg.UseCaptureTime)

	for i, src := range sources {
		p.wg.Add(1)
		go p.worker(i, src)
	}

	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return nil
}

// Stop signals the workers and waits for them to close their sources.
func (p *Pipeline) Stop(ctx context.Context) error {
	slog.Info("pipeline stopping")
	p.cancel()

	select {
	case <-p.done:
		slog.Info("pipeline stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pipeline stop: %w", ctx.Err())
	}
}

// Done is closed once every worker has exited, either because its source
// was exhausted or because the pipeline was stopped.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Stats returns the per-worker counters.
func (p *Pipeline) Stats() []*Metrics {
	return p.metrics
}

// Totals sums the per-worker counters.
func (p *Pipeline) Totals() Snapshot {
	var s Snapshot
	for _, m := range p.metrics {
		s = s.add(m.Snapshot())
	}
	return s
}

func (p *Pipeline) worker(id int, src capture.Source) {
	defer p.wg.Done()
	defer src.Close()

	m := p.metrics[id]
	var backoff time.Duration
	for {
		// checked before each blocking read; live sources return within
		// their poll timeout
		if p.ctx.Err() != nil {
			p.pollSourceStats(src, m)
			return
		}

		data, ci, err := src.ReadPacketData()
		if err != nil {
			switch {
			case errors.Is(err, core.ErrSourceTimeout):
				m.Timeouts.Add(1)
				p.pollSourceStats(src, m)
				continue
			case errors.Is(err, io.EOF):
				slog.Info("capture source exhausted", "worker", id, "received", m.Received.Load())
				return
			case errors.Is(err, io.ErrUnexpectedEOF):
				m.ReadErrors.Add(1)
				slog.Warn("capture source truncated", "worker", id, "error", err)
				return
			default:
				m.ReadErrors.Add(1)
				backoff = nextBackoff(backoff)
				slog.Debug("capture read failed", "worker", id, "error", err, "backoff", backoff)
				if !p.sleep(backoff) {
					p.pollSourceStats(src, m)
					return
				}
				continue
			}
		}
		backoff = 0

		if p.cfg.UseCaptureTime {
			p.cfg.Probe.ProcessAt(data, uint64(ci.Timestamp.UnixNano()))
		} else {
			p.cfg.Probe.Process(data)
		}

		if m.Received.Add(1)%statsEvery == 0 {
			p.pollSourceStats(src, m)
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d < minErrorBackoff {
		return minErrorBackoff
	}
	d *= 2
	if d > maxErrorBackoff {
		return maxErrorBackoff
	}
	return d
}

// sleep waits for d and reports false if the pipeline was stopped meanwhile.
func (p *Pipeline) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *Pipeline) pollSourceStats(src capture.Source, m *Metrics) {
	ss, ok := src.(capture.StatsSource)
	if !ok {
		return
	}
	st, err := ss.Stats()
	if err != nil {
		slog.Debug("source stats unavailable", "worker", m.Worker, "error", err)
		return
	}
	m.KernelPackets.Store(st.Packets)
	m.KernelDrops.Store(st.Drops)
}
