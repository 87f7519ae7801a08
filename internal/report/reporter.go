package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"firestige.xyz/dnsrtt/internal/metrics"
	"firestige.xyz/dnsrtt/internal/probe"
)

const defaultReportTimeout = 10 * time.Second

// Reporter delivers snapshots somewhere.
type Reporter interface {
	Name() string
	Report(ctx context.Context, s *Snapshot) error
	Close() error
}

// LoopConfig configures periodic reporting.
type LoopConfig struct {
	Node     string
	Interval time.Duration
	// ResetOnReport drains the histogram into each snapshot, so every
	// snapshot covers one interval instead of the whole run.
	ResetOnReport bool
	Timeout       time.Duration
}

// Loop takes a snapshot every interval and hands it to every reporter.
type Loop struct {
	cfg       LoopConfig
	probe     *probe.Probe
	reporters []Reporter
	now       func() time.Time
}

// NewLoop creates a loop over p.
func NewLoop(cfg LoopConfig, p *probe.Probe, reporters ...Reporter) *Loop {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultReportTimeout
	}
	return &Loop{cfg: cfg, probe: p, reporters: reporters, now: time.Now}
}

// Run reports every interval until ctx is cancelled, then reports a final
// snapshot and closes the reporters. A non-positive interval reports only
// the final snapshot.
func (l *Loop) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if l.cfg.Interval > 0 {
		ticker := time.NewTicker(l.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	slog.Info("report loop started",
		"interval", l.cfg.Interval,
		"reset_on_report", l.cfg.ResetOnReport,
		"reporters", len(l.reporters))

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), l.cfg.Timeout)
			err := l.ReportOnce(final)
			cancel()
			return errors.Join(err, l.Close())
		case <-tick:
			reportCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
			if err := l.ReportOnce(reportCtx); err != nil {
				slog.Warn("snapshot report failed", "error", err)
			}
			cancel()
		}
	}
}

// ReportOnce takes one snapshot and delivers it to every reporter. Every
// reporter is tried; failures are joined.
func (l *Loop) ReportOnce(ctx context.Context) error {
	snap := Take(l.cfg.Node, l.probe, l.cfg.ResetOnReport, l.now())
	if l.cfg.ResetOnReport {
		metrics.HistogramResetsTotal.Inc()
	}

	var errs []error
	for _, r := range l.reporters {
		start := time.Now()
		err := r.Report(ctx, &snap)
		metrics.ReportLatencySeconds.WithLabelValues(r.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ReportsTotal.WithLabelValues(r.Name(), "error").Inc()
			errs = append(errs, fmt.Errorf("%s reporter: %w", r.Name(), err))
			continue
		}
		metrics.ReportsTotal.WithLabelValues(r.Name(), "ok").Inc()
	}
	return errors.Join(errs...)
}

// Close closes every reporter.
func (l *Loop) Close() error {
	var errs []error
	for _, r := range l.reporters {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s reporter: %w", r.Name(), err))
		}
	}
	return errors.Join(errs...)
}
