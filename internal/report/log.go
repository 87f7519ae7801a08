package report

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LogReporter writes a one-line summary of each snapshot through slog and,
// at debug level, one line per non-empty bucket.
type LogReporter struct {
	logger        *slog.Logger
	reportedCount atomic.Uint64
}

// NewLogReporter creates a log reporter. A nil logger uses slog.Default.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Name() string {
	return "log"
}

func (r *LogReporter) Report(ctx context.Context, s *Snapshot) error {
	r.reportedCount.Add(1)

	r.logger.InfoContext(ctx, "dns latency snapshot",
		"node", s.Node,
		"samples", s.Total,
		"pending", s.Pending,
		"evictions", s.Evictions,
		"p50_le_ns", s.Quantile(0.5),
		"p99_le_ns", s.Quantile(0.99),
		"unmatched", s.Outcomes["unmatched"],
		"discarded", s.Outcomes["discarded"])

	if !r.logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}
	for _, b := range s.Buckets {
		if b.Count == 0 {
			continue
		}
		r.logger.DebugContext(ctx, "latency bucket",
			"bucket", b.Index,
			"range", RangeMS(b.LowNS, b.HighNS),
			"count", b.Count)
	}
	return nil
}

func (r *LogReporter) Close() error {
	r.logger.Info("log reporter stopped", "total_reported", r.reportedCount.Load())
	return nil
}
