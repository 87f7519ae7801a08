// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportsTotal counts snapshot deliveries by reporter and result
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dnsrtt_reports_total",
			Help: "Total number of histogram snapshots delivered by reporters",
		},
		[]string{"reporter", "result"},
	)

	// ReportLatencySeconds measures how long a reporter takes to deliver one snapshot
	ReportLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dnsrtt_report_latency_seconds",
			Help:    "Time spent delivering one snapshot in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
		},
		[]string{"reporter"},
	)

	// HistogramResetsTotal counts explicit histogram reinitializations
	HistogramResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dnsrtt_histogram_resets_total",
			Help: "Total number of times the latency histogram was reset",
		},
	)
)
