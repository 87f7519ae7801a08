package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/dnsrtt/internal/histogram"
	"firestige.xyz/dnsrtt/internal/pipeline"
	"firestige.xyz/dnsrtt/internal/probe"
)

const namespace = "dnsrtt"

// Collector exports the probe's shared state at scrape time. Nothing is
// copied on the packet path; every value is read when Prometheus asks.
type Collector struct {
	probe   *probe.Probe
	capture func() pipeline.Snapshot

	latencyBucket  *prometheus.Desc
	latencySamples *prometheus.Desc
	pendingQueries *prometheus.Desc
	pendingCap     *prometheus.Desc
	evictions      *prometheus.Desc
	packets        *prometheus.Desc
	capturePackets *prometheus.Desc
	captureDrops   *prometheus.Desc
	readErrors     *prometheus.Desc

	// label values per bucket, fixed at construction
	bucketLabels [][2]string
}

// NewCollector creates a collector over p. capture may be nil when no
// pipeline is running.
func NewCollector(p *probe.Probe, capture func() pipeline.Snapshot) *Collector {
	c := &Collector{
		probe:   p,
		capture: capture,
		latencyBucket: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "latency", "bucket_total"),
			"Number of DNS responses whose latency fell in the log2 bucket",
			[]string{"bucket", "le"}, nil),
		latencySamples: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "latency", "samples_total"),
			"Number of latencies recorded in the histogram",
			nil, nil),
		pendingQueries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "pending_queries"),
			"Number of queries awaiting a response",
			nil, nil),
		pendingCap: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "pending_capacity"),
			"Maximum number of pending queries",
			nil, nil),
		evictions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "pending_evictions_total"),
			"Number of pending queries evicted to make room for new ones",
			nil, nil),
		packets: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "packets_total"),
			"Number of frames processed by outcome",
			[]string{"outcome"}, nil),
		capturePackets: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "capture", "packets_total"),
			"Number of frames read from capture sources",
			nil, nil),
		captureDrops: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "capture", "kernel_drops_total"),
			"Number of frames the kernel dropped before capture",
			nil, nil),
		readErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "capture", "read_errors_total"),
			"Number of failed capture reads",
			nil, nil),
	}

	n := p.Histogram().Len()
	c.bucketLabels = make([][2]string, n)
	for i := 0; i < n; i++ {
		_, high := histogram.Bounds(i)
		le := strconv.FormatFloat(float64(high)/1e9, 'g', -1, 64)
		if i == n-1 {
			le = "+Inf"
		}
		c.bucketLabels[i] = [2]string{strconv.Itoa(i), le}
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.latencyBucket
	ch <- c.latencySamples
	ch <- c.pendingQueries
	ch <- c.pendingCap
	ch <- c.evictions
	ch <- c.packets
	if c.capture != nil {
		ch <- c.capturePackets
		ch <- c.captureDrops
		ch <- c.readErrors
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var total uint64
	for i, v := range c.probe.Histogram().Snapshot() {
		total += v
		l := c.bucketLabels[i]
		ch <- prometheus.MustNewConstMetric(c.latencyBucket, prometheus.CounterValue, float64(v), l[0], l[1])
	}
	ch <- prometheus.MustNewConstMetric(c.latencySamples, prometheus.CounterValue, float64(total))

	table := c.probe.Table()
	ch <- prometheus.MustNewConstMetric(c.pendingQueries, prometheus.GaugeValue, float64(table.Len()))
	ch <- prometheus.MustNewConstMetric(c.pendingCap, prometheus.GaugeValue, float64(table.Capacity()))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(table.Evictions()))

	stats := c.probe.Stats()
	for _, o := range probe.Outcomes() {
		ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(stats.Get(o)), o.String())
	}

	if c.capture != nil {
		s := c.capture()
		ch <- prometheus.MustNewConstMetric(c.capturePackets, prometheus.CounterValue, float64(s.Received))
		ch <- prometheus.MustNewConstMetric(c.captureDrops, prometheus.CounterValue, float64(s.KernelDrops))
		ch <- prometheus.MustNewConstMetric(c.readErrors, prometheus.CounterValue, float64(s.ReadErrors))
	}
}
