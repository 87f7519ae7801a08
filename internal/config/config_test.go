package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"firestige.xyz/dnsrtt/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
dnsrtt:
  node:
    hostname: "probe-1"
  probe:
    dns_port: 5353
    table_capacity: 4096
    buckets: 32
    max_rtt: "1s"
  capture:
    interface: "eth0"
    workers: 4
    snap_len: 512
    ring_size_mb: 16
    poll_timeout: "50ms"
    fanout_id: 42
  kafka:
    brokers:
      - "localhost:9092"
  report:
    interval: "30s"
    reset_on_report: true
    file:
      enabled: true
      path: "/tmp/hist.yaml"
      format: "yaml"
    kafka:
      enabled: true
      topic: "dns-latency"
      compression: "lz4"
  metrics:
    enabled: true
    listen: "127.0.0.1:9999"
  log:
    level: "debug"
    format: "text"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Node.Hostname != "probe-1" {
		t.Errorf("Expected hostname probe-1, got %s", cfg.Node.Hostname)
	}
	p := cfg.ProbeParams()
	if p.DNSPort != 5353 || p.TableCapacity != 4096 || p.Buckets != 32 || p.MaxRTT != time.Second {
		t.Errorf("Unexpected probe config: %+v", p)
	}
	af := cfg.AFPacket()
	if af.Interface != "eth0" || af.SnapLen != 512 || af.RingSizeMB != 16 || af.PollTimeout != 50*time.Millisecond || af.FanoutID != 42 {
		t.Errorf("Unexpected capture config: %+v", af)
	}
	if af.BPFFilter != "udp port 5353" {
		t.Errorf("Expected BPF filter derived from dns_port, got %q", af.BPFFilter)
	}
	if cfg.Capture.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Capture.Workers)
	}
	loop := cfg.ReportLoop()
	if loop.Node != "probe-1" || loop.Interval != 30*time.Second || !loop.ResetOnReport {
		t.Errorf("Unexpected report loop config: %+v", loop)
	}
	if !cfg.Report.File.Enabled || cfg.Report.File.Path != "/tmp/hist.yaml" || cfg.Report.File.Format != "yaml" {
		t.Errorf("Unexpected file report config: %+v", cfg.Report.File)
	}
	if len(cfg.Report.Kafka.Brokers) != 1 || cfg.Report.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("Expected report.kafka to inherit brokers, got %v", cfg.Report.Kafka.Brokers)
	}
	if cfg.Report.Kafka.Topic != "dns-latency" || cfg.Report.Kafka.Compression != "lz4" {
		t.Errorf("Unexpected kafka report config: %+v", cfg.Report.Kafka)
	}
	if cfg.Metrics.Listen != "127.0.0.1:9999" {
		t.Errorf("Expected metrics listen 127.0.0.1:9999, got %s", cfg.Metrics.Listen)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadDefaults(t *testing.T) {
	configPath := writeConfig(t, `
dnsrtt:
  capture:
    interface: "eth0"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Probe.DNSPort != 53 {
		t.Errorf("Expected default dns_port 53, got %d", cfg.Probe.DNSPort)
	}
	if cfg.Probe.TableCapacity != 1024 {
		t.Errorf("Expected default table_capacity 1024, got %d", cfg.Probe.TableCapacity)
	}
	if cfg.Probe.Buckets != 30 {
		t.Errorf("Expected default buckets 30, got %d", cfg.Probe.Buckets)
	}
	if cfg.Probe.MaxRTT != 500*time.Millisecond {
		t.Errorf("Expected default max_rtt 500ms, got %s", cfg.Probe.MaxRTT)
	}
	if cfg.Capture.BPFFilter != "udp port 53" {
		t.Errorf("Expected default BPF filter, got %q", cfg.Capture.BPFFilter)
	}
	if cfg.Capture.FanoutID == 0 {
		t.Error("Expected derived fanout id")
	}
	if cfg.Node.Hostname == "" {
		t.Error("Expected auto-detected hostname, got empty string")
	}
	if cfg.Report.Interval != 10*time.Second {
		t.Errorf("Expected default report interval 10s, got %s", cfg.Report.Interval)
	}
	if !cfg.Report.Log.Enabled {
		t.Error("Expected log reporter enabled by default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Expected default log format json, got %s", cfg.Log.Format)
	}
	if cfg.Metrics.Enabled != true {
		t.Errorf("Expected default metrics enabled true, got %v", cfg.Metrics.Enabled)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.Probe.DNSPort != 53 {
		t.Errorf("Expected default dns_port 53, got %d", cfg.Probe.DNSPort)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Expected error for missing config file, got nil")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	configPath := writeConfig(t, `
dnsrtt:
  log:
    level: "info"
`)

	t.Setenv("DNSRTT_LOG_LEVEL", "debug")
	t.Setenv("DNSRTT_PROBE_DNS_PORT", "5300")
	t.Setenv("DNSRTT_REPORT_KAFKA_TOPIC", "from-env")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug from env var, got %s", cfg.Log.Level)
	}
	if cfg.Probe.DNSPort != 5300 {
		t.Errorf("Expected dns_port 5300 from env var, got %d", cfg.Probe.DNSPort)
	}
	if cfg.Report.Kafka.Topic != "from-env" {
		t.Errorf("Expected kafka topic from env var, got %s", cfg.Report.Kafka.Topic)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "invalid log level",
			content: `
dnsrtt:
  log:
    level: "invalid"
`,
		},
		{
			name: "invalid log format",
			content: `
dnsrtt:
  log:
    format: "xml"
`,
		},
		{
			name: "zero table capacity",
			content: `
dnsrtt:
  probe:
    table_capacity: 0
`,
		},
		{
			name: "too many buckets",
			content: `
dnsrtt:
  probe:
    buckets: 65
`,
		},
		{
			name: "zero workers",
			content: `
dnsrtt:
  capture:
    workers: 0
`,
		},
		{
			name: "tiny snaplen",
			content: `
dnsrtt:
  capture:
    snap_len: 20
`,
		},
		{
			name: "file reporter without path",
			content: `
dnsrtt:
  report:
    file:
      enabled: true
      path: ""
`,
		},
		{
			name: "file reporter bad format",
			content: `
dnsrtt:
  report:
    file:
      enabled: true
      format: "csv"
`,
		},
		{
			name: "kafka reporter without brokers",
			content: `
dnsrtt:
  report:
    kafka:
      enabled: true
`,
		},
		{
			name: "negative report interval",
			content: `
dnsrtt:
  report:
    interval: "-1s"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, core.ErrConfigInvalid) {
				t.Errorf("Expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}
