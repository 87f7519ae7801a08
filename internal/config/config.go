// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/dnsrtt/internal/capture"
	"firestige.xyz/dnsrtt/internal/core"
	"firestige.xyz/dnsrtt/internal/probe"
	"firestige.xyz/dnsrtt/internal/report"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `dnsrtt:` root key in YAML.
type GlobalConfig struct {
	Node    NodeConfig        `mapstructure:"node"`
	Probe   ProbeConfig       `mapstructure:"probe"`
	Capture CaptureConfig     `mapstructure:"capture"`
	Kafka   GlobalKafkaConfig `mapstructure:"kafka"`
	Report  ReportConfig      `mapstructure:"report"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
	Log     LogConfig         `mapstructure:"log"`
}

// ─── Node Identity ───

// NodeConfig contains node identification settings.
type NodeConfig struct {
	Hostname string `mapstructure:"hostname"` // Empty = os.Hostname()
}

// ─── Probe ───

// ProbeConfig holds the correlation parameters.
type ProbeConfig struct {
	DNSPort       uint16        `mapstructure:"dns_port"`
	TableCapacity int           `mapstructure:"table_capacity"`
	Buckets       int           `mapstructure:"buckets"`
	MaxRTT        time.Duration `mapstructure:"max_rtt"`
}

// ─── Capture ───

// CaptureConfig configures the live AF_PACKET sources.
type CaptureConfig struct {
	Interface   string        `mapstructure:"interface"`
	Workers     int           `mapstructure:"workers"`
	SnapLen     int           `mapstructure:"snap_len"`
	RingSizeMB  int           `mapstructure:"ring_size_mb"` // per worker
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	FanoutID    uint16        `mapstructure:"fanout_id"`  // 0 = derived from pid
	BPFFilter   string        `mapstructure:"bpf_filter"` // Empty = "udp port <dns_port>"
}

// ─── Kafka Global Default ───

// GlobalKafkaConfig provides shared Kafka connection defaults.
// report.kafka inherits from here when its fields are zero.
type GlobalKafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// ─── Reporting ───

// ReportConfig configures periodic histogram snapshots.
type ReportConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	ResetOnReport bool          `mapstructure:"reset_on_report"`
	Timeout       time.Duration `mapstructure:"timeout"`

	Log   LogReportConfig   `mapstructure:"log"`
	File  FileReportConfig  `mapstructure:"file"`
	Kafka KafkaReportConfig `mapstructure:"kafka"`
}

// LogReportConfig enables the slog snapshot reporter.
type LogReportConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// FileReportConfig enables the snapshot file reporter.
type FileReportConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	report.FileConfig `mapstructure:",squash"`
}

// KafkaReportConfig enables the Kafka snapshot reporter.
type KafkaReportConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	report.KafkaConfig `mapstructure:",squash"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`  // MB
	MaxAgeDays int  `mapstructure:"max_age_days"` // Days
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `dnsrtt: ...`.
type configRoot struct {
	DNSRTT GlobalConfig `mapstructure:"dnsrtt"`
}

// Load loads configuration from file. An empty path loads defaults and
// environment overrides only.
// The YAML file uses `dnsrtt:` as root key; env vars use DNSRTT_ prefix (e.g., DNSRTT_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "dnsrtt.log.level" → env "DNSRTT_LOG_LEVEL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.DNSRTT

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// Every key is registered so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	// Node defaults
	v.SetDefault("dnsrtt.node.hostname", "")

	// Probe defaults
	def := probe.DefaultConfig()
	v.SetDefault("dnsrtt.probe.dns_port", def.DNSPort)
	v.SetDefault("dnsrtt.probe.table_capacity", def.TableCapacity)
	v.SetDefault("dnsrtt.probe.buckets", def.Buckets)
	v.SetDefault("dnsrtt.probe.max_rtt", def.MaxRTT)

	// Capture defaults
	v.SetDefault("dnsrtt.capture.interface", "")
	v.SetDefault("dnsrtt.capture.workers", 1)
	v.SetDefault("dnsrtt.capture.snap_len", 1600)
	v.SetDefault("dnsrtt.capture.ring_size_mb", 8)
	v.SetDefault("dnsrtt.capture.poll_timeout", "100ms")
	v.SetDefault("dnsrtt.capture.fanout_id", 0)
	v.SetDefault("dnsrtt.capture.bpf_filter", "")

	// Kafka defaults
	v.SetDefault("dnsrtt.kafka.brokers", []string{})

	// Report defaults
	v.SetDefault("dnsrtt.report.interval", "10s")
	v.SetDefault("dnsrtt.report.reset_on_report", false)
	v.SetDefault("dnsrtt.report.timeout", "10s")
	v.SetDefault("dnsrtt.report.log.enabled", true)
	v.SetDefault("dnsrtt.report.file.enabled", false)
	v.SetDefault("dnsrtt.report.file.path", "/var/lib/dnsrtt/hist.json")
	v.SetDefault("dnsrtt.report.file.format", "json")
	v.SetDefault("dnsrtt.report.kafka.enabled", false)
	v.SetDefault("dnsrtt.report.kafka.brokers", []string{})
	v.SetDefault("dnsrtt.report.kafka.topic", "dnsrtt-histogram")
	v.SetDefault("dnsrtt.report.kafka.batch_timeout", "100ms")
	v.SetDefault("dnsrtt.report.kafka.compression", "snappy")
	v.SetDefault("dnsrtt.report.kafka.max_attempts", 3)

	// Metrics defaults
	v.SetDefault("dnsrtt.metrics.enabled", true)
	v.SetDefault("dnsrtt.metrics.listen", ":9153")
	v.SetDefault("dnsrtt.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("dnsrtt.log.level", "info")
	v.SetDefault("dnsrtt.log.format", "json")
	v.SetDefault("dnsrtt.log.outputs.file.enabled", false)
	v.SetDefault("dnsrtt.log.outputs.file.path", "/var/log/dnsrtt/dnsrtt.log")
	v.SetDefault("dnsrtt.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("dnsrtt.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("dnsrtt.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("dnsrtt.log.outputs.file.rotation.compress", true)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}

	// ── Node hostname auto-detect ──
	if cfg.Node.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		cfg.Node.Hostname = hostname
	}

	// ── Probe ──
	if err := cfg.ProbeParams().Validate(); err != nil {
		return err
	}

	// ── Capture ──
	if cfg.Capture.Workers <= 0 {
		return fmt.Errorf("%w: capture.workers must be positive, got %d", core.ErrConfigInvalid, cfg.Capture.Workers)
	}
	if cfg.Capture.SnapLen < 64 {
		return fmt.Errorf("%w: capture.snap_len must be at least 64, got %d", core.ErrConfigInvalid, cfg.Capture.SnapLen)
	}
	if cfg.Capture.RingSizeMB <= 0 {
		return fmt.Errorf("%w: capture.ring_size_mb must be positive, got %d", core.ErrConfigInvalid, cfg.Capture.RingSizeMB)
	}
	if cfg.Capture.PollTimeout <= 0 {
		return fmt.Errorf("%w: capture.poll_timeout must be positive, got %s", core.ErrConfigInvalid, cfg.Capture.PollTimeout)
	}
	if cfg.Capture.BPFFilter == "" {
		cfg.Capture.BPFFilter = capture.PortFilter(cfg.Probe.DNSPort)
	}
	if cfg.Capture.FanoutID == 0 {
		cfg.Capture.FanoutID = uint16(os.Getpid() & 0xffff)
	}

	// ── Kafka inheritance ──
	if len(cfg.Report.Kafka.Brokers) == 0 {
		cfg.Report.Kafka.Brokers = cfg.Kafka.Brokers
	}

	// ── Report ──
	if cfg.Report.Interval < 0 {
		return fmt.Errorf("%w: report.interval must not be negative, got %s", core.ErrConfigInvalid, cfg.Report.Interval)
	}
	if cfg.Report.File.Enabled {
		if cfg.Report.File.Path == "" {
			return fmt.Errorf("%w: report.file.path is required when report.file.enabled=true", core.ErrConfigInvalid)
		}
		if _, err := report.ParseFormat(cfg.Report.File.Format); err != nil {
			return fmt.Errorf("%w: report.file.format: %v", core.ErrConfigInvalid, err)
		}
	}
	if cfg.Report.Kafka.Enabled {
		if len(cfg.Report.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: report.kafka.brokers is required when report.kafka.enabled=true", core.ErrConfigInvalid)
		}
		if cfg.Report.Kafka.Topic == "" {
			return fmt.Errorf("%w: report.kafka.topic is required when report.kafka.enabled=true", core.ErrConfigInvalid)
		}
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}

	return nil
}

// ProbeParams converts the probe section.
func (cfg *GlobalConfig) ProbeParams() probe.Config {
	return probe.Config{
		DNSPort:       cfg.Probe.DNSPort,
		TableCapacity: cfg.Probe.TableCapacity,
		Buckets:       cfg.Probe.Buckets,
		MaxRTT:        cfg.Probe.MaxRTT,
	}
}

// AFPacket converts the capture section for one live source.
func (cfg *GlobalConfig) AFPacket() capture.AFPacketConfig {
	return capture.AFPacketConfig{
		Interface:   cfg.Capture.Interface,
		SnapLen:     cfg.Capture.SnapLen,
		RingSizeMB:  cfg.Capture.RingSizeMB,
		PollTimeout: cfg.Capture.PollTimeout,
		FanoutID:    cfg.Capture.FanoutID,
		BPFFilter:   cfg.Capture.BPFFilter,
	}
}

// ReportLoop converts the report section.
func (cfg *GlobalConfig) ReportLoop() report.LoopConfig {
	return report.LoopConfig{
		Node:          cfg.Node.Hostname,
		Interval:      cfg.Report.Interval,
		ResetOnReport: cfg.Report.ResetOnReport,
		Timeout:       cfg.Report.Timeout,
	}
}
