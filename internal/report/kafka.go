package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

const (
	defaultKafkaBatchTimeout = 100 * time.Millisecond
	defaultKafkaCompression  = "snappy"
	defaultKafkaMaxAttempts  = 3
)

// KafkaConfig configures the Kafka reporter.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`       // required
	Topic        string        `mapstructure:"topic"`         // required
	BatchTimeout time.Duration `mapstructure:"batch_timeout"` // optional, default 100ms
	Compression  string        `mapstructure:"compression"`   // optional: none|gzip|snappy|lz4|zstd, default snappy
	MaxAttempts  int           `mapstructure:"max_attempts"`  // optional, default 3
}

// messageWriter is the part of kafka.Writer the reporter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaReporter publishes each snapshot as one JSON message keyed by node.
type KafkaReporter struct {
	writer messageWriter
	config KafkaConfig

	reportedCount atomic.Uint64
	errorCount    atomic.Uint64
}

// NewKafkaReporter validates cfg, applies defaults and creates the writer.
func NewKafkaReporter(cfg KafkaConfig) (*KafkaReporter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultKafkaBatchTimeout
	}
	if cfg.Compression == "" {
		cfg.Compression = defaultKafkaCompression
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultKafkaMaxAttempts
	}

	codec, err := parseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // one partition per node
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		Compression:  codec,
		RequiredAcks: kafka.RequireOne,
	}

	slog.Info("kafka reporter created",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"batch_timeout", cfg.BatchTimeout,
		"compression", cfg.Compression,
	)
	return &KafkaReporter{writer: w, config: cfg}, nil
}

func parseCompression(name string) (compress.Compression, error) {
	switch name {
	case "none":
		return compress.None, nil
	case "gzip":
		return compress.Gzip, nil
	case "snappy":
		return compress.Snappy, nil
	case "lz4":
		return compress.Lz4, nil
	case "zstd":
		return compress.Zstd, nil
	default:
		return compress.None, fmt.Errorf("invalid compression type: %s", name)
	}
}

func (r *KafkaReporter) Name() string {
	return "kafka"
}

// Report sends a snapshot to Kafka.
func (r *KafkaReporter) Report(ctx context.Context, s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("nil snapshot")
	}

	value, err := json.Marshal(s)
	if err != nil {
		r.errorCount.Add(1)
		return fmt.Errorf("serialize snapshot failed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(s.Node),
		Value: value,
		Time:  s.Timestamp,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		r.errorCount.Add(1)
		return fmt.Errorf("kafka write failed: %w", err)
	}

	r.reportedCount.Add(1)
	return nil
}

// Close flushes pending messages and closes the writer.
func (r *KafkaReporter) Close() error {
	if err := r.writer.Close(); err != nil {
		slog.Error("error closing kafka writer", "error", err)
		return err
	}
	slog.Info("kafka reporter stopped",
		"total_reported", r.reportedCount.Load(),
		"total_errors", r.errorCount.Load(),
	)
	return nil
}
