// Package report turns the latency histogram into snapshots and delivers
// them periodically to log, file and Kafka sinks.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"firestige.xyz/dnsrtt/internal/histogram"
	"firestige.xyz/dnsrtt/internal/probe"
)

// Bucket is one histogram bucket with its nanosecond range.
type Bucket struct {
	Index  int    `json:"index" yaml:"index"`
	LowNS  uint64 `json:"low_ns" yaml:"low_ns"`
	HighNS uint64 `json:"high_ns" yaml:"high_ns"`
	Count  uint64 `json:"count" yaml:"count"`
}

// Snapshot is the histogram and probe state at one instant.
type Snapshot struct {
	Node      string            `json:"node,omitempty" yaml:"node,omitempty"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	MaxRTTNS  int64             `json:"max_rtt_ns,omitempty" yaml:"max_rtt_ns,omitempty"`
	Total     uint64            `json:"total" yaml:"total"`
	Pending   int               `json:"pending" yaml:"pending"`
	Evictions uint64            `json:"evictions" yaml:"evictions"`
	Outcomes  map[string]uint64 `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	Buckets   []Bucket          `json:"buckets" yaml:"buckets"`
}

// Format is a snapshot file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown snapshot format %q, must be json or yaml", s)
	}
}

// Take captures the probe's state. With drain set the histogram counters
// are zeroed as they are read.
func Take(node string, p *probe.Probe, drain bool, now time.Time) Snapshot {
	h := p.Histogram()
	var counts []uint64
	if drain {
		counts = h.Drain()
	} else {
		counts = h.Snapshot()
	}

	s := FromCounts(counts)
	s.Node = node
	s.Timestamp = now
	s.MaxRTTNS = int64(h.Ceiling())
	s.Pending = p.Table().Len()
	s.Evictions = p.Table().Evictions()
	s.Outcomes = p.Stats().Map()
	return s
}

// FromCounts builds a snapshot from raw bucket counters.
func FromCounts(counts []uint64) Snapshot {
	s := Snapshot{Buckets: make([]Bucket, len(counts))}
	for i, c := range counts {
		low, high := histogram.Bounds(i)
		s.Buckets[i] = Bucket{Index: i, LowNS: low, HighNS: high, Count: c}
		s.Total += c
	}
	return s
}

// Quantile returns the upper edge in nanoseconds of the bucket holding the
// q-th quantile, or 0 for an empty snapshot.
func (s *Snapshot) Quantile(q float64) uint64 {
	if s.Total == 0 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	rank := uint64(math.Ceil(q * float64(s.Total)))
	if rank == 0 {
		rank = 1
	}
	var seen uint64
	for _, b := range s.Buckets {
		seen += b.Count
		if seen >= rank {
			return b.HighNS
		}
	}
	return s.Buckets[len(s.Buckets)-1].HighNS
}

// Encode serializes s in the given format.
func (s *Snapshot) Encode(f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		return yaml.Marshal(s)
	default:
		return json.MarshalIndent(s, "", "  ")
	}
}

// Decode parses a snapshot in the given format.
func Decode(data []byte, f Format) (Snapshot, error) {
	var s Snapshot
	var err error
	switch f {
	case FormatYAML:
		err = yaml.Unmarshal(data, &s)
	default:
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode %s snapshot: %w", f, err)
	}
	return s, nil
}

// Render prints one line per bucket as "low ms - high ms : count packet(s)".
// Empty buckets are skipped unless all is set.
func Render(w io.Writer, s *Snapshot, all bool) error {
	for _, b := range s.Buckets {
		if b.Count == 0 && !all {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s : %d packet(s)\n", RangeMS(b.LowNS, b.HighNS), b.Count); err != nil {
			return err
		}
	}
	return nil
}

// RangeMS formats a nanosecond range in milliseconds.
func RangeMS(low, high uint64) string {
	return fmt.Sprintf("%.3f ms - %.3f ms", float64(low)/1e6, float64(high)/1e6)
}

// bpftool map dump entry: either raw little-endian hex bytes or, with BTF,
// plain numbers.
type dumpEntry struct {
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
}

// FromMapDump converts a "bpftool map dump -j" of the histogram array into
// a snapshot.
func FromMapDump(data []byte) (Snapshot, error) {
	var entries []dumpEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return Snapshot{}, fmt.Errorf("decode map dump: %w", err)
	}

	counts := make([]uint64, histogram.DefaultBuckets)
	for i, e := range entries {
		idx, err := dumpNumber(e.Key)
		if err != nil {
			return Snapshot{}, fmt.Errorf("entry %d key: %w", i, err)
		}
		val, err := dumpNumber(e.Value)
		if err != nil {
			return Snapshot{}, fmt.Errorf("entry %d value: %w", i, err)
		}
		if idx >= 64 {
			return Snapshot{}, fmt.Errorf("entry %d: bucket index %d out of range", i, idx)
		}
		for uint64(len(counts)) <= idx {
			counts = append(counts, 0)
		}
		counts[idx] = val
	}
	return FromCounts(counts), nil
}

func dumpNumber(raw json.RawMessage) (uint64, error) {
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var hexBytes []string
	if err := json.Unmarshal(raw, &hexBytes); err != nil {
		return 0, fmt.Errorf("expected number or byte array: %w", err)
	}
	if len(hexBytes) > 8 {
		return 0, fmt.Errorf("%d bytes overflow uint64", len(hexBytes))
	}
	for i, h := range hexBytes {
		b, err := strconv.ParseUint(h, 0, 8)
		if err != nil {
			return 0, fmt.Errorf("byte %d: %w", i, err)
		}
		n |= b << (8 * i)
	}
	return n, nil
}
