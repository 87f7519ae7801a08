// Package histogram implements the fixed-size log2 latency histogram.
package histogram

import (
	"sync/atomic"
	"time"
)

const (
	// DefaultBuckets is the number of log2 buckets.
	DefaultBuckets = 30
	// DefaultCeiling is the largest latency considered a genuine match.
	DefaultCeiling = 500 * time.Millisecond
)

// Histogram counts latencies into exponentially widening buckets. Bucket i
// covers roughly [2^i, 2^(i+1)) nanoseconds; the last bucket absorbs
// everything above. Counters only grow until Reset.
//
// Observe is safe for concurrent use: every increment is an atomic add.
type Histogram struct {
	counts  []atomic.Uint64
	ceiling time.Duration
}

// New creates a histogram with n buckets that discards latencies above
// ceiling. Non-positive arguments fall back to the defaults.
func New(n int, ceiling time.Duration) *Histogram {
	if n <= 0 {
		n = DefaultBuckets
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Histogram{
		counts:  make([]atomic.Uint64, n),
		ceiling: ceiling,
	}
}

// Len returns the number of buckets.
func (h *Histogram) Len() int {
	return len(h.counts)
}

// Ceiling returns the latency ceiling.
func (h *Histogram) Ceiling() time.Duration {
	return h.ceiling
}

// Bucket returns the bucket index for a latency in nanoseconds: an
// approximate log2 clamped to the last bucket. The loop runs at most
// Len()-1 times whatever the input.
func (h *Histogram) Bucket(ns uint64) int {
	return bucket(ns, len(h.counts))
}

func bucket(ns uint64, n int) int {
	i := 0
	ns >>= 1
	for ns > 0 && i < n-1 {
		ns >>= 1
		i++
	}
	return i
}

// Observe records latency d. Negative latencies (clock underflow) and
// latencies above the ceiling are discarded and Observe returns false.
func (h *Histogram) Observe(d time.Duration) bool {
	if d < 0 || d > h.ceiling {
		return false
	}
	h.counts[h.Bucket(uint64(d))].Add(1)
	return true
}

// Count returns the counter of bucket i.
func (h *Histogram) Count(i int) uint64 {
	return h.counts[i].Load()
}

// Snapshot copies all counters. Buckets are read one at a time, so a
// snapshot taken under load is not a single instant.
func (h *Histogram) Snapshot() []uint64 {
	out := make([]uint64, len(h.counts))
	for i := range h.counts {
		out[i] = h.counts[i].Load()
	}
	return out
}

// Total returns the sum of all counters.
func (h *Histogram) Total() uint64 {
	var total uint64
	for i := range h.counts {
		total += h.counts[i].Load()
	}
	return total
}

// Reset zeroes every counter.
func (h *Histogram) Reset() {
	for i := range h.counts {
		h.counts[i].Store(0)
	}
}

// Drain copies and zeroes every counter. Each bucket is swapped atomically,
// so increments racing with Drain land either in the returned copy or in
// the next one, never in neither.
func (h *Histogram) Drain() []uint64 {
	out := make([]uint64, len(h.counts))
	for i := range h.counts {
		out[i] = h.counts[i].Swap(0)
	}
	return out
}

// Bounds returns the latency range in nanoseconds that bucket i stands for,
// as rendered by the histogram tooling: [2^i, 2^(i+1)-1]. Bucket 0 also
// holds 0ns.
func Bounds(i int) (low, high uint64) {
	if i < 0 {
		return 0, 0
	}
	if i >= 63 {
		return 1 << 63, ^uint64(0)
	}
	return 1 << i, (1 << (i + 1)) - 1
}
