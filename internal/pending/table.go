// Package pending implements the bounded table of in-flight DNS queries.
//
// The table is split into shards, each a fixed-size LRU guarded by its own
// mutex, so concurrent packet workers touching different clients rarely
// contend. Callers never lock: every operation is synchronized internally.
package pending

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"firestige.xyz/dnsrtt/internal/core"
)

const (
	// DefaultCapacity matches the size of the kernel-side query map.
	DefaultCapacity = 1024

	maxShards = 16
)

// Table maps a QueryKey to the monotonic timestamp (ns) of the most recent
// query seen for it.
//
// When a shard is full the least recently written entry is evicted. A query
// whose response never arrives stays until it is evicted or overwritten, so
// a flood of unanswered queries can starve slots for legitimate ones.
type Table struct {
	shards   []shard
	mask     uint32
	capacity int

	evictions atomic.Uint64
}

type shard struct {
	mu  sync.Mutex
	lru *simplelru.LRU[core.QueryKey, uint64]
}

// New creates a table holding at most capacity entries.
func New(capacity int) (*Table, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("pending: capacity must be positive, got %d", capacity)
	}

	sizes := shardSizes(capacity)
	t := &Table{
		shards:   make([]shard, len(sizes)),
		mask:     uint32(len(sizes) - 1),
		capacity: capacity,
	}
	for i, size := range sizes {
		lru, err := simplelru.NewLRU[core.QueryKey, uint64](size, nil)
		if err != nil {
			return nil, fmt.Errorf("pending: create shard %d: %w", i, err)
		}
		t.shards[i].lru = lru
	}
	return t, nil
}

// shardSizes splits capacity over a power-of-two number of shards, never
// more shards than entries.
func shardSizes(capacity int) []int {
	n := 1
	for n < maxShards && n*2 <= capacity {
		n *= 2
	}
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = capacity / n
		if i < capacity%n {
			sizes[i]++
		}
	}
	return sizes
}

func (t *Table) shardFor(key core.QueryKey) *shard {
	return &t.shards[key.Hash()&t.mask]
}

// Record stores now as the pending timestamp for key, replacing any earlier
// query with the same key.
func (t *Table) Record(key core.QueryKey, now uint64) {
	s := t.shardFor(key)
	s.mu.Lock()
	evicted := s.lru.Add(key, now)
	s.mu.Unlock()

	if evicted {
		t.evictions.Add(1)
	}
}

// Resolve removes the pending entry for key and returns the elapsed time
// since it was recorded. ok is false when no query is pending for key. The
// entry is consumed whenever it exists, so a second Resolve for the same key
// reports nothing. A clock that went backwards yields a negative latency.
func (t *Table) Resolve(key core.QueryKey, now uint64) (latency time.Duration, ok bool) {
	s := t.shardFor(key)
	s.mu.Lock()
	ts, ok := s.lru.Peek(key)
	if ok {
		s.lru.Remove(key)
	}
	s.mu.Unlock()

	if !ok {
		return 0, false
	}
	if ts > now {
		return -time.Duration(ts - now), true
	}
	return time.Duration(now - ts), true
}

// Lookup returns the pending timestamp for key without consuming it.
func (t *Table) Lookup(key core.QueryKey) (uint64, bool) {
	s := t.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Peek(key)
}

// Len returns the number of pending queries.
func (t *Table) Len() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		n += s.lru.Len()
		s.mu.Unlock()
	}
	return n
}

// Capacity returns the configured maximum number of entries.
func (t *Table) Capacity() int {
	return t.capacity
}

// Evictions returns how many entries were dropped to make room.
func (t *Table) Evictions() uint64 {
	return t.evictions.Load()
}

// Range calls fn for every pending entry, shard by shard, until fn returns
// false. It is meant for diagnostics; each shard is copied under its lock so
// fn may call back into the table.
func (t *Table) Range(fn func(key core.QueryKey, ts uint64) bool) {
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		keys := s.lru.Keys()
		values := s.lru.Values()
		s.mu.Unlock()

		for j := range keys {
			if !fn(keys[j], values[j]) {
				return
			}
		}
	}
}

// Purge drops every pending entry.
func (t *Table) Purge() {
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		s.lru.Purge()
		s.mu.Unlock()
	}
}
