// Package dedupe tracks keys that were already seen.
//
// The aggregator uses an unbounded tracker to reject repeated
// (competitor, event, round) rows; the HTTP layer uses a bounded one for
// request idempotency.
package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Deduper records seen keys to ensure at-most-once processing.
type Deduper[K comparable] interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(key K) bool

	// Unrecord forgets key so it can be recorded again, e.g. when the work
	// guarded by it failed.
	Unrecord(key K)

	Size() int64
}

// RowKey identifies one per-round statistics row.
type RowKey struct {
	CompetitorID int64
	EventID      string
	Round        int
}

func (k RowKey) String() string {
	return fmt.Sprintf("competitor=%d event=%s round=%d", k.CompetitorID, k.EventID, k.Round)
}

// inMemoryDeduper keeps keys in a map. In bounded mode (maxSize > 0) the
// insertion order is kept in a ring so the oldest key is evicted first.
type inMemoryDeduper[K comparable] struct {
	mu      sync.Mutex
	seen    map[K]int // key -> slot in ring (bounded) or 0
	ring    []K
	live    []bool
	next    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper[K comparable](opts ...Option) Deduper[K] {
	cfg := settings{maxSize: 50000}
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &inMemoryDeduper[K]{
		seen:    make(map[K]int),
		maxSize: cfg.maxSize,
	}
	if d.maxSize > 0 {
		d.ring = make([]K, d.maxSize)
		d.live = make([]bool, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper[K]) SeenAndRecord(key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[key] = 0
		d.size.Add(1)
		return false
	}

	slot := d.next
	if d.live[slot] {
		// ring is full: the slot holds the oldest key
		delete(d.seen, d.ring[slot])
		d.size.Add(-1)
	}
	d.ring[slot] = key
	d.live[slot] = true
	d.seen[key] = slot
	d.next = (slot + 1) % d.maxSize
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper[K]) Unrecord(key K) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, exists := d.seen[key]
	if !exists {
		return
	}
	delete(d.seen, key)
	if d.maxSize > 0 {
		var zero K
		d.ring[slot] = zero
		d.live[slot] = false
	}
	d.size.Add(-1)
}

func (d *inMemoryDeduper[K]) Size() int64 {
	return d.size.Load()
}
