// Package cache memoizes aggregation results keyed by query fingerprint.
//
// The cache is the only shared mutable state in the query pipeline: it
// is explicitly constructed, passed by reference to the orchestrator,
// and shut down with Close. Entries expire by TTL, are evicted
// least-recently-used first under a memory budget, and concurrent
// misses for one fingerprint are coalesced into a single upstream
// computation.
package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

const (
	// DefaultTTL is how long a result stays valid.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxBytes is the default memory budget for cached results.
	DefaultMaxBytes = 8 << 20

	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = time.Minute

	// sweepBatchSize bounds how many expired entries one sweep pass
	// removes per lock acquisition.
	sweepBatchSize = 256
)

// Config holds cache construction options. Zero values take defaults.
type Config struct {
	TTL           time.Duration
	MaxBytes      int
	SweepInterval time.Duration
}

// Stats is a point-in-time snapshot of cache observability counters.
// Hit and miss counts are monotonic for the process lifetime, reset
// only by Clear.
type Stats struct {
	Size      int     `json:"size"`
	SizeBytes int     `json:"sizeBytes"`
	HitCount  int64   `json:"hitCount"`
	MissCount int64   `json:"missCount"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hitRate"`
}

// entry is a single cached result plus its bookkeeping.
type entry struct {
	expiry         time.Time
	createdAt      time.Time
	lastAccessedAt time.Time
	key            string
	userID         string
	value          model.AggregateResult
	sizeBytes      int
	accessCount    int
}

// ResultCache provides thread-safe, TTL- and memory-bounded caching of
// aggregation results.
type ResultCache struct {
	entries   map[string]*list.Element
	byUser    map[string]map[string]struct{}
	lru       *list.List
	flight    singleflight.Group
	stopCh    chan struct{}
	stopOnce  sync.Once
	closed    atomic.Bool
	ttl       time.Duration
	maxBytes  int
	sizeBytes int
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	mu        sync.Mutex
}

// New creates a result cache and starts its background sweep.
func New(cfg Config) *ResultCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	c := &ResultCache{
		entries:  make(map[string]*list.Element),
		byUser:   make(map[string]map[string]struct{}),
		lru:      list.New(),
		stopCh:   make(chan struct{}),
		ttl:      cfg.TTL,
		maxBytes: cfg.MaxBytes,
	}

	go c.sweep(cfg.SweepInterval)

	return c
}

// Get retrieves a cached result by fingerprint. An expired entry is a
// miss and is removed on the spot.
func (c *ResultCache) Get(fingerprint string) (model.AggregateResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.entries[fingerprint]
	if !exists {
		c.misses.Add(1)
		return model.AggregateResult{}, false
	}

	ent := elem.Value.(*entry)
	if time.Now().After(ent.expiry) {
		c.removeLocked(elem)
		c.misses.Add(1)
		return model.AggregateResult{}, false
	}

	ent.lastAccessedAt = time.Now()
	ent.accessCount++
	c.lru.MoveToFront(elem)
	c.hits.Add(1)
	return ent.value, true
}

// Set stores a result under a fingerprint, evicting least-recently-used
// entries if the memory budget is exceeded. The userID is recorded so
// InvalidateUser can find the entry later.
func (c *ResultCache) Set(fingerprint, userID string, value model.AggregateResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if elem, exists := c.entries[fingerprint]; exists {
		c.removeLocked(elem)
	}

	ent := &entry{
		key:            fingerprint,
		userID:         userID,
		value:          value,
		sizeBytes:      value.SizeEstimate(),
		createdAt:      now,
		lastAccessedAt: now,
		expiry:         now.Add(c.ttl),
	}

	elem := c.lru.PushFront(ent)
	c.entries[fingerprint] = elem
	c.sizeBytes += ent.sizeBytes

	keys, ok := c.byUser[userID]
	if !ok {
		keys = make(map[string]struct{})
		c.byUser[userID] = keys
	}
	keys[fingerprint] = struct{}{}

	c.evictOverBudgetLocked()
}

// GetOrCompute returns the cached result for a fingerprint, or runs
// compute to produce it. Concurrent calls for the same fingerprint are
// coalesced into one upstream computation; every caller that did not
// find a cached value records a miss. A compute error is returned to
// all waiters and never stored. A closed cache reports
// common.ErrCacheUnavailable so callers can execute directly instead.
func (c *ResultCache) GetOrCompute(ctx context.Context, fingerprint, userID string, compute func(context.Context) (model.AggregateResult, error)) (model.AggregateResult, error) {
	if c.closed.Load() {
		return model.AggregateResult{}, common.ErrCacheUnavailable
	}

	if value, found := c.Get(fingerprint); found {
		return value, nil
	}

	v, err, _ := c.flight.Do(fingerprint, func() (any, error) {
		// A racing caller may have stored the value while we waited
		// for the flight slot.
		if value, found := c.peek(fingerprint); found {
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(fingerprint, userID, value)
		return value, nil
	})
	if err != nil {
		return model.AggregateResult{}, err
	}
	return v.(model.AggregateResult), nil
}

// peek is Get without counter updates, used inside a coalesced flight
// so one request never records both a miss and a hit.
func (c *ResultCache) peek(fingerprint string) (model.AggregateResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.entries[fingerprint]
	if !exists {
		return model.AggregateResult{}, false
	}
	ent := elem.Value.(*entry)
	if time.Now().After(ent.expiry) {
		return model.AggregateResult{}, false
	}
	return ent.value, true
}

// InvalidateUser removes every cached entry derived for the given user.
// The ingestion pipeline calls this after persisting new receipts so no
// stale answer outlives its data.
func (c *ResultCache) InvalidateUser(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.byUser[userID]
	if !ok {
		return 0
	}

	removed := 0
	for key := range keys {
		if elem, exists := c.entries[key]; exists {
			c.removeLocked(elem)
			removed++
		}
	}
	return removed
}

// Clear removes all entries and resets the statistics counters.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.byUser = make(map[string]map[string]struct{})
	c.lru.Init()
	c.sizeBytes = 0
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// Stats returns a snapshot of the cache counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	size := len(c.entries)
	sizeBytes := c.sizeBytes
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		SizeBytes: sizeBytes,
		HitCount:  hits,
		MissCount: misses,
		Evictions: c.evictions.Load(),
		HitRate:   hitRate,
	}
}

// Close stops the background sweep goroutine and marks the cache
// unavailable for further lookups.
func (c *ResultCache) Close() {
	c.stopOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopCh)
	})
}

// removeLocked unlinks an entry from every index. Callers hold c.mu.
func (c *ResultCache) removeLocked(elem *list.Element) {
	ent := elem.Value.(*entry)
	c.lru.Remove(elem)
	delete(c.entries, ent.key)
	c.sizeBytes -= ent.sizeBytes

	if keys, ok := c.byUser[ent.userID]; ok {
		delete(keys, ent.key)
		if len(keys) == 0 {
			delete(c.byUser, ent.userID)
		}
	}
}

// evictOverBudgetLocked removes expired entries first, then the least
// recently used, until the memory budget is satisfied. Callers hold c.mu.
func (c *ResultCache) evictOverBudgetLocked() {
	if c.sizeBytes <= c.maxBytes {
		return
	}

	now := time.Now()
	for elem := c.lru.Back(); elem != nil && c.sizeBytes > c.maxBytes; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry).expiry) {
			c.removeLocked(elem)
			c.evictions.Add(1)
		}
		elem = prev
	}

	for c.sizeBytes > c.maxBytes {
		elem := c.lru.Back()
		if elem == nil {
			return
		}
		c.removeLocked(elem)
		c.evictions.Add(1)
	}
}

// sweep periodically evicts expired entries in bounded batches so the
// lock is never held for an unbounded period.
func (c *ResultCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			for c.sweepBatch() {
			}
		}
	}
}

// sweepBatch removes up to sweepBatchSize expired entries under one
// lock acquisition and reports whether a full batch was removed,
// meaning more expired entries may remain.
func (c *ResultCache) sweepBatch() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.lru.Back(); elem != nil && removed < sweepBatchSize; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry).expiry) {
			c.removeLocked(elem)
			c.evictions.Add(1)
			removed++
		}
		elem = prev
	}
	return removed == sweepBatchSize
}
