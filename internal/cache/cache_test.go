package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

func newTestCache(t *testing.T, cfg Config) *ResultCache {
	t.Helper()
	c := New(cfg)
	t.Cleanup(c.Close)
	return c
}

func result(total float64) model.AggregateResult {
	return model.AggregateResult{Kind: model.IntentTimeSpend, Total: total}
}

func TestCacheBasicOperations(t *testing.T) {
	c := newTestCache(t, Config{TTL: 5 * time.Minute})

	_, found := c.Get("missing")
	assert.False(t, found)

	c.Set("key1", "user-1", result(42.50))

	got, found := c.Get("key1")
	require.True(t, found)
	assert.Equal(t, 42.50, got.Total)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t, Config{TTL: 50 * time.Millisecond, SweepInterval: time.Hour})

	c.Set("key", "user-1", result(10))

	_, found := c.Get("key")
	require.True(t, found)

	time.Sleep(100 * time.Millisecond)

	// Expired entries are a miss and are removed lazily on access.
	_, found = c.Get("key")
	assert.False(t, found)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCacheClear(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("a", "user-1", result(1))
	c.Set("b", "user-2", result(2))
	_, _ = c.Get("a")

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(0), stats.HitCount)
	assert.Equal(t, int64(0), stats.MissCount)

	_, found := c.Get("a")
	assert.False(t, found)
}

func TestCacheInvalidateUser(t *testing.T) {
	c := newTestCache(t, Config{})

	c.Set("u1-a", "user-1", result(1))
	c.Set("u1-b", "user-1", result(2))
	c.Set("u2-a", "user-2", result(3))

	removed := c.InvalidateUser("user-1")
	assert.Equal(t, 2, removed)

	_, found := c.Get("u1-a")
	assert.False(t, found)
	_, found = c.Get("u1-b")
	assert.False(t, found)

	// Other users' entries survive.
	_, found = c.Get("u2-a")
	assert.True(t, found)

	assert.Equal(t, 0, c.InvalidateUser("user-1"))
	assert.Equal(t, 0, c.InvalidateUser("unknown"))
}

func TestCacheLRUEvictionUnderBudget(t *testing.T) {
	// Each result is ~74 bytes; a 400-byte budget holds about five.
	c := newTestCache(t, Config{MaxBytes: 400})

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key-%d", i), "user-1", result(float64(i)))
	}

	stats := c.Stats()
	assert.LessOrEqual(t, stats.SizeBytes, 400)
	assert.Greater(t, stats.Evictions, int64(0))

	// The most recently written entry is never the eviction victim.
	_, found := c.Get("key-9")
	assert.True(t, found)
}

func TestCacheLRUPrefersRecentlyUsed(t *testing.T) {
	c := newTestCache(t, Config{MaxBytes: 200})

	c.Set("old", "user-1", result(1))
	c.Set("fresh", "user-1", result(2))

	// Touch "old" so "fresh" becomes the least recently used.
	_, found := c.Get("old")
	require.True(t, found)

	// Force evictions by overflowing the budget.
	c.Set("extra", "user-1", result(3))

	_, foundOld := c.Get("old")
	_, foundFresh := c.Get("fresh")
	assert.True(t, foundOld || !foundFresh, "LRU order not respected")
}

func TestGetOrComputeStoresValue(t *testing.T) {
	c := newTestCache(t, Config{})
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (model.AggregateResult, error) {
		calls++
		return result(99), nil
	}

	got, err := c.GetOrCompute(ctx, "fp", "user-1", compute)
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.Total)
	assert.Equal(t, 1, calls)

	// Second call is a pure cache hit.
	got, err = c.GetOrCompute(ctx, "fp", "user-1", compute)
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.Total)
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeNeverCachesFailures(t *testing.T) {
	c := newTestCache(t, Config{})
	ctx := context.Background()

	wantErr := errors.New("store down")
	_, err := c.GetOrCompute(ctx, "fp", "user-1", func(context.Context) (model.AggregateResult, error) {
		return model.AggregateResult{}, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// The failure must not be retrievable.
	_, found := c.Get("fp")
	assert.False(t, found)

	// A later successful computation proceeds normally.
	got, err := c.GetOrCompute(ctx, "fp", "user-1", func(context.Context) (model.AggregateResult, error) {
		return result(7), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7.0, got.Total)
}

func TestGetOrComputeCoalescesConcurrentMisses(t *testing.T) {
	c := newTestCache(t, Config{})
	ctx := context.Background()

	const n = 32
	var upstreamCalls atomic.Int64
	release := make(chan struct{})

	compute := func(context.Context) (model.AggregateResult, error) {
		upstreamCalls.Add(1)
		<-release
		return result(123), nil
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := c.GetOrCompute(ctx, "shared", "user-1", compute)
			assert.NoError(t, err)
			assert.Equal(t, 123.0, got.Total)
		}()
	}

	close(start)
	time.Sleep(50 * time.Millisecond) // let callers pile onto the flight
	close(release)
	wg.Wait()

	// Concurrent misses on one fingerprint coalesce to one upstream call.
	assert.Equal(t, int64(1), upstreamCalls.Load())

	// Every caller recorded exactly one counter event.
	stats := c.Stats()
	assert.Equal(t, int64(n), stats.HitCount+stats.MissCount)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := newTestCache(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%10)
				c.Set(key, fmt.Sprintf("user-%d", worker), result(float64(j)))
				_, _ = c.Get(key)
				if j%25 == 0 {
					c.InvalidateUser(fmt.Sprintf("user-%d", worker))
				}
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.GreaterOrEqual(t, stats.HitCount+stats.MissCount, int64(400))
}

func TestCacheSweepEvictsExpired(t *testing.T) {
	c := newTestCache(t, Config{TTL: 20 * time.Millisecond, SweepInterval: 30 * time.Millisecond})

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("key-%d", i), "user-1", result(float64(i)))
	}
	require.Equal(t, 5, c.Stats().Size)

	assert.Eventually(t, func() bool {
		return c.Stats().Size == 0
	}, time.Second, 10*time.Millisecond)
}

func TestGetOrComputeAfterClose(t *testing.T) {
	c := New(Config{TTL: 5 * time.Minute})
	c.Close()

	computed := false
	_, err := c.GetOrCompute(context.Background(), "key1", "user-1", func(context.Context) (model.AggregateResult, error) {
		computed = true
		return result(10), nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCacheUnavailable)
	assert.False(t, computed, "a closed cache should not run the computation")
}
