package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/cache"
	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/compose"
	"github.com/Veraticus/paper-trail/internal/executor"
	"github.com/Veraticus/paper-trail/internal/intent"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/service"
)

var anchor = time.Date(2024, time.June, 12, 15, 30, 0, 0, time.UTC)

// mockStore implements service.ReceiptStore with programmable results.
type mockStore struct {
	sumFn    func(service.ReceiptFilter) (float64, error)
	sumCalls int
}

func (m *mockStore) AggregateSum(_ context.Context, filter service.ReceiptFilter) (float64, error) {
	m.sumCalls++
	if m.sumFn != nil {
		return m.sumFn(filter)
	}
	return 0, nil
}

func (m *mockStore) GroupByMerchant(context.Context, service.ReceiptFilter) ([]model.MerchantTotal, error) {
	return nil, nil
}

func (m *mockStore) FindMany(context.Context, service.ReceiptFilter) ([]model.Receipt, error) {
	return nil, nil
}

func (m *mockStore) SaveReceipts(context.Context, []model.Receipt) error { return nil }
func (m *mockStore) Migrate(context.Context) error                      { return nil }
func (m *mockStore) Close() error                                       { return nil }

func newOrchestrator(t *testing.T, store service.ReceiptStore) (*Orchestrator, *cache.ResultCache) {
	t.Helper()
	resultCache := cache.New(cache.Config{})
	t.Cleanup(resultCache.Close)

	o := New(
		intent.New(func() time.Time { return anchor }),
		executor.New(store, time.Second),
		resultCache,
	)
	return o, resultCache
}

func TestHandleQueryVendorSpend(t *testing.T) {
	store := &mockStore{
		sumFn: func(service.ReceiptFilter) (float64, error) { return 45.92, nil },
	}
	o, _ := newOrchestrator(t, store)

	resp := o.HandleQuery(context.Background(), "How much did I spend at Chick-fil-A?", "user-1")

	assert.Contains(t, resp.Message, "$45.92")
	assert.Equal(t, model.IntentVendorSpend, resp.Data.Kind)
	assert.Equal(t, 45.92, resp.Data.Total)
	assert.False(t, resp.Data.Failed())
}

func TestHandleQueryEmptyInput(t *testing.T) {
	store := &mockStore{}
	o, resultCache := newOrchestrator(t, store)

	for _, input := range []string{"", "   ", "\t\n"} {
		resp := o.HandleQuery(context.Background(), input, "user-1")
		assert.Equal(t, compose.InvalidInputMessage, resp.Message)
		assert.Equal(t, "InvalidInput", resp.Data.Err)
	}

	// Invalid input never reaches classification, the store, or the cache.
	assert.Equal(t, 0, store.sumCalls)
	assert.Equal(t, 0, resultCache.Stats().Size)
}

func TestHandleQueryCachesResults(t *testing.T) {
	store := &mockStore{
		sumFn: func(service.ReceiptFilter) (float64, error) { return 10, nil },
	}
	o, resultCache := newOrchestrator(t, store)
	ctx := context.Background()

	first := o.HandleQuery(ctx, "how much did I spend at starbucks?", "user-1")
	second := o.HandleQuery(ctx, "how much did I spend at starbucks?", "user-1")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.sumCalls, "second query should be served from cache")

	stats := resultCache.Stats()
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
}

func TestHandleQueryParaphrasesShareCacheEntry(t *testing.T) {
	store := &mockStore{
		sumFn: func(service.ReceiptFilter) (float64, error) { return 45.92, nil },
	}
	o, _ := newOrchestrator(t, store)
	ctx := context.Background()

	_ = o.HandleQuery(ctx, "How much did I spend at Chick-fil-A?", "user-1")
	_ = o.HandleQuery(ctx, "how much did I spend at chick fil a?", "user-1")

	// The fingerprint is built from the resolved intent, not the raw
	// text, so the spellings share one computation.
	assert.Equal(t, 1, store.sumCalls)
}

func TestHandleQueryDataUnavailable(t *testing.T) {
	store := &mockStore{
		sumFn: func(service.ReceiptFilter) (float64, error) {
			return 0, errors.New("connection refused")
		},
	}
	o, resultCache := newOrchestrator(t, store)

	resp := o.HandleQuery(context.Background(), "how much did I spend at starbucks?", "user-1")

	assert.Equal(t, compose.DataUnavailableMessage, resp.Message)
	assert.Equal(t, "DataUnavailable", resp.Data.Err)

	// Failures are never memoized: the fingerprint must not be in the
	// cache, and a retry hits the store again.
	assert.Equal(t, 0, resultCache.Stats().Size)

	_ = o.HandleQuery(context.Background(), "how much did I spend at starbucks?", "user-1")
	assert.Equal(t, 2, store.sumCalls)
}

func TestHandleQueryNilCacheDegradesToDirect(t *testing.T) {
	store := &mockStore{
		sumFn: func(service.ReceiptFilter) (float64, error) { return 5, nil },
	}
	o := New(
		intent.New(func() time.Time { return anchor }),
		executor.New(store, time.Second),
		nil,
	)
	ctx := context.Background()

	first := o.HandleQuery(ctx, "how much did I spend?", "user-1")
	second := o.HandleQuery(ctx, "how much did I spend?", "user-1")

	require.False(t, first.Data.Failed())
	assert.Equal(t, first.Message, second.Message)
	assert.Equal(t, 2, store.sumCalls, "without a cache every query executes")
}

func TestHandleQueryAlwaysReturnsMessageAndData(t *testing.T) {
	store := &mockStore{}
	o, _ := newOrchestrator(t, store)

	inputs := []string{
		"",
		"how much did I spend?",
		"what's my food spending?",
		"top merchants last month",
		"any unusual purchases?",
		"complete gibberish xyzzy",
	}
	for _, input := range inputs {
		resp := o.HandleQuery(context.Background(), input, "user-1")
		assert.NotEmpty(t, resp.Message, "input %q", input)
	}
}

func TestHandleQueryClosedCacheDegradesToDirect(t *testing.T) {
	store := &mockStore{
		sumFn: func(service.ReceiptFilter) (float64, error) { return 12.34, nil },
	}
	resultCache := cache.New(cache.Config{})
	resultCache.Close()
	o := New(
		intent.New(func() time.Time { return anchor }),
		executor.New(store, time.Second),
		resultCache,
	)
	ctx := context.Background()

	first := o.HandleQuery(ctx, "how much did I spend at starbucks?", "user-1")
	second := o.HandleQuery(ctx, "how much did I spend at starbucks?", "user-1")

	require.False(t, first.Data.Failed())
	assert.Contains(t, first.Message, "$12.34")
	assert.Equal(t, first.Message, second.Message)
	assert.Equal(t, 2, store.sumCalls, "a closed cache should fall back to direct execution")
}

func TestErrorMarkersDeriveFromTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "invalid input",
			err:  fmt.Errorf("%w: empty text", common.ErrInvalidInput),
			want: "InvalidInput",
		},
		{
			name: "cache unavailable",
			err:  common.ErrCacheUnavailable,
			want: "CacheUnavailable",
		},
		{
			name: "wrapped store failure",
			err:  fmt.Errorf("%w: connection refused", common.ErrDataUnavailable),
			want: "DataUnavailable",
		},
		{
			name: "unclassified failure",
			err:  errors.New("something broke"),
			want: "DataUnavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMarker(tt.err))
		})
	}
}
