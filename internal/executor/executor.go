// Package executor runs resolved query intents against the receipt store.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/service"
	"github.com/Veraticus/paper-trail/internal/vendor"
)

const (
	// DefaultTimeout bounds every store call.
	DefaultTimeout = 5 * time.Second

	// AnomalyMultiplier is the threshold factor over the historical
	// per-transaction average above which a purchase is flagged.
	AnomalyMultiplier = 2.0

	// anomalyLookback is how far before the query window the
	// historical baseline reaches.
	anomalyLookback = 365 * 24 * time.Hour
)

// Executor executes resolved intents by delegating aggregation to the
// receipt store.
type Executor struct {
	store   service.ReceiptStore
	timeout time.Duration
}

// New creates an executor over the given store. A zero timeout uses
// the default.
func New(store service.ReceiptStore, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{store: store, timeout: timeout}
}

// Execute runs the aggregation for a resolved intent. Store failures
// and timeouts surface as common.ErrDataUnavailable; a genuinely empty
// aggregate is a zero result, never an error.
func (e *Executor) Execute(ctx context.Context, userID string, intent model.ResolvedIntent) (model.AggregateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.execute(ctx, userID, intent)
	if err != nil {
		slog.Warn("Aggregation failed",
			"user_id", userID,
			"kind", intent.Kind,
			"error", err)
		return model.AggregateResult{}, fmt.Errorf("%w: %v", common.ErrDataUnavailable, err)
	}
	return result, nil
}

func (e *Executor) execute(ctx context.Context, userID string, intent model.ResolvedIntent) (model.AggregateResult, error) {
	filter := service.ReceiptFilter{
		UserID: userID,
		Start:  intent.Timeframe.Start,
		End:    intent.Timeframe.End,
	}

	switch intent.Kind {
	case model.IntentVendorSpend:
		filter.MerchantTerms = vendor.Normalize(intent.Vendor).Variants
		total, err := e.store.AggregateSum(ctx, filter)
		if err != nil {
			return model.AggregateResult{}, err
		}
		return model.AggregateResult{Kind: intent.Kind, Total: total}, nil

	case model.IntentCategorySpend:
		filter.CategoryTerms = []string{intent.Category}
		total, err := e.store.AggregateSum(ctx, filter)
		if err != nil {
			return model.AggregateResult{}, err
		}
		return model.AggregateResult{Kind: intent.Kind, Total: total}, nil

	case model.IntentTimeSpend:
		total, err := e.store.AggregateSum(ctx, filter)
		if err != nil {
			return model.AggregateResult{}, err
		}
		return model.AggregateResult{Kind: intent.Kind, Total: total}, nil

	case model.IntentTopMerchants:
		totals, err := e.store.GroupByMerchant(ctx, filter)
		if err != nil {
			return model.AggregateResult{}, err
		}
		topN := intent.TopN
		if topN <= 0 {
			topN = model.DefaultTopN
		}
		if len(totals) > topN {
			totals = totals[:topN]
		}
		return model.AggregateResult{Kind: intent.Kind, Merchants: totals}, nil

	case model.IntentAnomaly:
		return e.detectAnomalies(ctx, userID, intent)

	default:
		return model.AggregateResult{}, fmt.Errorf("unsupported intent kind: %s", intent.Kind)
	}
}

// detectAnomalies flags purchases in the query window whose amount
// exceeds AnomalyMultiplier times the historical per-transaction
// average. The baseline excludes the window itself; with no history
// the window's own average is the baseline.
func (e *Executor) detectAnomalies(ctx context.Context, userID string, intent model.ResolvedIntent) (model.AggregateResult, error) {
	window, err := e.store.FindMany(ctx, service.ReceiptFilter{
		UserID: userID,
		Start:  intent.Timeframe.Start,
		End:    intent.Timeframe.End,
	})
	if err != nil {
		return model.AggregateResult{}, err
	}
	if len(window) == 0 {
		return model.AggregateResult{Kind: intent.Kind}, nil
	}

	history, err := e.store.FindMany(ctx, service.ReceiptFilter{
		UserID: userID,
		Start:  intent.Timeframe.Start.Add(-anomalyLookback),
		End:    intent.Timeframe.Start.Add(-time.Second),
	})
	if err != nil {
		return model.AggregateResult{}, err
	}

	baseline := mean(history)
	if baseline == 0 {
		baseline = mean(window)
	}

	var outliers []model.Outlier
	for _, r := range window {
		if r.Total > AnomalyMultiplier*baseline {
			outliers = append(outliers, model.Outlier{
				Merchant:     r.Merchant,
				Total:        r.Total,
				PurchaseDate: r.PurchaseDate,
			})
		}
	}

	return model.AggregateResult{Kind: intent.Kind, Outliers: outliers}, nil
}

func mean(receipts []model.Receipt) float64 {
	if len(receipts) == 0 {
		return 0
	}
	var sum float64
	for _, r := range receipts {
		sum += r.Total
	}
	return sum / float64(len(receipts))
}
