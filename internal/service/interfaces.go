// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/paper-trail/internal/model"
)

// ReceiptFilter defines filtering options for receipt queries. MerchantTerms
// and CategoryTerms are disjunctions of case-insensitive substring matches;
// an empty list means no filter on that field. Start and End bound the
// purchase date, inclusive on both ends.
type ReceiptFilter struct {
	Start         time.Time
	End           time.Time
	UserID        string
	MerchantTerms []string
	CategoryTerms []string
}

// ReceiptStore defines the contract for the receipt persistence layer.
type ReceiptStore interface {
	// Aggregation operations used by the query engine.
	AggregateSum(ctx context.Context, filter ReceiptFilter) (float64, error)
	GroupByMerchant(ctx context.Context, filter ReceiptFilter) ([]model.MerchantTotal, error)
	FindMany(ctx context.Context, filter ReceiptFilter) ([]model.Receipt, error)

	// Ingestion operations.
	SaveReceipts(ctx context.Context, receipts []model.Receipt) error

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
