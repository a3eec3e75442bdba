// Package ingest persists imported receipts and keeps the result cache
// coherent with new data.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/paper-trail/internal/cache"
	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/ofx"
	"github.com/Veraticus/paper-trail/internal/service"
)

// Service saves receipts and invalidates any cached answers derived
// from the affected user's data. The cache may be nil when no query
// pipeline is running in this process.
type Service struct {
	store    service.ReceiptStore
	cache    *cache.ResultCache
	importer *ofx.Importer
}

// New creates an ingestion service.
func New(store service.ReceiptStore, resultCache *cache.ResultCache) *Service {
	return &Service{
		store:    store,
		cache:    resultCache,
		importer: ofx.NewImporter(),
	}
}

// Save persists receipts and invalidates the user's cached answers.
func (s *Service) Save(ctx context.Context, userID string, receipts []model.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	// SQLite can report busy under concurrent writers; retry briefly
	// before giving up.
	err := common.WithRetry(ctx, func() error {
		return s.store.SaveReceipts(ctx, receipts)
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond})
	if err != nil {
		return fmt.Errorf("failed to save receipts: %w", err)
	}

	if s.cache != nil {
		removed := s.cache.InvalidateUser(userID)
		if removed > 0 {
			slog.Debug("Invalidated cached answers",
				"user_id", userID,
				"entries", removed)
		}
	}

	return nil
}

// ImportFile parses an OFX/QFX statement file and persists its debit
// transactions as receipts for the user.
func (s *Service) ImportFile(ctx context.Context, path, userID string) ([]model.Receipt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	receipts, err := s.importer.Parse(f, userID)
	if err != nil {
		return nil, err
	}

	if err := s.Save(ctx, userID, receipts); err != nil {
		return nil, err
	}

	return receipts, nil
}
