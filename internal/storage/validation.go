package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/service"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidReceipt   = errors.New("invalid receipt")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateFilter ensures a receipt filter is well formed.
func validateFilter(filter service.ReceiptFilter) error {
	if err := validateString(filter.UserID, "userID"); err != nil {
		return err
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && filter.End.Before(filter.Start) {
		return ErrInvalidDateRange
	}
	return nil
}

// validateReceipts validates a slice of receipts before persistence.
func validateReceipts(receipts []model.Receipt) error {
	if receipts == nil {
		return fmt.Errorf("%w: receipts", ErrNilParameter)
	}
	if len(receipts) == 0 {
		return fmt.Errorf("%w: receipts", ErrEmptySlice)
	}
	for i, r := range receipts {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("%w: receipt %d has no id", ErrInvalidReceipt, i)
		}
		if strings.TrimSpace(r.UserID) == "" {
			return fmt.Errorf("%w: receipt %d has no user id", ErrInvalidReceipt, i)
		}
		if r.PurchaseDate.IsZero() {
			return fmt.Errorf("%w: receipt %d has no purchase date", ErrInvalidReceipt, i)
		}
	}
	return nil
}
