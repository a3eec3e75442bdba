package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/service"
)

// SaveReceipts persists multiple receipts in a single transaction.
// Receipts with an existing id are ignored rather than duplicated.
func (s *SQLiteStorage) SaveReceipts(ctx context.Context, receipts []model.Receipt) error {
	if err := validateContext(ctx); err != nil {
		return &common.RetryableError{Err: err, Retryable: false}
	}
	if err := validateReceipts(receipts); err != nil {
		// Malformed receipts stay malformed; retrying a save is wasted work.
		return &common.RetryableError{Err: err, Retryable: false}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO receipts (
			id, user_id, merchant, category, total, purchase_date
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range receipts {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.UserID, r.Merchant, r.Category, r.Total, r.PurchaseDate,
		); err != nil {
			return fmt.Errorf("failed to insert receipt %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// AggregateSum returns the total of all receipt amounts matching the
// filter. An empty match set sums to zero, not an error.
func (s *SQLiteStorage) AggregateSum(ctx context.Context, filter service.ReceiptFilter) (float64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateFilter(filter); err != nil {
		return 0, err
	}

	where, args := buildFilterClause(filter)
	query := "SELECT COALESCE(SUM(total), 0) FROM receipts WHERE " + where

	var total float64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to aggregate receipts: %w", err)
	}
	return total, nil
}

// GroupByMerchant returns per-merchant totals for receipts matching the
// filter, ordered by total descending.
func (s *SQLiteStorage) GroupByMerchant(ctx context.Context, filter service.ReceiptFilter) ([]model.MerchantTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	where, args := buildFilterClause(filter)
	query := `SELECT merchant, SUM(total) AS total FROM receipts WHERE ` + where +
		` GROUP BY merchant ORDER BY total DESC, merchant ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group receipts by merchant: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var totals []model.MerchantTotal
	for rows.Next() {
		var mt model.MerchantTotal
		if err := rows.Scan(&mt.Merchant, &mt.Total); err != nil {
			return nil, fmt.Errorf("failed to scan merchant total: %w", err)
		}
		totals = append(totals, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate merchant totals: %w", err)
	}
	return totals, nil
}

// FindMany returns the receipts matching the filter, ordered by
// purchase date ascending.
func (s *SQLiteStorage) FindMany(ctx context.Context, filter service.ReceiptFilter) ([]model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	where, args := buildFilterClause(filter)
	query := `SELECT id, user_id, merchant, category, total, purchase_date, created_at
		FROM receipts WHERE ` + where + ` ORDER BY purchase_date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []model.Receipt
	for rows.Next() {
		var r model.Receipt
		var category sql.NullString
		var createdAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.UserID, &r.Merchant, &category, &r.Total, &r.PurchaseDate, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		r.Category = category.String
		if createdAt.Valid {
			r.CreatedAt = createdAt.Time
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	return receipts, nil
}

// buildFilterClause renders a receipt filter as a WHERE clause plus its
// bound arguments. Merchant and category term lists become disjunctions
// of case-insensitive substring matches. The date range is inclusive on
// both ends.
func buildFilterClause(filter service.ReceiptFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{filter.UserID}

	if !filter.Start.IsZero() {
		clauses = append(clauses, "purchase_date >= ?")
		args = append(args, filter.Start)
	}
	if !filter.End.IsZero() {
		clauses = append(clauses, "purchase_date <= ?")
		args = append(args, filter.End)
	}

	if terms := likeDisjunction("merchant", filter.MerchantTerms); terms.clause != "" {
		clauses = append(clauses, terms.clause)
		args = append(args, terms.args...)
	}
	if terms := likeDisjunction("category", filter.CategoryTerms); terms.clause != "" {
		clauses = append(clauses, terms.clause)
		args = append(args, terms.args...)
	}

	return strings.Join(clauses, " AND "), args
}

type disjunction struct {
	clause string
	args   []any
}

func likeDisjunction(column string, terms []string) disjunction {
	if len(terms) == 0 {
		return disjunction{}
	}
	parts := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms))
	for _, term := range terms {
		parts = append(parts, fmt.Sprintf("LOWER(%s) LIKE ?", column))
		args = append(args, "%"+strings.ToLower(term)+"%")
	}
	return disjunction{
		clause: "(" + strings.Join(parts, " OR ") + ")",
		args:   args,
	}
}

// ReceiptCount returns the number of stored receipts for a user, used
// by the import command for reporting.
func (s *SQLiteStorage) ReceiptCount(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM receipts WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count receipts: %w", err)
	}
	return count, nil
}
