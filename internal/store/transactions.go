package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"campus-marketplace/internal/models"

	"github.com/jmoiron/sqlx"
)

const transactionColumns = "t.id, t.listing_id, t.buyer_id, t.final_price, t.status, t.created_at, t.updated_at"

// CreateTransaction inserts a purchase record. A second PENDING row for the
// same listing is rejected by the database and reported as ErrDuplicateTransaction.
func (q *queries) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, listing_id, buyer_id, final_price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := sqlx.GetContext(ctx, q.ext, tx, query,
		tx.ID, tx.ListingID, tx.BuyerID, tx.FinalPrice, tx.Status)
	if isUniqueViolation(err) {
		return models.NewError(models.ErrDuplicateTransaction, "listing %s", tx.ListingID)
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by ID
func (q *queries) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := sqlx.GetContext(ctx, q.ext, &tx,
		"SELECT "+transactionColumns+" FROM transactions t WHERE t.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewError(models.ErrNotFound, "transaction %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

// FindTransactionsByListing retrieves every transaction of a listing, newest first
func (q *queries) FindTransactionsByListing(ctx context.Context, listingID string) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	err := sqlx.SelectContext(ctx, q.ext, &txs,
		"SELECT "+transactionColumns+" FROM transactions t WHERE t.listing_id = $1 ORDER BY t.created_at DESC",
		listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transactions for listing: %w", err)
	}
	return txs, nil
}

// ListTransactions retrieves transactions matching the filter, newest first
func (q *queries) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	var (
		conds []string
		args  []interface{}
	)
	query := "SELECT " + transactionColumns + " FROM transactions t"
	if filter.SellerID != "" {
		query += " JOIN listings l ON l.id = t.listing_id"
		args = append(args, filter.SellerID)
		conds = append(conds, fmt.Sprintf("l.seller_id = $%d", len(args)))
	}
	if filter.BuyerID != "" {
		args = append(args, filter.BuyerID)
		conds = append(conds, fmt.Sprintf("t.buyer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.created_at DESC"

	txs := []models.Transaction{}
	if err := sqlx.SelectContext(ctx, q.ext, &txs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// CompareAndSetTransactionStatus updates status only when the row still holds expected
func (q *queries) CompareAndSetTransactionStatus(ctx context.Context, id string, expected, next models.TransactionStatus) (bool, error) {
	res, err := q.ext.ExecContext(ctx,
		"UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		next, id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return rowsChanged(res)
}
