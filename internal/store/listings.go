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

const listingColumns = "id, seller_id, title, description, price, status, created_at, updated_at"

// CreateListing inserts a new listing
func (q *queries) CreateListing(ctx context.Context, listing *models.Listing) error {
	query := `
		INSERT INTO listings (id, seller_id, title, description, price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	return sqlx.GetContext(ctx, q.ext, listing, query,
		listing.ID, listing.SellerID, listing.Title, listing.Description, listing.Price, listing.Status)
}

// GetListing retrieves a listing by ID
func (q *queries) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	err := sqlx.GetContext(ctx, q.ext, &listing,
		"SELECT "+listingColumns+" FROM listings WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewError(models.ErrNotFound, "listing %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// ListListings retrieves listings matching the filter, newest first
func (q *queries) ListListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.SellerID != "" {
		args = append(args, filter.SellerID)
		conds = append(conds, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := "SELECT " + listingColumns + " FROM listings"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	listings := []models.Listing{}
	if err := sqlx.SelectContext(ctx, q.ext, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// CompareAndSetListingStatus updates status only when the row still holds expected
func (q *queries) CompareAndSetListingStatus(ctx context.Context, id string, expected, next models.ListingStatus) (bool, error) {
	res, err := q.ext.ExecContext(ctx,
		"UPDATE listings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		next, id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update listing status: %w", err)
	}
	return rowsChanged(res)
}
