package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ListingStatus is the availability of a listing
type ListingStatus string

// Listing statuses
const (
	ListingStatusActive   ListingStatus = "ACTIVE"
	ListingStatusPending  ListingStatus = "PENDING"
	ListingStatusSold     ListingStatus = "SOLD"
	ListingStatusDraft    ListingStatus = "DRAFT"
	ListingStatusDisabled ListingStatus = "DISABLED"
)

// TransactionStatus is the state of a purchase attempt
type TransactionStatus string

// Transaction statuses
const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
)

// ParseListingStatus validates a listing status string
func ParseListingStatus(s string) (ListingStatus, error) {
	switch st := ListingStatus(normalizeStatus(s)); st {
	case ListingStatusActive, ListingStatusPending, ListingStatusSold, ListingStatusDraft, ListingStatusDisabled:
		return st, nil
	}
	return "", NewError(ErrInvalidStatus, "unknown listing status %q", s)
}

// ParseTransactionStatus validates a transaction status string
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(normalizeStatus(s)); st {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusCancelled, TransactionStatusRefunded:
		return st, nil
	}
	return "", NewError(ErrInvalidStatus, "unknown transaction status %q", s)
}

// Statuses are matched regardless of case and surrounding blanks
func normalizeStatus(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// User is the subset of a marketplace account the lifecycle needs
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Listing represents an item offered for sale
type Listing struct {
	ID          string          `db:"id" json:"id"`
	SellerID    string          `db:"seller_id" json:"seller_id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Status      ListingStatus   `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction represents a single purchase attempt of a listing
type Transaction struct {
	ID         string            `db:"id" json:"id"`
	ListingID  string            `db:"listing_id" json:"listing_id"`
	BuyerID    string            `db:"buyer_id" json:"buyer_id"`
	FinalPrice decimal.Decimal   `db:"final_price" json:"final_price"`
	Status     TransactionStatus `db:"status" json:"status"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// Message is a note from one user to another about a listing
type Message struct {
	ID         string    `db:"id" json:"id"`
	ListingID  string    `db:"listing_id" json:"listing_id"`
	FromUserID string    `db:"from_user_id" json:"from_user_id"`
	ToUserID   string    `db:"to_user_id" json:"to_user_id"`
	Content    string    `db:"content" json:"content"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TransactionFilter narrows reporting queries; empty fields match everything
type TransactionFilter struct {
	BuyerID  string
	SellerID string
	Status   TransactionStatus
}

// ListingFilter narrows listing queries; empty fields match everything
type ListingFilter struct {
	SellerID string
	Status   ListingStatus
}
