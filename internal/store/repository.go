package store

import (
	"context"

	"campus-marketplace/internal/models"
)

// ListingRepository persists listings. Status changes go through
// CompareAndSetListingStatus only.
type ListingRepository interface {
	CreateListing(ctx context.Context, listing *models.Listing) error
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	ListListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
	// CompareAndSetListingStatus sets next only if the row still has expected.
	// It reports whether a row was changed.
	CompareAndSetListingStatus(ctx context.Context, id string, expected, next models.ListingStatus) (bool, error)
}

// TransactionRepository persists purchase records
type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	FindTransactionsByListing(ctx context.Context, listingID string) ([]models.Transaction, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	// CompareAndSetTransactionStatus sets next only if the row still has expected.
	// It reports whether a row was changed.
	CompareAndSetTransactionStatus(ctx context.Context, id string, expected, next models.TransactionStatus) (bool, error)
}

// UserRepository answers existence checks against the user directory
type UserRepository interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

// MessageRepository persists messages between users
type MessageRepository interface {
	// CreateMessage is a no-op when a message with the same id exists
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessagesForRecipient(ctx context.Context, userID string) ([]models.Message, error)
}

// Repository is the full set of store operations
type Repository interface {
	ListingRepository
	TransactionRepository
	UserRepository
	MessageRepository
}

// Atomic runs fn against a repository bound to a single unit of work.
// Any error returned by fn discards every write fn made.
type Atomic interface {
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

// Backend is a repository that can also open atomic units
type Backend interface {
	Repository
	Atomic
	Ping(ctx context.Context) error
}
