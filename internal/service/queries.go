package service

import (
	"context"

	"campus-marketplace/internal/models"
)

// GetTransaction returns one transaction
func (c *Coordinator) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return c.backend.GetTransaction(ctx, id)
}

// TransactionsForListing returns a listing's transactions, newest first
func (c *Coordinator) TransactionsForListing(ctx context.Context, listingID string) ([]models.Transaction, error) {
	if _, err := c.backend.GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	return c.backend.FindTransactionsByListing(ctx, listingID)
}

// ListTransactions returns transactions matching filter. An unknown status is rejected.
func (c *Coordinator) ListTransactions(ctx context.Context, buyerID, sellerID, status string) ([]models.Transaction, error) {
	filter := models.TransactionFilter{BuyerID: buyerID, SellerID: sellerID}
	if status != "" {
		parsed, err := models.ParseTransactionStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = parsed
	}
	return c.backend.ListTransactions(ctx, filter)
}

// GetListing returns one listing
func (c *Coordinator) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	return c.backend.GetListing(ctx, id)
}

// ListListings returns listings by seller and/or status
func (c *Coordinator) ListListings(ctx context.Context, sellerID, status string) ([]models.Listing, error) {
	filter := models.ListingFilter{SellerID: sellerID}
	if status != "" {
		parsed, err := models.ParseListingStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = parsed
	}
	return c.backend.ListListings(ctx, filter)
}

// MessagesFor returns messages received by userID, newest first
func (c *Coordinator) MessagesFor(ctx context.Context, userID string) ([]models.Message, error) {
	return c.backend.ListMessagesForRecipient(ctx, userID)
}

// Ping checks the backing store
func (c *Coordinator) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}
