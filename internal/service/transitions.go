package service

import (
	"context"
	"time"

	"campus-marketplace/internal/models"
	"campus-marketplace/internal/store"
	"campus-marketplace/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// transition is one allowed transaction status change and the listing
// change that goes with it. An empty ListingTo leaves the listing alone.
type transition struct {
	From        models.TransactionStatus
	To          models.TransactionStatus
	ListingFrom models.ListingStatus
	ListingTo   models.ListingStatus
}

// transitions is closed: nothing moves a transaction back to PENDING.
var transitions = []transition{
	{models.TransactionStatusPending, models.TransactionStatusCompleted, models.ListingStatusPending, models.ListingStatusSold},
	{models.TransactionStatusPending, models.TransactionStatusCancelled, models.ListingStatusPending, models.ListingStatusActive},
	{models.TransactionStatusCompleted, models.TransactionStatusRefunded, "", ""},
}

func lookupTransition(from, to models.TransactionStatus) (transition, bool) {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return transition{}, false
}

// transitionResult is what a committed transition hands to the side effects
type transitionResult struct {
	tx       *models.Transaction
	listing  *models.Listing
	previous models.TransactionStatus
}

// Accept completes a PENDING transaction and marks the listing SOLD
func (c *Coordinator) Accept(ctx context.Context, transactionID, sellerID string) (*models.Transaction, error) {
	res, err := c.sellerTransition(ctx, opAccept, transactionID, sellerID, models.TransactionStatusCompleted)
	if err != nil {
		return nil, err
	}

	util.TransactionsAcceptedTotal.Inc()
	c.logger.Info("Transaction accepted",
		zap.String("transaction_id", transactionID),
		zap.String("listing_id", res.listing.ID))

	c.notify(ctx, res.listing.ID, sellerID, res.tx.BuyerID, acceptedText(res.listing))
	c.publish(ctx, models.EventTypeTransactionAccepted, res.tx, res.listing, res.previous)
	return res.tx, nil
}

// Reject cancels a PENDING transaction and puts the listing back on sale
func (c *Coordinator) Reject(ctx context.Context, transactionID, sellerID string) (*models.Transaction, error) {
	res, err := c.sellerTransition(ctx, opReject, transactionID, sellerID, models.TransactionStatusCancelled)
	if err != nil {
		return nil, err
	}

	util.TransactionsRejectedTotal.Inc()
	c.logger.Info("Transaction rejected",
		zap.String("transaction_id", transactionID),
		zap.String("listing_id", res.listing.ID))

	c.notify(ctx, res.listing.ID, sellerID, res.tx.BuyerID, rejectedText(res.listing))
	c.publish(ctx, models.EventTypeTransactionRejected, res.tx, res.listing, res.previous)
	return res.tx, nil
}

func (c *Coordinator) sellerTransition(ctx context.Context, op, transactionID, sellerID string, target models.TransactionStatus) (*transitionResult, error) {
	ctx, span := util.StartSpan(ctx, "Coordinator."+op,
		attribute.String("transaction_id", transactionID),
		attribute.String("seller_id", sellerID))
	start := time.Now()

	var res *transitionResult
	err := c.backend.WithinTx(ctx, func(repo store.Repository) error {
		var err error
		res, err = applyTransition(ctx, repo, transactionID, target, func(listing *models.Listing) error {
			if listing.SellerID != sellerID {
				return models.NewError(models.ErrForbidden, "user %s is not the seller of listing %s", sellerID, listing.ID)
			}
			return nil
		})
		return err
	})
	c.observe(op, start, err)
	util.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SetTransactionStatus is the administrative override. Only pairs in the
// transition table are accepted; the listing follows the table as well.
func (c *Coordinator) SetTransactionStatus(ctx context.Context, transactionID, status string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "Coordinator.SetTransactionStatus",
		attribute.String("transaction_id", transactionID),
		attribute.String("status", status))
	start := time.Now()

	target, err := models.ParseTransactionStatus(status)
	var res *transitionResult
	if err == nil {
		err = c.backend.WithinTx(ctx, func(repo store.Repository) error {
			var txErr error
			res, txErr = applyTransition(ctx, repo, transactionID, target, nil)
			return txErr
		})
	}
	c.observe(opSetStatus, start, err)
	util.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	util.TransactionStatusOverridesTotal.WithLabelValues(string(target)).Inc()
	c.logger.Info("Transaction status changed",
		zap.String("transaction_id", transactionID),
		zap.String("from", string(res.previous)),
		zap.String("to", string(target)))

	c.publish(ctx, models.EventTypeTransactionStatusChanged, res.tx, res.listing, res.previous)
	return res.tx, nil
}

// applyTransition moves the transaction to target and the listing as the
// table says. authorize, when set, runs after both rows are loaded and
// before the state check.
func applyTransition(
	ctx context.Context,
	repo store.Repository,
	transactionID string,
	target models.TransactionStatus,
	authorize func(*models.Listing) error,
) (*transitionResult, error) {
	tx, err := repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	listing, err := repo.GetListing(ctx, tx.ListingID)
	if err != nil {
		return nil, err
	}
	if authorize != nil {
		if err := authorize(listing); err != nil {
			return nil, err
		}
	}

	tr, ok := lookupTransition(tx.Status, target)
	if !ok {
		return nil, models.NewError(models.ErrInvalidState,
			"transaction %s is %s and cannot become %s", transactionID, tx.Status, target)
	}

	changed, err := repo.CompareAndSetTransactionStatus(ctx, transactionID, tr.From, tr.To)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, models.NewError(models.ErrInvalidState,
			"transaction %s is no longer %s", transactionID, tr.From)
	}

	if tr.ListingTo != "" {
		changed, err := repo.CompareAndSetListingStatus(ctx, listing.ID, tr.ListingFrom, tr.ListingTo)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, models.NewError(models.ErrInvalidState,
				"listing %s is no longer %s", listing.ID, tr.ListingFrom)
		}
		listing.Status = tr.ListingTo
	}

	tx.Status = tr.To
	return &transitionResult{tx: tx, listing: listing, previous: tr.From}, nil
}
