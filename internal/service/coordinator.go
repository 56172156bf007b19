package service

import (
	"context"
	"fmt"
	"time"

	"campus-marketplace/internal/models"
	"campus-marketplace/internal/store"
	"campus-marketplace/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// notifyTimeout bounds how long a committed transition waits on the notifier
const notifyTimeout = 3 * time.Second

// EventPublisher receives lifecycle events after commit
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *models.TransactionEvent) error
}

// IdempotencyStore remembers which transaction a client key produced
type IdempotencyStore interface {
	// Claim reserves key. If it is taken, existing is the stored transaction
	// id, or empty while the first request is still running.
	Claim(ctx context.Context, key string) (claimed bool, existing string, err error)
	Complete(ctx context.Context, key, transactionID string) error
	Release(ctx context.Context, key string) error
}

// Policy holds business switches
type Policy struct {
	// AllowReofferAfterReject lets a listing that went back to ACTIVE after a
	// rejection be requested again. When false any earlier transaction row
	// blocks a new request.
	AllowReofferAfterReject bool
}

// Coordinator is the only writer of listing and transaction statuses.
// Each operation checks its preconditions and applies both status changes
// inside one atomic unit. Races are settled by the store's conditional
// updates; the losing caller gets an error straight away.
type Coordinator struct {
	backend     store.Backend
	notifier    Notifier
	events      EventPublisher
	idempotency IdempotencyStore
	policy      Policy
	logger      *zap.Logger
}

// NewCoordinator creates a new lifecycle coordinator. events and idempotency may be nil.
func NewCoordinator(
	backend store.Backend,
	notifier Notifier,
	events EventPublisher,
	idempotency IdempotencyStore,
	policy Policy,
) *Coordinator {
	return &Coordinator{
		backend:     backend,
		notifier:    notifier,
		events:      events,
		idempotency: idempotency,
		policy:      policy,
		logger:      util.GetLogger(),
	}
}

// RequestToBuyRequest represents a buyer's purchase request
type RequestToBuyRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	BuyerID   string `json:"buyer_id" binding:"required"`
}

// SellerActionRequest identifies the seller accepting or rejecting a transaction
type SellerActionRequest struct {
	SellerID string `json:"seller_id" binding:"required"`
}

// RequestToBuy opens a PENDING transaction for an ACTIVE listing and moves
// the listing to PENDING.
func (c *Coordinator) RequestToBuy(ctx context.Context, listingID, buyerID string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "Coordinator.RequestToBuy",
		attribute.String("listing_id", listingID),
		attribute.String("buyer_id", buyerID))
	start := time.Now()

	var listing *models.Listing
	var tx *models.Transaction
	err := c.backend.WithinTx(ctx, func(repo store.Repository) error {
		l, err := repo.GetListing(ctx, listingID)
		if err != nil {
			return err
		}

		exists, err := repo.UserExists(ctx, buyerID)
		if err != nil {
			return err
		}
		if !exists {
			return models.NewError(models.ErrNotFound, "buyer %s", buyerID)
		}

		if l.SellerID == buyerID {
			return models.NewError(models.ErrSelfPurchase, "listing %s", listingID)
		}
		if l.Status != models.ListingStatusActive {
			return models.NewError(models.ErrNotAvailable, "listing %s is %s", listingID, l.Status)
		}
		if err := c.checkOpenTransactions(ctx, repo, listingID); err != nil {
			return err
		}

		claimed, err := repo.CompareAndSetListingStatus(ctx, listingID,
			models.ListingStatusActive, models.ListingStatusPending)
		if err != nil {
			return err
		}
		if !claimed {
			return models.NewError(models.ErrNotAvailable, "listing %s was claimed by another request", listingID)
		}

		t := &models.Transaction{
			ID:         uuid.New().String(),
			ListingID:  listingID,
			BuyerID:    buyerID,
			FinalPrice: l.Price,
			Status:     models.TransactionStatusPending,
		}
		if err := repo.CreateTransaction(ctx, t); err != nil {
			return err
		}

		l.Status = models.ListingStatusPending
		listing, tx = l, t
		return nil
	})
	c.observe(opRequestToBuy, start, err)
	util.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	util.PurchaseRequestsTotal.Inc()
	c.logger.Info("Purchase requested",
		zap.String("transaction_id", tx.ID),
		zap.String("listing_id", listingID),
		zap.String("buyer_id", buyerID),
		zap.String("final_price", tx.FinalPrice.StringFixed(2)))

	c.notify(ctx, listing.ID, buyerID, listing.SellerID, purchaseRequestText(listing))
	c.publish(ctx, models.EventTypeTransactionRequested, tx, listing, "")
	return tx, nil
}

// RequestToBuyOnce is RequestToBuy guarded by a client supplied key. A
// repeated key returns the transaction the first call created. Without a key
// or an idempotency store it behaves like RequestToBuy.
func (c *Coordinator) RequestToBuyOnce(ctx context.Context, key, listingID, buyerID string) (*models.Transaction, bool, error) {
	if key == "" || c.idempotency == nil {
		tx, err := c.RequestToBuy(ctx, listingID, buyerID)
		return tx, false, err
	}

	scoped := fmt.Sprintf("request-to-buy:%s:%s:%s", buyerID, listingID, key)
	claimed, existing, err := c.idempotency.Claim(ctx, scoped)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if !claimed {
		if existing == "" {
			return nil, false, models.NewError(models.ErrDuplicateTransaction,
				"a request with idempotency key %s is still in progress", key)
		}
		tx, err := c.backend.GetTransaction(ctx, existing)
		if err != nil {
			return nil, false, err
		}
		util.IdempotentReplaysTotal.Inc()
		c.logger.Info("Duplicate purchase request detected",
			zap.String("idempotency_key", key),
			zap.String("transaction_id", tx.ID))
		return tx, true, nil
	}

	tx, err := c.RequestToBuy(ctx, listingID, buyerID)

	// The claim must be settled even when the request context is done.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err != nil {
		if relErr := c.idempotency.Release(settleCtx, scoped); relErr != nil {
			c.logger.Warn("Failed to release idempotency key",
				zap.String("idempotency_key", key), zap.Error(relErr))
		}
		return nil, false, err
	}
	if err := c.idempotency.Complete(settleCtx, scoped, tx.ID); err != nil {
		c.logger.Warn("Failed to store idempotency result",
			zap.String("idempotency_key", key), zap.Error(err))
	}
	return tx, false, nil
}

// checkOpenTransactions applies the re-offer policy to the listing's history
func (c *Coordinator) checkOpenTransactions(ctx context.Context, repo store.TransactionRepository, listingID string) error {
	existing, err := repo.FindTransactionsByListing(ctx, listingID)
	if err != nil {
		return err
	}
	for _, t := range existing {
		if !c.policy.AllowReofferAfterReject || t.Status == models.TransactionStatusPending {
			return models.NewError(models.ErrDuplicateTransaction,
				"listing %s already has transaction %s (%s)", listingID, t.ID, t.Status)
		}
	}
	return nil
}

// notify runs after commit. Failures are logged and counted, never returned.
func (c *Coordinator) notify(ctx context.Context, listingID, fromUserID, toUserID, text string) {
	if c.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := c.notifier.Notify(ctx, listingID, fromUserID, toUserID, text); err != nil {
		util.NotificationsFailedTotal.Inc()
		c.logger.Error("Failed to send notification",
			zap.String("listing_id", listingID),
			zap.String("to_user_id", toUserID),
			zap.Error(err))
	}
}

func (c *Coordinator) publish(ctx context.Context, eventType string, tx *models.Transaction, listing *models.Listing, previous models.TransactionStatus) {
	if c.events == nil {
		return
	}
	event := &models.TransactionEvent{
		BaseEvent:         models.NewBaseEvent(eventType),
		TransactionID:     tx.ID,
		ListingID:         tx.ListingID,
		BuyerID:           tx.BuyerID,
		SellerID:          listing.SellerID,
		FinalPrice:        tx.FinalPrice,
		PreviousStatus:    previous,
		TransactionStatus: tx.Status,
		ListingStatus:     listing.Status,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := c.events.PublishTransactionEvent(ctx, event); err != nil {
		util.EventsPublishFailedTotal.Inc()
		c.logger.Error("Failed to publish lifecycle event",
			zap.String("event_type", eventType),
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
	}
}

const (
	opRequestToBuy    = "request_to_buy"
	opAccept          = "accept"
	opReject          = "reject"
	opSetStatus       = "set_transaction_status"
	opSetAvailability = "set_listing_availability"
	opCreateListing   = "create_listing"
)

func (c *Coordinator) observe(operation string, start time.Time, err error) {
	util.TransitionLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		util.LifecycleFailuresTotal.WithLabelValues(operation, models.ErrorCode(err)).Inc()
		c.logger.Debug("Lifecycle operation failed",
			zap.String("operation", operation),
			zap.Error(err))
	}
}
