package service

import (
	"context"
	"strings"
	"time"

	"campus-marketplace/internal/models"
	"campus-marketplace/internal/store"
	"campus-marketplace/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CreateListingRequest represents a seller's new listing
type CreateListingRequest struct {
	SellerID    string          `json:"seller_id" binding:"required"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status,omitempty"`
}

// AvailabilityRequest represents a seller toggling a listing on or off sale
type AvailabilityRequest struct {
	SellerID string `json:"seller_id" binding:"required"`
	Status   string `json:"status" binding:"required"`
}

// maxPrice is the first value that does not fit NUMERIC(10,2)
var maxPrice = decimal.NewFromInt(100000000)

// sellerStatuses are the listing statuses a seller may set directly
var sellerStatuses = map[models.ListingStatus]bool{
	models.ListingStatusActive:   true,
	models.ListingStatusDraft:    true,
	models.ListingStatusDisabled: true,
}

// CreateListing stores a new ACTIVE or DRAFT listing
func (c *Coordinator) CreateListing(ctx context.Context, req *CreateListingRequest) (*models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "Coordinator.CreateListing",
		attribute.String("seller_id", req.SellerID))
	start := time.Now()

	listing, err := c.createListing(ctx, req)
	c.observe(opCreateListing, start, err)
	util.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Listing created",
		zap.String("listing_id", listing.ID),
		zap.String("seller_id", listing.SellerID),
		zap.String("status", string(listing.Status)))
	return listing, nil
}

func (c *Coordinator) createListing(ctx context.Context, req *CreateListingRequest) (*models.Listing, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, models.NewError(models.ErrValidation, "title is required")
	}
	if req.Price.IsNegative() {
		return nil, models.NewError(models.ErrValidation, "price must not be negative")
	}
	if !req.Price.Equal(req.Price.Round(2)) {
		return nil, models.NewError(models.ErrValidation, "price has more than two decimal places")
	}
	if req.Price.GreaterThanOrEqual(maxPrice) {
		return nil, models.NewError(models.ErrValidation, "price must be below %s", maxPrice)
	}

	status := models.ListingStatusActive
	if req.Status != "" {
		parsed, err := models.ParseListingStatus(req.Status)
		if err != nil {
			return nil, err
		}
		if parsed != models.ListingStatusActive && parsed != models.ListingStatusDraft {
			return nil, models.NewError(models.ErrInvalidStatus, "a new listing must be ACTIVE or DRAFT, got %s", parsed)
		}
		status = parsed
	}

	exists, err := c.backend.UserExists(ctx, req.SellerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewError(models.ErrNotFound, "seller %s", req.SellerID)
	}

	listing := &models.Listing{
		ID:          uuid.New().String(),
		SellerID:    req.SellerID,
		Title:       title,
		Description: req.Description,
		Price:       req.Price.Round(2),
		Status:      status,
	}
	if err := c.backend.CreateListing(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// SetListingAvailability lets the seller move a listing among ACTIVE, DRAFT
// and DISABLED. Listings in the purchase flow (PENDING, SOLD) are left alone.
func (c *Coordinator) SetListingAvailability(ctx context.Context, listingID, sellerID, status string) (*models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "Coordinator.SetListingAvailability",
		attribute.String("listing_id", listingID),
		attribute.String("status", status))
	start := time.Now()

	var listing *models.Listing
	target, err := models.ParseListingStatus(status)
	if err == nil && !sellerStatuses[target] {
		err = models.NewError(models.ErrInvalidStatus, "sellers may only set ACTIVE, DRAFT or DISABLED, got %s", target)
	}
	if err == nil {
		err = c.backend.WithinTx(ctx, func(repo store.Repository) error {
			l, err := repo.GetListing(ctx, listingID)
			if err != nil {
				return err
			}
			if l.SellerID != sellerID {
				return models.NewError(models.ErrForbidden, "user %s is not the seller of listing %s", sellerID, listingID)
			}
			if !sellerStatuses[l.Status] {
				return models.NewError(models.ErrNotAvailable, "listing %s is %s", listingID, l.Status)
			}
			if l.Status == target {
				listing = l
				return nil
			}

			changed, err := repo.CompareAndSetListingStatus(ctx, listingID, l.Status, target)
			if err != nil {
				return err
			}
			if !changed {
				return models.NewError(models.ErrNotAvailable, "listing %s changed while updating", listingID)
			}
			l.Status = target
			listing = l
			return nil
		})
	}
	c.observe(opSetAvailability, start, err)
	util.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Listing availability changed",
		zap.String("listing_id", listingID),
		zap.String("status", string(listing.Status)))
	return listing, nil
}
