package service

import (
	"context"
	"testing"

	"campus-marketplace/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateListing(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to active", func(t *testing.T) {
		f := newFixture(t, Policy{})
		listing, err := f.coord.CreateListing(ctx, &CreateListingRequest{
			SellerID: seller,
			Title:    "  Desk lamp ",
			Price:    decimal.RequireFromString("15.5"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Desk lamp", listing.Title)
		assert.Equal(t, models.ListingStatusActive, listing.Status)
		assert.Equal(t, "15.50", listing.Price.StringFixed(2))

		stored, err := f.coord.GetListing(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, listing.ID, stored.ID)
	})

	tests := []struct {
		name    string
		req     CreateListingRequest
		wantErr error
	}{
		{name: "draft allowed", req: CreateListingRequest{SellerID: seller, Title: "Lamp", Status: "draft"}},
		{name: "free item", req: CreateListingRequest{SellerID: seller, Title: "Lamp", Price: decimal.Zero}},
		{name: "empty title", req: CreateListingRequest{SellerID: seller, Title: " "}, wantErr: models.ErrValidation},
		{name: "negative price", req: CreateListingRequest{SellerID: seller, Title: "Lamp", Price: decimal.NewFromInt(-1)}, wantErr: models.ErrValidation},
		{name: "sub-cent price", req: CreateListingRequest{SellerID: seller, Title: "Lamp", Price: decimal.RequireFromString("1.005")}, wantErr: models.ErrValidation},
		{name: "cannot start sold", req: CreateListingRequest{SellerID: seller, Title: "Lamp", Status: "SOLD"}, wantErr: models.ErrInvalidStatus},
		{name: "unknown status", req: CreateListingRequest{SellerID: seller, Title: "Lamp", Status: "LISTED"}, wantErr: models.ErrInvalidStatus},
		{name: "unknown seller", req: CreateListingRequest{SellerID: "ghost", Title: "Lamp"}, wantErr: models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Policy{})
			req := tt.req
			_, err := f.coord.CreateListing(ctx, &req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSetListingAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("seller toggles between active draft and disabled", func(t *testing.T) {
		f := newFixture(t, Policy{})
		f.listing(t, "L1", "50.00")

		l, err := f.coord.SetListingAvailability(ctx, "L1", seller, "DISABLED")
		require.NoError(t, err)
		assert.Equal(t, models.ListingStatusDisabled, l.Status)

		_, err = f.coord.RequestToBuy(ctx, "L1", buyer)
		assert.ErrorIs(t, err, models.ErrNotAvailable)

		l, err = f.coord.SetListingAvailability(ctx, "L1", seller, "active")
		require.NoError(t, err)
		assert.Equal(t, models.ListingStatusActive, l.Status)

		l, err = f.coord.SetListingAvailability(ctx, "L1", seller, "ACTIVE")
		require.NoError(t, err)
		assert.Equal(t, models.ListingStatusActive, l.Status)
	})

	t.Run("purchase flow statuses are off limits", func(t *testing.T) {
		f := newFixture(t, Policy{})
		f.listing(t, "L1", "50.00")
		_, err := f.coord.RequestToBuy(ctx, "L1", buyer)
		require.NoError(t, err)

		_, err = f.coord.SetListingAvailability(ctx, "L1", seller, "ACTIVE")
		assert.ErrorIs(t, err, models.ErrNotAvailable)
		assert.Equal(t, models.ListingStatusPending, f.listingStatus(t, "L1"))

		_, err = f.coord.SetListingAvailability(ctx, "L1", seller, "SOLD")
		assert.ErrorIs(t, err, models.ErrInvalidStatus)
	})

	t.Run("only the seller", func(t *testing.T) {
		f := newFixture(t, Policy{})
		f.listing(t, "L1", "50.00")

		_, err := f.coord.SetListingAvailability(ctx, "L1", buyer, "DRAFT")
		assert.ErrorIs(t, err, models.ErrForbidden)
		assert.Equal(t, models.ListingStatusActive, f.listingStatus(t, "L1"))
	})
}

func TestReportingQueries(t *testing.T) {
	f := newFixture(t, Policy{})
	f.listing(t, "L1", "50.00")
	f.listing(t, "L2", "20.00")
	ctx := context.Background()

	tx1, err := f.coord.RequestToBuy(ctx, "L1", buyer)
	require.NoError(t, err)
	_, err = f.coord.Accept(ctx, tx1.ID, seller)
	require.NoError(t, err)
	_, err = f.coord.RequestToBuy(ctx, "L2", buyer2)
	require.NoError(t, err)

	byBuyer, err := f.coord.ListTransactions(ctx, buyer, "", "")
	require.NoError(t, err)
	require.Len(t, byBuyer, 1)
	assert.Equal(t, tx1.ID, byBuyer[0].ID)

	pending, err := f.coord.ListTransactions(ctx, "", seller, "PENDING")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, buyer2, pending[0].BuyerID)

	all, err := f.coord.ListTransactions(ctx, "", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	lower, err := f.coord.ListTransactions(ctx, "", seller, "pending")
	require.NoError(t, err)
	require.Len(t, lower, 1)
	assert.Equal(t, pending[0].ID, lower[0].ID)

	_, err = f.coord.ListTransactions(ctx, "", "", "LOST")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	sold, err := f.coord.ListListings(ctx, seller, "SOLD")
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.Equal(t, "L1", sold[0].ID)

	sold, err = f.coord.ListListings(ctx, seller, " sold ")
	require.NoError(t, err)
	require.Len(t, sold, 1)

	_, err = f.coord.TransactionsForListing(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
