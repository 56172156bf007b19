package memstore

import (
	"context"

	"campus-marketplace/internal/models"
)

// unit is a repository view that journals how to undo its writes
type unit struct {
	*Store
	undo []func()
}

func (u *unit) record(fn func()) {
	if fn != nil {
		u.undo = append(u.undo, fn)
	}
}

func (u *unit) rollback() {
	u.Store.mu.Lock()
	defer u.Store.mu.Unlock()
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
}

func (u *unit) CreateListing(ctx context.Context, listing *models.Listing) error {
	undo, err := u.Store.createListing(listing)
	u.record(undo)
	return err
}

func (u *unit) CompareAndSetListingStatus(ctx context.Context, id string, expected, next models.ListingStatus) (bool, error) {
	ok, undo := u.Store.casListing(id, expected, next)
	u.record(undo)
	return ok, nil
}

func (u *unit) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	undo, err := u.Store.createTransaction(tx)
	u.record(undo)
	return err
}

func (u *unit) CompareAndSetTransactionStatus(ctx context.Context, id string, expected, next models.TransactionStatus) (bool, error) {
	ok, undo := u.Store.casTransaction(id, expected, next)
	u.record(undo)
	return ok, nil
}

func (u *unit) CreateMessage(ctx context.Context, msg *models.Message) error {
	undo, err := u.Store.createMessage(msg)
	u.record(undo)
	return err
}
