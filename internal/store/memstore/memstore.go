// Package memstore is an in-memory implementation of the store interfaces.
// Every operation is atomic on its own; WithinTx adds an undo journal so a
// failed unit of work leaves no writes behind. Writes made inside an open
// unit are visible to other callers before it finishes.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"campus-marketplace/internal/models"
	"campus-marketplace/internal/store"
)

// Store keeps users, listings, transactions and messages in maps
type Store struct {
	mu           sync.Mutex
	seq          int64
	order        map[string]int64
	users        map[string]models.User
	listings     map[string]models.Listing
	transactions map[string]models.Transaction
	messages     []models.Message
}

var _ store.Backend = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		order:        make(map[string]int64),
		users:        make(map[string]models.User),
		listings:     make(map[string]models.Listing),
		transactions: make(map[string]models.Transaction),
	}
}

// PutUser registers a user; users are owned by an external directory
func (s *Store) PutUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = user
}

// WithinTx runs fn with a journaling repository and undoes its writes if fn fails
func (s *Store) WithinTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx := &unit{Store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) CreateListing(ctx context.Context, listing *models.Listing) error {
	_, err := s.createListing(listing)
	return err
}

func (s *Store) createListing(listing *models.Listing) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[listing.ID]; ok {
		return nil, models.NewError(models.ErrValidation, "listing %s already exists", listing.ID)
	}
	now := time.Now().UTC()
	listing.CreatedAt, listing.UpdatedAt = now, now
	s.listings[listing.ID] = *listing
	s.stamp(listing.ID)

	id := listing.ID
	return func() { delete(s.listings, id) }, nil
}

func (s *Store) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, models.NewError(models.ErrNotFound, "listing %s", id)
	}
	return &listing, nil
}

func (s *Store) ListListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Listing{}
	for _, l := range s.listings {
		if filter.SellerID != "" && l.SellerID != filter.SellerID {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] > s.order[out[j].ID] })
	return out, nil
}

func (s *Store) CompareAndSetListingStatus(ctx context.Context, id string, expected, next models.ListingStatus) (bool, error) {
	ok, _ := s.casListing(id, expected, next)
	return ok, nil
}

func (s *Store) casListing(id string, expected, next models.ListingStatus) (bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[id]
	if !ok || listing.Status != expected {
		return false, nil
	}
	prev := listing
	listing.Status = next
	listing.UpdatedAt = time.Now().UTC()
	s.listings[id] = listing
	return true, func() { s.listings[id] = prev }
}

func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := s.createTransaction(tx)
	return err
}

func (s *Store) createTransaction(tx *models.Transaction) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.Status == models.TransactionStatusPending {
		for _, existing := range s.transactions {
			if existing.ListingID == tx.ListingID && existing.Status == models.TransactionStatusPending {
				return nil, models.NewError(models.ErrDuplicateTransaction, "listing %s", tx.ListingID)
			}
		}
	}
	now := time.Now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.transactions[tx.ID] = *tx
	s.stamp(tx.ID)

	id := tx.ID
	return func() { delete(s.transactions, id) }, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, models.NewError(models.ErrNotFound, "transaction %s", id)
	}
	return &tx, nil
}

func (s *Store) FindTransactionsByListing(ctx context.Context, listingID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Transaction{}
	for _, tx := range s.transactions {
		if tx.ListingID == listingID {
			out = append(out, tx)
		}
	}
	s.newestFirst(out)
	return out, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Transaction{}
	for _, tx := range s.transactions {
		if filter.BuyerID != "" && tx.BuyerID != filter.BuyerID {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.SellerID != "" && s.listings[tx.ListingID].SellerID != filter.SellerID {
			continue
		}
		out = append(out, tx)
	}
	s.newestFirst(out)
	return out, nil
}

func (s *Store) CompareAndSetTransactionStatus(ctx context.Context, id string, expected, next models.TransactionStatus) (bool, error) {
	ok, _ := s.casTransaction(id, expected, next)
	return ok, nil
}

func (s *Store) casTransaction(id string, expected, next models.TransactionStatus) (bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || tx.Status != expected {
		return false, nil
	}
	prev := tx
	tx.Status = next
	tx.UpdatedAt = time.Now().UTC()
	s.transactions[id] = tx
	return true, func() { s.transactions[id] = prev }
}

func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	_, err := s.createMessage(msg)
	return err
}

func (s *Store) createMessage(msg *models.Message) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.messages {
		if existing.ID == msg.ID {
			return nil, nil
		}
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.messages = append(s.messages, *msg)
	s.stamp(msg.ID)

	id := msg.ID
	return func() {
		for i := range s.messages {
			if s.messages[i].ID == id {
				s.messages = append(s.messages[:i], s.messages[i+1:]...)
				return
			}
		}
	}, nil
}

func (s *Store) ListMessagesForRecipient(ctx context.Context, userID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Message{}
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ToUserID == userID {
			out = append(out, s.messages[i])
		}
	}
	return out, nil
}

// stamp records insertion order; caller holds mu
func (s *Store) stamp(id string) {
	s.seq++
	s.order[id] = s.seq
}

// newestFirst sorts by insertion order; caller holds mu
func (s *Store) newestFirst(txs []models.Transaction) {
	sort.Slice(txs, func(i, j int) bool { return s.order[txs[i].ID] > s.order[txs[j].ID] })
}
