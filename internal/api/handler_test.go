package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"campus-marketplace/internal/models"
	"campus-marketplace/internal/service"
	"campus-marketplace/internal/store"
	"campus-marketplace/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *memstore.Store) {
	t.Helper()
	s := newUserStore()
	return newRouter(s, s, 0), s
}

func newUserStore() *memstore.Store {
	s := memstore.New()
	for _, id := range []string{"seller", "buyer", "buyer-2"} {
		s.PutUser(models.User{ID: id, Name: id})
	}
	return s
}

func newRouter(backend store.Backend, messages *memstore.Store, timeout time.Duration) *gin.Engine {
	coord := service.NewCoordinator(backend, service.NewMessageNotifier(messages), nil, nil, service.Policy{})
	router := gin.New()
	NewHandler(coord, timeout).SetupRoutes(router)
	return router
}

// stallingBackend holds units of work until the request deadline while stall is set
type stallingBackend struct {
	*memstore.Store
	stall atomic.Bool
}

func (b *stallingBackend) WithinTx(ctx context.Context, fn func(repo store.Repository) error) error {
	if b.stall.Load() {
		<-ctx.Done()
		return ctx.Err()
	}
	return b.Store.WithinTx(ctx, fn)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func createListing(t *testing.T, router *gin.Engine) models.Listing {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/listings", gin.H{
		"seller_id": "seller",
		"title":     "Mini fridge",
		"price":     "50.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var listing models.Listing
	decode(t, w, &listing)
	return listing
}

func TestPurchaseFlowOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	listing := createListing(t, router)
	assert.Equal(t, models.ListingStatusActive, listing.Status)

	w := doJSON(t, router, http.MethodPost, "/api/v1/transactions/request-to-buy", gin.H{
		"listing_id": listing.ID,
		"buyer_id":   "buyer",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tx models.Transaction
	decode(t, w, &tx)
	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.True(t, decimal.NewFromInt(50).Equal(tx.FinalPrice))

	w = doJSON(t, router, http.MethodPatch, "/api/v1/transactions/"+tx.ID+"/mark-sold", gin.H{"seller_id": "seller"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/v1/listings/"+listing.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Listing
	decode(t, w, &got)
	assert.Equal(t, models.ListingStatusSold, got.Status)

	w = doJSON(t, router, http.MethodGet, "/api/v1/transactions/listing/"+listing.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var txs []models.Transaction
	decode(t, w, &txs)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionStatusCompleted, txs[0].Status)

	w = doJSON(t, router, http.MethodGet, "/api/v1/users/buyer/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []models.Message
	decode(t, w, &msgs)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, `"Mini fridge"`)
}

func TestErrorMapping(t *testing.T) {
	router, _ := newTestRouter(t)
	listing := createListing(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/transactions/request-to-buy", gin.H{
		"listing_id": listing.ID,
		"buyer_id":   "buyer",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var tx models.Transaction
	decode(t, w, &tx)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"missing body field", http.MethodPost, "/api/v1/transactions/request-to-buy", gin.H{"listing_id": listing.ID}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown listing", http.MethodPost, "/api/v1/transactions/request-to-buy", gin.H{"listing_id": "nope", "buyer_id": "buyer"}, http.StatusNotFound, "NOT_FOUND"},
		{"self purchase", http.MethodPost, "/api/v1/transactions/request-to-buy", gin.H{"listing_id": listing.ID, "buyer_id": "seller"}, http.StatusUnprocessableEntity, "SELF_PURCHASE"},
		{"already pending", http.MethodPost, "/api/v1/transactions/request-to-buy", gin.H{"listing_id": listing.ID, "buyer_id": "buyer-2"}, http.StatusConflict, "NOT_AVAILABLE"},
		{"not the seller", http.MethodPatch, "/api/v1/transactions/" + tx.ID + "/accept", gin.H{"seller_id": "buyer"}, http.StatusForbidden, "FORBIDDEN"},
		{"unknown status", http.MethodPatch, "/api/v1/transactions/" + tx.ID + "/status?status=LOST", nil, http.StatusBadRequest, "INVALID_STATUS"},
		{"table forbids", http.MethodPatch, "/api/v1/transactions/" + tx.ID + "/status?status=REFUNDED", nil, http.StatusConflict, "INVALID_STATE"},
		{"missing transaction", http.MethodGet, "/api/v1/transactions/nope", nil, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var body map[string]string
			decode(t, w, &body)
			assert.Equal(t, tt.code, body["error"])
			assert.NotEmpty(t, body["details"])
		})
	}
}

func TestSellerReports(t *testing.T) {
	router, _ := newTestRouter(t)
	listing := createListing(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/transactions/request-to-buy", gin.H{
		"listing_id": listing.ID,
		"buyer_id":   "buyer",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/transactions/seller/seller?status=PENDING", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var txs []models.Transaction
	decode(t, w, &txs)
	assert.Len(t, txs, 1)

	w = doJSON(t, router, http.MethodGet, "/api/v1/transactions/buyer/buyer-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &txs)
	assert.Empty(t, txs)

	w = doJSON(t, router, http.MethodGet, "/api/v1/listings?seller_id=seller&status=PENDING", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listings []models.Listing
	decode(t, w, &listings)
	require.Len(t, listings, 1)
	assert.Equal(t, listing.ID, listings[0].ID)
}

func TestAvailabilityToggle(t *testing.T) {
	router, _ := newTestRouter(t)
	listing := createListing(t, router)

	w := doJSON(t, router, http.MethodPatch, "/api/v1/listings/"+listing.ID+"/availability",
		gin.H{"seller_id": "seller", "status": "DRAFT"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/v1/transactions/request-to-buy", gin.H{
		"listing_id": listing.ID,
		"buyer_id":   "buyer",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestTimeoutMapsTo504(t *testing.T) {
	backend := &stallingBackend{Store: newUserStore()}
	router := newRouter(backend, backend.Store, 30*time.Millisecond)
	listing := createListing(t, router)

	backend.stall.Store(true)
	w := doJSON(t, router, http.MethodPost, "/api/v1/transactions/request-to-buy", gin.H{
		"listing_id": listing.ID,
		"buyer_id":   "buyer",
	})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code, w.Body.String())

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "TIMEOUT", body["error"])
}

func TestStatusFiltersIgnoreCase(t *testing.T) {
	router, _ := newTestRouter(t)
	listing := createListing(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/transactions/request-to-buy", gin.H{
		"listing_id": listing.ID,
		"buyer_id":   "buyer",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var tx models.Transaction
	decode(t, w, &tx)

	w = doJSON(t, router, http.MethodGet, "/api/v1/transactions/seller/seller?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var txs []models.Transaction
	decode(t, w, &txs)
	assert.Len(t, txs, 1)

	w = doJSON(t, router, http.MethodGet, "/api/v1/listings?seller_id=seller&status=Pending", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var listings []models.Listing
	decode(t, w, &listings)
	assert.Len(t, listings, 1)

	w = doJSON(t, router, http.MethodPatch, "/api/v1/transactions/"+tx.ID+"/status?status=completed", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &tx)
	assert.Equal(t, models.TransactionStatusCompleted, tx.Status)
}
