package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"campus-marketplace/internal/service"
	"campus-marketplace/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	coordinator    *service.Coordinator
	requestTimeout time.Duration
}

// NewHandler creates a new HTTP handler. A zero requestTimeout leaves
// request contexts as they arrive.
func NewHandler(coordinator *service.Coordinator, requestTimeout time.Duration) *Handler {
	return &Handler{
		coordinator:    coordinator,
		requestTimeout: requestTimeout,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(timeoutMiddleware(h.requestTimeout))
	{
		tx := v1.Group("/transactions")
		tx.POST("/request-to-buy", h.requestToBuy)
		tx.PATCH("/:id/accept", h.acceptTransaction)
		tx.PATCH("/:id/mark-sold", h.acceptTransaction)
		tx.PATCH("/:id/reject", h.rejectTransaction)
		tx.PATCH("/:id/status", h.setTransactionStatus)
		tx.GET("", h.listTransactions)
		tx.GET("/:id", h.getTransaction)
		tx.GET("/listing/:listingId", h.transactionsForListing)
		tx.GET("/buyer/:buyerId", h.transactionsForBuyer)
		tx.GET("/seller/:sellerId", h.transactionsForSeller)

		listings := v1.Group("/listings")
		listings.POST("", h.createListing)
		listings.GET("", h.listListings)
		listings.GET("/:id", h.getListing)
		listings.PATCH("/:id/availability", h.setListingAvailability)

		v1.GET("/users/:userId/messages", h.messagesForUser)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.coordinator.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// requestToBuy handles a buyer's purchase request
func (h *Handler) requestToBuy(c *gin.Context) {
	var req service.RequestToBuyRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, replayed, err := h.coordinator.RequestToBuyOnce(c.Request.Context(),
		c.GetHeader("Idempotency-Key"), req.ListingID, req.BuyerID)
	if err != nil {
		writeError(c, err)
		return
	}

	if replayed {
		c.Header("Idempotent-Replayed", "true")
		c.JSON(http.StatusOK, tx)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// acceptTransaction handles the seller accepting a purchase request
func (h *Handler) acceptTransaction(c *gin.Context) {
	var req service.SellerActionRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, err := h.coordinator.Accept(c.Request.Context(), c.Param("id"), req.SellerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// rejectTransaction handles the seller declining a purchase request
func (h *Handler) rejectTransaction(c *gin.Context) {
	var req service.SellerActionRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, err := h.coordinator.Reject(c.Request.Context(), c.Param("id"), req.SellerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// setTransactionStatus handles the administrative status override
func (h *Handler) setTransactionStatus(c *gin.Context) {
	tx, err := h.coordinator.SetTransactionStatus(c.Request.Context(), c.Param("id"), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *Handler) getTransaction(c *gin.Context) {
	tx, err := h.coordinator.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *Handler) listTransactions(c *gin.Context) {
	txs, err := h.coordinator.ListTransactions(c.Request.Context(), "", "", c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *Handler) transactionsForListing(c *gin.Context) {
	txs, err := h.coordinator.TransactionsForListing(c.Request.Context(), c.Param("listingId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *Handler) transactionsForBuyer(c *gin.Context) {
	txs, err := h.coordinator.ListTransactions(c.Request.Context(), c.Param("buyerId"), "", c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *Handler) transactionsForSeller(c *gin.Context) {
	txs, err := h.coordinator.ListTransactions(c.Request.Context(), "", c.Param("sellerId"), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// createListing handles a seller publishing a listing
func (h *Handler) createListing(c *gin.Context) {
	var req service.CreateListingRequest
	if !bindJSON(c, &req) {
		return
	}

	listing, err := h.coordinator.CreateListing(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *Handler) getListing(c *gin.Context) {
	listing, err := h.coordinator.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) listListings(c *gin.Context) {
	listings, err := h.coordinator.ListListings(c.Request.Context(), c.Query("seller_id"), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

// setListingAvailability handles the seller's on/off sale toggle
func (h *Handler) setListingAvailability(c *gin.Context) {
	var req service.AvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}

	listing, err := h.coordinator.SetListingAvailability(c.Request.Context(), c.Param("id"), req.SellerID, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) messagesForUser(c *gin.Context) {
	msgs, err := h.coordinator.MessagesFor(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// timeoutMiddleware bounds the context every store call runs under
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
