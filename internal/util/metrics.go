package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchaseRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_purchase_requests_total",
		Help: "Total number of accepted request-to-buy calls",
	})

	TransactionsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_transactions_accepted_total",
		Help: "Total number of transactions accepted by the seller",
	})

	TransactionsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_transactions_rejected_total",
		Help: "Total number of transactions rejected by the seller",
	})

	TransactionStatusOverridesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_transaction_status_overrides_total",
		Help: "Total number of administrative transaction status changes",
	}, []string{"status"})

	LifecycleFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_lifecycle_failures_total",
		Help: "Total number of failed lifecycle operations",
	}, []string{"operation", "reason"})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_notifications_failed_total",
		Help: "Total number of notifications that could not be delivered",
	})

	EventsPublishFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_events_publish_failed_total",
		Help: "Total number of lifecycle events that could not be published",
	})

	MessagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_consumer_messages_dropped_total",
		Help: "Total number of consumed messages skipped after the handler kept failing",
	}, []string{"topic"})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_idempotent_replays_total",
		Help: "Total number of request-to-buy calls answered from an idempotency key",
	})

	TransitionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketplace_transition_latency_seconds",
		Help:    "Latency of lifecycle operations including the store round trips",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
