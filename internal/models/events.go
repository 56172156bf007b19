package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeTransactionRequested     = "TRANSACTION_REQUESTED"
	EventTypeTransactionAccepted      = "TRANSACTION_ACCEPTED"
	EventTypeTransactionRejected      = "TRANSACTION_REJECTED"
	EventTypeTransactionStatusChanged = "TRANSACTION_STATUS_CHANGED"
	EventTypeNotificationRequested    = "NOTIFICATION_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event id and time
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// TransactionEvent is published after a lifecycle transition commits
type TransactionEvent struct {
	BaseEvent
	TransactionID     string            `json:"transaction_id"`
	ListingID         string            `json:"listing_id"`
	BuyerID           string            `json:"buyer_id"`
	SellerID          string            `json:"seller_id"`
	FinalPrice        decimal.Decimal   `json:"final_price"`
	PreviousStatus    TransactionStatus `json:"previous_status,omitempty"`
	TransactionStatus TransactionStatus `json:"transaction_status"`
	ListingStatus     ListingStatus     `json:"listing_status"`
}

// NotificationRequestedEvent carries a system message to be delivered asynchronously
type NotificationRequestedEvent struct {
	BaseEvent
	ListingID  string `json:"listing_id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Text       string `json:"text"`
}
