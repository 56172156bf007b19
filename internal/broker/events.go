package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"campus-marketplace/internal/models"
	"campus-marketplace/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes lifecycle events keyed by listing
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishTransactionEvent publishes a committed lifecycle transition
func (ep *EventPublisher) PublishTransactionEvent(ctx context.Context, event *models.TransactionEvent) error {
	return ep.producer.PublishEvent(ctx, "listing-"+event.ListingID, event)
}

// KafkaNotifier hands notifications to the notification topic instead of
// writing them inline. A NotificationWorker delivers them.
type KafkaNotifier struct {
	producer *Producer
}

// NewKafkaNotifier creates a notifier backed by producer
func NewKafkaNotifier(producer *Producer) *KafkaNotifier {
	return &KafkaNotifier{producer: producer}
}

// Notify publishes a NotificationRequested event
func (n *KafkaNotifier) Notify(ctx context.Context, listingID, fromUserID, toUserID, text string) error {
	event := &models.NotificationRequestedEvent{
		BaseEvent:  models.NewBaseEvent(models.EventTypeNotificationRequested),
		ListingID:  listingID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Text:       text,
	}
	return n.producer.PublishEvent(ctx, "user-"+toUserID, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onNotificationRequested func(context.Context, *models.NotificationRequestedEvent) error
	logger                  *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnNotificationRequested registers a handler for NotificationRequested events
func (eh *EventHandler) OnNotificationRequested(handler func(context.Context, *models.NotificationRequestedEvent) error) {
	eh.onNotificationRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeNotificationRequested:
		if eh.onNotificationRequested != nil {
			var event models.NotificationRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal NotificationRequested event: %w", err)
			}
			return eh.onNotificationRequested(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
