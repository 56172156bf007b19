package worker

import (
	"context"

	"campus-marketplace/internal/broker"
	"campus-marketplace/internal/models"
	"campus-marketplace/internal/util"

	"go.uber.org/zap"
)

// messageSource is the part of broker.Consumer the worker drives
type messageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// messageDeliverer stores a notification under a fixed id
type messageDeliverer interface {
	Deliver(ctx context.Context, id, listingID, fromUserID, toUserID, text string) error
}

// NotificationWorker persists notifications published by broker.KafkaNotifier
type NotificationWorker struct {
	consumer     messageSource
	eventHandler *broker.EventHandler
	deliverer    messageDeliverer
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, deliverer messageDeliverer) *NotificationWorker {
	return newNotificationWorker(consumer, deliverer)
}

func newNotificationWorker(consumer messageSource, deliverer messageDeliverer) *NotificationWorker {
	w := &NotificationWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		deliverer:    deliverer,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnNotificationRequested(w.handleNotification)
	return w
}

// Start consumes until ctx is cancelled
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

// handleNotification keys the message by event id, so a redelivered event
// does not produce a second message.
func (w *NotificationWorker) handleNotification(ctx context.Context, event *models.NotificationRequestedEvent) error {
	err := w.deliverer.Deliver(ctx, event.EventID, event.ListingID, event.FromUserID, event.ToUserID, event.Text)
	if err != nil {
		util.NotificationsFailedTotal.Inc()
		w.logger.Error("Failed to deliver notification",
			zap.String("event_id", event.EventID),
			zap.String("to_user_id", event.ToUserID),
			zap.Error(err))
		return err
	}
	w.logger.Debug("Notification delivered",
		zap.String("event_id", event.EventID),
		zap.String("to_user_id", event.ToUserID))
	return nil
}
