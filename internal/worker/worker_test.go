package worker

import (
	"context"
	"encoding/json"
	"testing"

	"campus-marketplace/internal/broker"
	"campus-marketplace/internal/models"
	"campus-marketplace/internal/service"
	"campus-marketplace/internal/store/memstore"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replaySource hands every queued message to the handler, then returns
type replaySource struct {
	messages []kafka.Message
	closed   bool
}

func (s *replaySource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range s.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *replaySource) Close() error {
	s.closed = true
	return nil
}

func notificationMessage(t *testing.T, event *models.NotificationRequestedEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("user-" + event.ToUserID), Value: value}
}

func TestNotificationWorkerDeliversOncePerEvent(t *testing.T) {
	s := memstore.New()
	event := &models.NotificationRequestedEvent{
		BaseEvent:  models.NewBaseEvent(models.EventTypeNotificationRequested),
		ListingID:  "L1",
		FromUserID: "buyer",
		ToUserID:   "seller",
		Text:       "hello",
	}
	msg := notificationMessage(t, event)
	src := &replaySource{messages: []kafka.Message{msg, msg}}

	w := newNotificationWorker(src, service.NewMessageNotifier(s))
	require.NoError(t, w.Start(context.Background()))

	msgs, err := s.ListMessagesForRecipient(context.Background(), "seller")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, event.EventID, msgs[0].ID)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "L1", msgs[0].ListingID)

	require.NoError(t, w.Stop())
	assert.True(t, src.closed)
}
