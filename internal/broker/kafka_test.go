package broker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"campus-marketplace/internal/util"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages and cancels the consumer once drained
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		r.cancel()
		return kafka.Message{}, context.Canceled
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func runConsumer(t *testing.T, topic string, msgs []kafka.Message, handler MessageHandler) *fakeReader {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{queue: msgs, cancel: cancel}

	err := newConsumer(r, topic, 0).StartConsuming(ctx, handler)
	require.ErrorIs(t, err, context.Canceled)
	return r
}

func TestConsumerRetriesBeforeCommit(t *testing.T) {
	dropped := testutil.ToFloat64(util.MessagesDroppedTotal.WithLabelValues("retry-topic"))

	calls := 0
	r := runConsumer(t, "retry-topic", []kafka.Message{{Offset: 7}}, func(ctx context.Context, msg kafka.Message) error {
		calls++
		if calls < handleAttempts {
			return errors.New("store unavailable")
		}
		return nil
	})

	assert.Equal(t, handleAttempts, calls)
	assert.Equal(t, []int64{7}, r.committed)
	assert.Equal(t, dropped, testutil.ToFloat64(util.MessagesDroppedTotal.WithLabelValues("retry-topic")))
}

func TestConsumerCountsDroppedMessage(t *testing.T) {
	dropped := testutil.ToFloat64(util.MessagesDroppedTotal.WithLabelValues("drop-topic"))

	attempts := map[int64]int{}
	r := runConsumer(t, "drop-topic", []kafka.Message{{Offset: 1}, {Offset: 2}}, func(ctx context.Context, msg kafka.Message) error {
		attempts[msg.Offset]++
		if msg.Offset == 1 {
			return errors.New("poison message")
		}
		return nil
	})

	assert.Equal(t, handleAttempts, attempts[1])
	assert.Equal(t, 1, attempts[2])
	assert.Equal(t, []int64{1, 2}, r.committed, "a dropped message is committed in order, not skipped by a later commit")
	assert.Equal(t, dropped+1, testutil.ToFloat64(util.MessagesDroppedTotal.WithLabelValues("drop-topic")))
}

func TestConsumerStopsWithoutCommitWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{queue: []kafka.Message{{Offset: 3}}, cancel: cancel}

	err := newConsumer(r, "cancel-topic", 0).StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		cancel()
		return errors.New("interrupted")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, r.committed)
}
