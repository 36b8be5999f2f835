package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timbercraft/orchestrator/internal/events"
)

// pendingAck resolves when release is closed, or when the wait times out.
type pendingAck struct {
	release chan struct{}
	id      string
	err     error
}

func (a *pendingAck) Get(ctx context.Context) (string, error) {
	select {
	case <-a.release:
		return a.id, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPubSubPublisher_PublishDoesNotWaitForAck(t *testing.T) {
	ack := &pendingAck{release: make(chan struct{}), id: "msg-1"}
	var sent *pubsub.Message

	p := events.NewPubSubPublisherWithSender(events.PubSubConfig{Topic: "orchestrator-events", Logger: zerolog.Nop()},
		func(ctx context.Context, msg *pubsub.Message) events.PublishResult {
			sent = msg
			return ack
		})

	reqCtx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	err := p.Publish(reqCtx, events.Event{Type: events.TypeServiceRebuilt, Service: "web", OK: true})
	cancel()

	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "publish returns before the broker acknowledges")

	require.NotNil(t, sent)
	assert.Equal(t, map[string]string{"type": events.TypeServiceRebuilt, "service": "web"}, sent.Attributes)
	var decoded events.Event
	require.NoError(t, json.Unmarshal(sent.Data, &decoded))
	assert.Equal(t, "web", decoded.Service)

	closed := make(chan struct{})
	go func() {
		_ = p.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned before the outstanding acknowledgement")
	case <-time.After(50 * time.Millisecond):
	}

	close(ack.release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the acknowledgement")
	}
}

func TestPubSubPublisher_AckFailureIsLogged(t *testing.T) {
	var logs syncBuffer
	ack := &pendingAck{release: make(chan struct{}), err: errors.New("topic not found")}
	close(ack.release)

	p := events.NewPubSubPublisherWithSender(events.PubSubConfig{Topic: "orchestrator-events", Logger: zerolog.New(&logs)},
		func(context.Context, *pubsub.Message) events.PublishResult { return ack })

	require.NoError(t, p.Publish(context.Background(), events.Event{Type: events.TypeWebhookFailed}))
	require.NoError(t, p.Close())

	assert.Contains(t, logs.String(), "event publish failed")
	assert.Contains(t, logs.String(), "topic not found")
}

func TestPubSubPublisher_AckWaitIsBounded(t *testing.T) {
	var logs syncBuffer
	ack := &pendingAck{release: make(chan struct{})}
	defer close(ack.release)

	p := events.NewPubSubPublisherWithSender(events.PubSubConfig{
		Topic:      "orchestrator-events",
		AckTimeout: 20 * time.Millisecond,
		Logger:     zerolog.New(&logs),
	}, func(context.Context, *pubsub.Message) events.PublishResult { return ack })

	require.NoError(t, p.Publish(context.Background(), events.Event{Type: events.TypeWebhookProcessed}))
	require.NoError(t, p.Close())

	assert.Contains(t, logs.String(), context.DeadlineExceeded.Error())
}
