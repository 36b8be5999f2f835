package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultAckTimeout bounds how long a background acknowledgement wait may take.
const DefaultAckTimeout = 10 * time.Second

// PubSubConfig holds configuration for the Pub/Sub publisher.
type PubSubConfig struct {
	ProjectID string
	Topic     string

	// AckTimeout overrides DefaultAckTimeout.
	AckTimeout time.Duration

	Logger zerolog.Logger
}

// publishResult is satisfied by *pubsub.PublishResult.
type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type sendFunc func(ctx context.Context, msg *pubsub.Message) publishResult

// PubSubPublisher publishes events to a Google Cloud Pub/Sub topic.
// Publish hands the message to the client's batcher and returns; the
// acknowledgement is awaited in the background so a slow broker never delays
// an HTTP response. Close waits for outstanding acknowledgements.
type PubSubPublisher struct {
	client     *pubsub.Client
	publisher  *pubsub.Publisher
	send       sendFunc
	topic      string
	ackTimeout time.Duration
	logger     zerolog.Logger
	acks       errgroup.Group
}

// NewPubSubPublisher creates a publisher for cfg.Topic.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	publisher := client.Publisher(cfg.Topic)
	p := newPubSubPublisher(cfg, func(ctx context.Context, msg *pubsub.Message) publishResult {
		return publisher.Publish(ctx, msg)
	})
	p.client = client
	p.publisher = publisher
	return p, nil
}

func newPubSubPublisher(cfg PubSubConfig, send sendFunc) *PubSubPublisher {
	ackTimeout := cfg.AckTimeout
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	return &PubSubPublisher{
		send:       send,
		topic:      cfg.Topic,
		ackTimeout: ackTimeout,
		logger:     cfg.Logger,
	}
}

// Publish queues the event. Only encoding failures are returned; broker
// failures are logged when the acknowledgement resolves.
func (p *PubSubPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	// The message outlives the request that produced it.
	result := p.send(context.WithoutCancel(ctx), &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":    event.Type,
			"service": event.Service,
		},
	})

	p.acks.Go(func() error {
		ackCtx, cancel := context.WithTimeout(context.Background(), p.ackTimeout)
		defer cancel()

		id, err := result.Get(ackCtx)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("topic", p.topic).
				Str("event_type", event.Type).
				Msg("event publish failed")
			return nil
		}

		p.logger.Debug().
			Str("message_id", id).
			Str("event_type", event.Type).
			Msg("event published")
		return nil
	})
	return nil
}

// Close flushes pending messages, waits for their acknowledgements and
// closes the client.
func (p *PubSubPublisher) Close() error {
	if p.publisher != nil {
		p.publisher.Stop()
	}
	_ = p.acks.Wait()
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
