package events

import (
	"context"

	"cloud.google.com/go/pubsub/v2"
)

// PublishResult exposes the acknowledgement handle for tests.
type PublishResult = publishResult

// NewPubSubPublisherWithSender builds a publisher around send instead of a
// live Pub/Sub client.
func NewPubSubPublisherWithSender(cfg PubSubConfig, send func(ctx context.Context, msg *pubsub.Message) PublishResult) *PubSubPublisher {
	return newPubSubPublisher(cfg, send)
}
