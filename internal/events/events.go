// Package events publishes orchestrator outcomes (processed webhooks, service
// rebuilds) for other systems to react to.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Event types.
const (
	TypeWebhookProcessed = "webhook.processed"
	TypeWebhookFailed    = "webhook.failed"
	TypeServiceRebuilt   = "service.rebuilt"
)

// Event is a single orchestrator outcome.
type Event struct {
	Type      string    `json:"type"`
	Service   string    `json:"service,omitempty"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Publish sends event through p and logs, rather than returns, any failure.
// A missing timestamp is filled in.
func Publish(ctx context.Context, p Publisher, logger zerolog.Logger, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := p.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event_type", event.Type).Msg("event publish failed")
	}
}

// LogPublisher writes events to the structured log. It is used when no
// message broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.logger.Info().
		Str("event_type", event.Type).
		RawJSON("event", data).
		Msg("orchestrator event")
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
