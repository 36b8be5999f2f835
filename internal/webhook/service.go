// Package webhook runs the content-published sequence triggered by the site
// builder: refresh the downstream services, then snapshot their logs.
package webhook

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/timbercraft/orchestrator/internal/events"
	"github.com/timbercraft/orchestrator/internal/health"
)

// MaxSnapshotEntries caps the number of log entries returned to the caller.
const MaxSnapshotEntries = 1000

// Refresher triggers downstream refresh work.
type Refresher interface {
	Reingest(ctx context.Context) error
	Warm(ctx context.Context) error
}

// LogCollector tails container logs, one entry per name in order.
type LogCollector interface {
	CollectLogs(ctx context.Context, names []string) []string
}

// Config holds the webhook service dependencies.
type Config struct {
	Refresher Refresher
	Logs      LogCollector
	Events    events.Publisher

	// Services are snapshotted after a refresh. Default: health.DefaultServices().
	Services []string

	Logger zerolog.Logger
}

// Service processes builder webhooks.
type Service struct {
	refresher Refresher
	logs      LogCollector
	events    events.Publisher
	services  []string
	logger    zerolog.Logger
}

// NewService creates a webhook service.
func NewService(cfg Config) *Service {
	services := cfg.Services
	if len(services) == 0 {
		services = health.DefaultServices()
	}
	return &Service{
		refresher: cfg.Refresher,
		logs:      cfg.Logs,
		events:    cfg.Events,
		services:  services,
		logger:    cfg.Logger,
	}
}

// Result is the outcome of a processed webhook.
type Result struct {
	LogsSnapshot []string
}

// Process reingests and warms concurrently, waits for both, then collects
// the log snapshot. A warm failure is logged and ignored; a reingest failure
// is returned.
func (s *Service) Process(ctx context.Context, requestID string) (*Result, error) {
	if err := s.refresh(ctx); err != nil {
		events.Publish(ctx, s.events, s.logger, events.Event{
			Type:      events.TypeWebhookFailed,
			OK:        false,
			Detail:    err.Error(),
			RequestID: requestID,
		})
		return nil, err
	}

	snapshot := s.logs.CollectLogs(ctx, s.services)
	if len(snapshot) > MaxSnapshotEntries {
		snapshot = snapshot[:MaxSnapshotEntries]
	}

	events.Publish(ctx, s.events, s.logger, events.Event{
		Type:      events.TypeWebhookProcessed,
		OK:        true,
		RequestID: requestID,
	})

	return &Result{LogsSnapshot: snapshot}, nil
}

func (s *Service) refresh(ctx context.Context) error {
	// Neither ping cancels the other, so plain errgroup.Group rather than WithContext.
	var g errgroup.Group

	g.Go(func() error {
		if err := s.refresher.Reingest(ctx); err != nil {
			return fmt.Errorf("reingest failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := s.refresher.Warm(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("rag warm failed, continuing")
		}
		return nil
	})

	return g.Wait()
}
