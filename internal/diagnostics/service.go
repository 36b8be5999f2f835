// Package diagnostics runs on-demand health checks, log collection and
// container restarts across a list of services.
package diagnostics

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/timbercraft/orchestrator/internal/docker"
	"github.com/timbercraft/orchestrator/internal/events"
	"github.com/timbercraft/orchestrator/internal/health"
)

// HealthChecker probes services, returning results in input order.
type HealthChecker interface {
	CheckAll(ctx context.Context, services []string) []health.Result
}

// Containers is the subset of the container runtime used by diagnostics.
type Containers interface {
	TailLogs(ctx context.Context, name string) string
	Restart(ctx context.Context, name string) docker.RestartResult
}

// RestartRecorder observes restart outcomes.
type RestartRecorder interface {
	RecordRestart(ctx context.Context, service string, ok bool)
}

// Config holds the diagnostics service dependencies.
type Config struct {
	Health     HealthChecker
	Containers Containers
	Events     events.Publisher
	Recorder   RestartRecorder // optional
	Logger     zerolog.Logger
}

// Service runs diagnostics requests.
type Service struct {
	health     HealthChecker
	containers Containers
	events     events.Publisher
	recorder   RestartRecorder
	logger     zerolog.Logger
}

// NewService creates a diagnostics service.
func NewService(cfg Config) *Service {
	return &Service{
		health:     cfg.Health,
		containers: cfg.Containers,
		events:     cfg.Events,
		recorder:   cfg.Recorder,
		logger:     cfg.Logger,
	}
}

// Run normalizes req and executes each requested action. Actions run
// concurrently and never fail each other; per-service trouble is reported in
// the result. Only an invalid request returns an error.
func (s *Service) Run(ctx context.Context, req Request, requestID string) (*Result, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Strs("services", req.Services).
		Strs("actions", req.Actions).
		Msg("running diagnostics")

	var (
		res Result
		g   errgroup.Group
	)

	if req.has(ActionHealth) {
		g.Go(func() error {
			res.Health = s.health.CheckAll(ctx, req.Services)
			return nil
		})
	}
	if req.has(ActionLogs) {
		g.Go(func() error {
			res.Logs = s.logs(ctx, req.Services)
			return nil
		})
	}
	if req.has(ActionRebuild) {
		g.Go(func() error {
			res.Rebuild = s.rebuild(ctx, req.Services, requestID)
			return nil
		})
	}
	_ = g.Wait()

	return &res, nil
}

func (s *Service) logs(ctx context.Context, services []string) []string {
	out := make([]string, len(services))
	var g errgroup.Group
	for i, name := range services {
		g.Go(func() error {
			out[i] = s.containers.TailLogs(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) rebuild(ctx context.Context, services []string, requestID string) []docker.RestartResult {
	out := make([]docker.RestartResult, len(services))
	var g errgroup.Group
	for i, name := range services {
		g.Go(func() error {
			result := s.containers.Restart(ctx, name)
			out[i] = result

			if s.recorder != nil {
				s.recorder.RecordRestart(ctx, name, result.OK)
			}
			detail := result.Error
			if detail == "" {
				detail = result.Reason
			}
			events.Publish(ctx, s.events, s.logger, events.Event{
				Type:      events.TypeServiceRebuilt,
				Service:   name,
				OK:        result.OK,
				Detail:    detail,
				RequestID: requestID,
			})
			return nil
		})
	}
	_ = g.Wait()
	return out
}
