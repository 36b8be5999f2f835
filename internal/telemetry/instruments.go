package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/timbercraft/orchestrator/internal/telemetry"

// Webhook outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeFailed       = "failed"
)

// Instruments records orchestrator domain metrics.
type Instruments struct {
	webhooks      metric.Int64Counter
	probes        metric.Int64Counter
	probeDuration metric.Float64Histogram
	restarts      metric.Int64Counter
}

// NewInstruments creates the domain instruments on the global meter provider.
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter(meterName)

	webhooks, err := meter.Int64Counter(
		"orchestrator.webhook.total",
		metric.WithDescription("Builder webhooks received, by outcome"),
		metric.WithUnit("{webhook}"),
	)
	if err != nil {
		return nil, err
	}

	probes, err := meter.Int64Counter(
		"orchestrator.probe.total",
		metric.WithDescription("Health probes performed, by service and outcome"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	probeDuration, err := meter.Float64Histogram(
		"orchestrator.probe.duration",
		metric.WithDescription("Duration of health probes in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	restarts, err := meter.Int64Counter(
		"orchestrator.restart.total",
		metric.WithDescription("Container restarts requested, by service and outcome"),
		metric.WithUnit("{restart}"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		webhooks:      webhooks,
		probes:        probes,
		probeDuration: probeDuration,
		restarts:      restarts,
	}, nil
}

// RecordWebhook counts a webhook with the given outcome.
func (i *Instruments) RecordWebhook(ctx context.Context, outcome string) {
	if i == nil {
		return
	}
	i.webhooks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordProbe counts a health probe and its duration. reason is empty on success.
func (i *Instruments) RecordProbe(ctx context.Context, service string, ok bool, reason string, d time.Duration) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.Bool("ok", ok),
		attribute.String("reason", reason),
	)
	i.probes.Add(ctx, 1, attrs)
	i.probeDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordRestart counts a restart attempt.
func (i *Instruments) RecordRestart(ctx context.Context, service string, ok bool) {
	if i == nil {
		return
	}
	i.restarts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.Bool("ok", ok),
	))
}
