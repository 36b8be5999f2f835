// Package main provides the entrypoint for the orchestrator service.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/timbercraft/orchestrator/internal/api"
	"github.com/timbercraft/orchestrator/internal/api/middleware"
	"github.com/timbercraft/orchestrator/internal/auth"
	"github.com/timbercraft/orchestrator/internal/config"
	"github.com/timbercraft/orchestrator/internal/diagnostics"
	"github.com/timbercraft/orchestrator/internal/docker"
	"github.com/timbercraft/orchestrator/internal/downstream"
	"github.com/timbercraft/orchestrator/internal/events"
	"github.com/timbercraft/orchestrator/internal/health"
	"github.com/timbercraft/orchestrator/internal/provider/resilience"
	"github.com/timbercraft/orchestrator/internal/telemetry"
	"github.com/timbercraft/orchestrator/internal/webhook"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	const serviceName = "orchestrator"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting orchestrator")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Str("env", cfg.Env).Msg("invalid configuration")
		return 1
	}
	if cfg.InsecureWebhookSecret() {
		log.Warn().Msg("TRUSTED_WEBHOOK_SECRET is empty or the placeholder - not secure outside development")
	}

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize telemetry")
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		return 1
	}
	instruments, err := telemetry.NewInstruments()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize instruments")
		return 1
	}

	registry := resilience.NewRegistry()

	containers, err := docker.NewClient(docker.ClientConfig{
		Host:       cfg.DockerHost,
		SocketPath: cfg.DockerSocketPath,
		TailLines:  cfg.LogTailLines,
		Logger:     log.With().Str("component", "docker").Logger(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create container runtime client")
		return 1
	}
	defer containers.Close()

	prober := health.NewProber(health.ProberConfig{
		URLs:     health.URLsFromBase(cfg.WebHealthURL, cfg.RAGAPIURL, cfg.DoclingAPIURL),
		Timeout:  cfg.ProbeTimeout,
		Registry: registry,
		Recorder: instruments,
		Logger:   log.With().Str("component", "prober").Logger(),
	})

	refresher := downstream.NewClient(downstream.ClientConfig{
		DoclingBaseURL: cfg.DoclingAPIURL,
		RAGBaseURL:     cfg.RAGAPIURL,
		Timeout:        cfg.ProbeTimeout,
		Registry:       registry,
		Logger:         log.With().Str("component", "downstream").Logger(),
	})

	publisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to create event publisher")
		return 1
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close event publisher")
		}
	}()

	var diagnoseJWT *auth.JWTService
	if cfg.DiagnoseJWTSecret != "" {
		diagnoseJWT = auth.NewJWTService(auth.JWTConfig{SigningKey: cfg.DiagnoseJWTSecret})
		log.Info().Msg("diagnostics endpoint requires admin bearer tokens")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:       Version,
		Logger:        log,
		ServiceName:   serviceName,
		Metrics:       metrics,
		Instruments:   instruments,
		Registry:      registry,
		WebhookSecret: cfg.WebhookSecret,
		DiagnoseJWT:   diagnoseJWT,
		Webhook: webhook.NewService(webhook.Config{
			Refresher: refresher,
			Logs:      containers,
			Events:    publisher,
			Logger:    log.With().Str("component", "webhook").Logger(),
		}),
		Diagnostics: diagnostics.NewService(diagnostics.Config{
			Health:     prober,
			Containers: containers,
			Events:     publisher,
			Recorder:   instruments,
			Logger:     log.With().Str("component", "diagnostics").Logger(),
		}),
	})

	server := &http.Server{
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Rebuilds wait on container restarts.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Bind synchronously so a bad address or busy port exits non-zero.
	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		log.Error().Err(err).Str("addr", cfg.Addr()).Msg("failed to bind")
		return 1
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", listener.Addr().String()).
			Msg("server listening")

		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			return 1
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return 1
	}

	log.Info().Msg("server stopped")
	return 0
}

func newPublisher(ctx context.Context, cfg config.Config, log zerolog.Logger) (events.Publisher, error) {
	if cfg.PubSubProjectID == "" {
		log.Info().Msg("no Pub/Sub topic configured, events go to the log")
		return events.NewLogPublisher(log.With().Str("component", "events").Logger()), nil
	}

	p, err := events.NewPubSubPublisher(ctx, events.PubSubConfig{
		ProjectID: cfg.PubSubProjectID,
		Topic:     cfg.PubSubTopic,
		Logger:    log.With().Str("component", "events").Logger(),
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("project_id", cfg.PubSubProjectID).
		Str("topic", cfg.PubSubTopic).
		Msg("publishing events to Pub/Sub")
	return p, nil
}
