// Package api provides the HTTP API of the orchestrator.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/timbercraft/orchestrator/internal/api/handler"
	"github.com/timbercraft/orchestrator/internal/api/middleware"
	"github.com/timbercraft/orchestrator/internal/auth"
	"github.com/timbercraft/orchestrator/internal/provider/resilience"
	"github.com/timbercraft/orchestrator/internal/telemetry"
)

// MaxWebhookBodyBytes caps builder webhook payloads.
const MaxWebhookBodyBytes = 1 << 20

// maxDiagnoseBodyBytes caps diagnostics requests; they are small by construction.
const maxDiagnoseBodyBytes = 64 << 10

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Instruments *telemetry.Instruments
	Registry    *resilience.Registry

	// WebhookSecret is compared against the X-Builder-Secret header.
	WebhookSecret string

	// DiagnoseJWT, when set, protects /diagnose with admin bearer tokens.
	DiagnoseJWT *auth.JWTService

	Webhook     handler.WebhookProcessor
	Diagnostics handler.DiagnosticsRunner
}

// NewRouter creates a new chi router with all routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "orchestrator"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.Registry)
	webhookHandler := handler.NewWebhookHandler(cfg.Webhook, cfg.Instruments, cfg.Logger)
	diagnoseHandler := handler.NewDiagnoseHandler(cfg.Diagnostics, cfg.Logger)

	r.Get("/health", opsHandler.HealthCheck)
	r.Get("/status", opsHandler.SystemStatus)

	r.Route("/webhook", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(middleware.WebhookRateLimit)) // 10 req/min per IP
		r.Use(middleware.WebhookSecret(cfg.WebhookSecret, cfg.Logger, cfg.Instruments))
		r.Use(middleware.LimitBody(MaxWebhookBodyBytes))
		r.Post("/builder", webhookHandler.Builder)
	})

	r.Group(func(r chi.Router) {
		if cfg.DiagnoseJWT != nil {
			r.Use(middleware.RequireAdmin(cfg.DiagnoseJWT))
			r.Use(middleware.RateLimitBySubject(middleware.DiagnoseRateLimit))
		} else {
			r.Use(middleware.RateLimitByIP(middleware.DiagnoseRateLimit))
		}
		r.Use(middleware.RequireJSON)
		r.Use(middleware.LimitBody(maxDiagnoseBodyBytes))
		r.Post("/diagnose", diagnoseHandler.Diagnose)
	})

	return r
}
