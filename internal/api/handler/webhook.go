package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/timbercraft/orchestrator/internal/api/middleware"
	"github.com/timbercraft/orchestrator/internal/api/models"
	"github.com/timbercraft/orchestrator/internal/api/response"
	"github.com/timbercraft/orchestrator/internal/telemetry"
	"github.com/timbercraft/orchestrator/internal/webhook"
)

// WebhookProcessor runs the post-publish sequence.
type WebhookProcessor interface {
	Process(ctx context.Context, requestID string) (*webhook.Result, error)
}

// WebhookRecorder counts webhooks by outcome.
type WebhookRecorder interface {
	RecordWebhook(ctx context.Context, outcome string)
}

// WebhookHandler handles builder webhooks. The shared secret is checked by
// middleware before this handler runs.
type WebhookHandler struct {
	processor WebhookProcessor
	recorder  WebhookRecorder
	logger    zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler. recorder may be nil.
func NewWebhookHandler(processor WebhookProcessor, recorder WebhookRecorder, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		recorder:  recorder,
		logger:    logger,
	}
}

// Builder handles POST /webhook/builder.
func (h *WebhookHandler) Builder(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.RequestTooLarge(w, r)
			return
		}
		h.logger.Error().Err(err).Str("request_id", requestID).Msg("reading webhook body")
		h.record(r.Context(), telemetry.OutcomeFailed)
		response.InternalError(w, r)
		return
	}

	kind := payloadKind(body)
	if kind == "invalid" {
		response.BadRequest(w, r, "webhook payload must be JSON", nil)
		return
	}

	h.logger.Info().
		Str("request_id", requestID).
		Str("payload_type", kind).
		Int("payload_bytes", len(body)).
		Msg("builder webhook received")

	result, err := h.processor.Process(r.Context(), requestID)
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", requestID).Msg("webhook error")
		h.record(r.Context(), telemetry.OutcomeFailed)
		response.InternalError(w, r)
		return
	}

	h.record(r.Context(), telemetry.OutcomeOK)
	response.JSON(w, r, http.StatusOK, models.WebhookResponse{
		OK:           true,
		LogsSnapshot: result.LogsSnapshot,
	})
}

func (h *WebhookHandler) record(ctx context.Context, outcome string) {
	if h.recorder != nil {
		h.recorder.RecordWebhook(ctx, outcome)
	}
}

// payloadKind returns the top-level JSON type of body: "empty", "object",
// "array", "string", "number", "bool", "null", or "invalid".
func payloadKind(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "empty"
	}
	if !json.Valid(trimmed) {
		return "invalid"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
