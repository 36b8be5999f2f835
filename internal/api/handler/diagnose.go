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
	"github.com/timbercraft/orchestrator/internal/diagnostics"
)

// DiagnosticsRunner runs a diagnostics request.
type DiagnosticsRunner interface {
	Run(ctx context.Context, req diagnostics.Request, requestID string) (*diagnostics.Result, error)
}

// DiagnoseHandler handles the diagnostics endpoint.
type DiagnoseHandler struct {
	runner DiagnosticsRunner
	logger zerolog.Logger
}

// NewDiagnoseHandler creates a new DiagnoseHandler.
func NewDiagnoseHandler(runner DiagnosticsRunner, logger zerolog.Logger) *DiagnoseHandler {
	return &DiagnoseHandler{runner: runner, logger: logger}
}

// Diagnose handles POST /diagnose.
func (h *DiagnoseHandler) Diagnose(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.RequestTooLarge(w, r)
			return
		}
		h.logger.Error().Err(err).Str("request_id", requestID).Msg("reading diagnose body")
		response.InternalError(w, r)
		return
	}

	var req models.DiagnoseRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			response.BadRequest(w, r, "request body must be a JSON object", decodeFieldErrors(err))
			return
		}
	}

	result, err := h.runner.Run(r.Context(), diagnostics.Request{
		Services: req.Services,
		Actions:  req.Actions,
	}, requestID)
	if err != nil {
		var verr *diagnostics.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(w, r, "invalid diagnostics request", toFieldErrors(verr.Fields))
			return
		}
		h.logger.Error().Err(err).Str("request_id", requestID).Msg("diagnostics failed")
		response.InternalError(w, r)
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

func decodeFieldErrors(err error) []models.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []models.FieldError{{
			Field:   typeErr.Field,
			Message: "expected an array of strings",
			Code:    "invalid_type",
		}}
	}
	return nil
}

func toFieldErrors(fields []diagnostics.FieldError) []models.FieldError {
	out := make([]models.FieldError, 0, len(fields))
	for _, f := range fields {
		out = append(out, models.FieldError{Field: f.Field, Message: f.Message, Code: f.Code})
	}
	return out
}
