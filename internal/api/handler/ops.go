// Package handler provides HTTP handlers for the orchestrator API.
package handler

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/timbercraft/orchestrator/internal/api/models"
	"github.com/timbercraft/orchestrator/internal/api/response"
	"github.com/timbercraft/orchestrator/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version  string
	registry *resilience.Registry
	now      func() time.Time
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version string, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:  version,
		registry: registry,
		now:      time.Now,
	}
}

// HealthCheck handles GET /health - liveness only, no dependency checks.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Liveness{
		OK:        true,
		Timestamp: h.now().UnixMilli(),
	})
}

// SystemStatus handles GET /status - circuit breaker state per dependency.
// It reports what previous calls observed and makes no network calls itself.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:       models.HealthStatusOK,
		Time:         models.Timestamp(h.now()),
		Version:      h.version,
		Dependencies: []models.DependencyStatus{},
	}

	if h.registry != nil {
		for _, dep := range h.registry.GetAllHealth() {
			ds := models.DependencyStatus{
				Name:                dep.Name,
				Status:              dependencyStatus(dep),
				CircuitState:        dep.CircuitState.String(),
				ConsecutiveFailures: dep.Counts.ConsecutiveFailures,
				LastError:           dep.LastError,
			}
			if dep.LastSuccessAt != nil {
				ts := models.Timestamp(*dep.LastSuccessAt)
				ds.LastSuccessAt = &ts
			}
			if dep.LastFailureAt != nil {
				ts := models.Timestamp(*dep.LastFailureAt)
				ds.LastFailureAt = &ts
			}
			status.Dependencies = append(status.Dependencies, ds)

			// The orchestrator itself stays up when a dependency is down.
			if ds.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

// dependencyStatus maps circuit state to a health status. A closed circuit
// whose last call failed is reported as degraded.
func dependencyStatus(dep *resilience.DependencyHealth) models.HealthStatus {
	switch dep.CircuitState {
	case gobreaker.StateOpen:
		return models.HealthStatusFail
	case gobreaker.StateHalfOpen:
		return models.HealthStatusDegraded
	}
	if dep.LastFailureAt != nil && (dep.LastSuccessAt == nil || dep.LastFailureAt.After(*dep.LastSuccessAt)) {
		return models.HealthStatusDegraded
	}
	return models.HealthStatusOK
}
