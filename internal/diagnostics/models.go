package diagnostics

import (
	"fmt"
	"strings"

	"github.com/timbercraft/orchestrator/internal/docker"
	"github.com/timbercraft/orchestrator/internal/health"
)

// Actions.
const (
	ActionHealth  = "health"
	ActionLogs    = "logs"
	ActionRebuild = "rebuild"
)

// Request limits.
const (
	MaxServices          = 20
	MaxServiceNameLength = 64
)

// DefaultActions returns the actions run when a request names none.
func DefaultActions() []string {
	return []string{ActionHealth, ActionLogs}
}

// Request is a diagnostics request. Empty fields fall back to defaults.
type Request struct {
	Services []string `json:"services,omitempty"`
	Actions  []string `json:"actions,omitempty"`
}

// Result holds one key per requested action.
type Result struct {
	Health  []health.Result        `json:"health,omitempty"`
	Logs    []string               `json:"logs,omitempty"`
	Rebuild []docker.RestartResult `json:"rebuild,omitempty"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string
	Message string
	Code    string
}

// ValidationError is returned for requests that cannot be run.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "invalid diagnostics request: " + strings.Join(msgs, "; ")
}

// Normalize applies defaults, removes duplicate actions and validates the
// request. Unknown service names are accepted.
func (r Request) Normalize() (Request, error) {
	var fields []FieldError

	services := r.Services
	if len(services) == 0 {
		services = health.DefaultServices()
	}
	if len(services) > MaxServices {
		fields = append(fields, FieldError{
			Field:   "services",
			Message: fmt.Sprintf("at most %d services may be requested", MaxServices),
			Code:    "too_many",
		})
	}
	for i, s := range services {
		switch {
		case s == "":
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("services[%d]", i),
				Message: "service name must not be empty",
				Code:    "required",
			})
		case len(s) > MaxServiceNameLength:
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("services[%d]", i),
				Message: fmt.Sprintf("service name must be at most %d characters", MaxServiceNameLength),
				Code:    "too_long",
			})
		}
	}

	actions := r.Actions
	if len(actions) == 0 {
		actions = DefaultActions()
	}
	seen := make(map[string]bool, len(actions))
	deduped := make([]string, 0, len(actions))
	for i, a := range actions {
		switch a {
		case ActionHealth, ActionLogs, ActionRebuild:
			if !seen[a] {
				seen[a] = true
				deduped = append(deduped, a)
			}
		default:
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("actions[%d]", i),
				Message: fmt.Sprintf("unknown action %q, expected one of health, logs, rebuild", a),
				Code:    "invalid",
			})
		}
	}

	if len(fields) > 0 {
		return Request{}, &ValidationError{Fields: fields}
	}
	return Request{Services: services, Actions: deduped}, nil
}

func (r Request) has(action string) bool {
	for _, a := range r.Actions {
		if a == action {
			return true
		}
	}
	return false
}
