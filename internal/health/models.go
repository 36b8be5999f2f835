// Package health probes the health endpoints of the services the orchestrator manages.
package health

import "encoding/json"

// Service names known to the orchestrator.
const (
	ServiceWeb     = "web"
	ServiceRAG     = "rag_service"
	ServiceDocling = "docling_service"
)

// DefaultServices is the service set used when a caller does not name any.
func DefaultServices() []string {
	return []string{ServiceWeb, ServiceRAG, ServiceDocling}
}

// Reasons reported on failed probes that produced no HTTP status.
const (
	ReasonNoURL      = "no-url"
	ReasonNoResponse = "no-response"
	ReasonTimeout    = "timeout"
)

// Result is the outcome of one health probe. It is built fresh for every probe.
type Result struct {
	Service string          `json:"service"`
	OK      bool            `json:"ok"`
	Status  int             `json:"status,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// MarshalJSON renders a successful probe with an explicit body, which is null
// when the endpoint did not return JSON.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	if !r.OK {
		return json.Marshal(plain(r))
	}
	body := r.Body
	if len(body) == 0 {
		body = json.RawMessage("null")
	}
	return json.Marshal(struct {
		Service string          `json:"service"`
		OK      bool            `json:"ok"`
		Body    json.RawMessage `json:"body"`
	}{r.Service, r.OK, body})
}
