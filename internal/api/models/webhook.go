package models

// WebhookResponse is returned after a builder webhook is processed.
type WebhookResponse struct {
	OK           bool     `json:"ok"`
	LogsSnapshot []string `json:"logsSnapshot"`
}
