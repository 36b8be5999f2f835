// Package downstream triggers refresh work on the document-parsing and
// retrieval services after content is published.
package downstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/timbercraft/orchestrator/internal/provider/resilience"
)

// ErrNotConfigured is returned when a refresh is requested for a service
// whose base URL is unset.
var ErrNotConfigured = errors.New("downstream base URL not configured")

// StatusError is returned when a refresh endpoint answers outside 2xx.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d", e.URL, e.StatusCode)
}

// ClientConfig holds configuration for the downstream clients.
type ClientConfig struct {
	// DoclingBaseURL is the document-parsing service base URL.
	DoclingBaseURL string

	// RAGBaseURL is the retrieval service base URL.
	RAGBaseURL string

	// Timeout bounds each call. Default: 5 seconds.
	Timeout time.Duration

	Registry *resilience.Registry
	Logger   zerolog.Logger
}

// Client pings refresh endpoints on dependent services.
type Client struct {
	doclingBaseURL string
	ragBaseURL     string
	docling        *resilience.Client
	rag            *resilience.Client
	logger         zerolog.Logger
}

// NewClient creates a downstream client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	newHTTP := func(name string) *resilience.Client {
		c := resilience.ObservingClientConfig(name)
		c.Timeout = timeout
		c.Registry = cfg.Registry
		return resilience.NewClient(c)
	}

	return &Client{
		doclingBaseURL: cfg.DoclingBaseURL,
		ragBaseURL:     cfg.RAGBaseURL,
		docling:        newHTTP("docling_service.reingest"),
		rag:            newHTTP("rag_service.warm"),
		logger:         cfg.Logger,
	}
}

// Reingest asks the document-parsing service to re-parse its sources.
func (c *Client) Reingest(ctx context.Context) error {
	c.logger.Info().Msg("triggering docling re-ingest")
	if c.doclingBaseURL == "" {
		return fmt.Errorf("reingest: %w", ErrNotConfigured)
	}
	if err := ping(ctx, c.docling, c.doclingBaseURL+"/parse"); err != nil {
		c.logger.Error().Err(err).Msg("docling ping failed")
		return fmt.Errorf("reingest: %w", err)
	}
	c.logger.Info().Msg("docling ping ok")
	return nil
}

// Warm pings the retrieval service so it loads its caches and embeddings.
func (c *Client) Warm(ctx context.Context) error {
	c.logger.Info().Msg("warming rag")
	if c.ragBaseURL == "" {
		return fmt.Errorf("warm: %w", ErrNotConfigured)
	}
	if err := ping(ctx, c.rag, c.ragBaseURL+"/health"); err != nil {
		c.logger.Error().Err(err).Msg("rag ping failed")
		return fmt.Errorf("warm: %w", err)
	}
	c.logger.Info().Msg("rag ping ok")
	return nil
}

func ping(ctx context.Context, client *resilience.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return nil
}
