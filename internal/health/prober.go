package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/timbercraft/orchestrator/internal/provider/resilience"
)

// maxBodyBytes caps how much of a health response body is read.
const maxBodyBytes = 64 << 10

// ProberConfig holds configuration for the prober.
type ProberConfig struct {
	// URLs maps a service name to its health endpoint. Entries with an empty
	// URL are treated as unmapped.
	URLs map[string]string

	// Timeout bounds each probe. Default: 5 seconds.
	Timeout time.Duration

	// Registry receives one resilient client per mapped service.
	Registry *resilience.Registry

	// Recorder observes probe outcomes. Optional.
	Recorder Recorder

	Logger zerolog.Logger
}

// Recorder observes probe outcomes, typically for metrics.
type Recorder interface {
	RecordProbe(ctx context.Context, service string, ok bool, reason string, duration time.Duration)
}

// Prober answers "is service X healthy" from a static name to URL map.
type Prober struct {
	urls     map[string]string
	clients  map[string]*resilience.Client
	recorder Recorder
	logger   zerolog.Logger
}

// URLsFromBase builds the standard health URL map. Empty bases leave the
// service unmapped.
func URLsFromBase(webHealthURL, ragBaseURL, doclingBaseURL string) map[string]string {
	urls := make(map[string]string, 3)
	if webHealthURL != "" {
		urls[ServiceWeb] = webHealthURL
	}
	if ragBaseURL != "" {
		urls[ServiceRAG] = ragBaseURL + "/health"
	}
	if doclingBaseURL != "" {
		urls[ServiceDocling] = doclingBaseURL + "/health"
	}
	return urls
}

// NewProber creates a Prober with one client per mapped service. The clients'
// breakers never open, so every Check makes a fresh request.
func NewProber(cfg ProberConfig) *Prober {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	urls := make(map[string]string, len(cfg.URLs))
	clients := make(map[string]*resilience.Client, len(cfg.URLs))
	for name, url := range cfg.URLs {
		if url == "" {
			continue
		}
		urls[name] = url

		clientCfg := resilience.ObservingClientConfig(name)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clients[name] = resilience.NewClient(clientCfg)
	}

	return &Prober{
		urls:     urls,
		clients:  clients,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
}

// URL returns the health URL for a service and whether it is mapped.
func (p *Prober) URL(service string) (string, bool) {
	url, ok := p.urls[service]
	return url, ok
}

// Check probes a single service. It never returns an error: every failure
// is folded into the result.
func (p *Prober) Check(ctx context.Context, service string) Result {
	start := time.Now()
	result := p.check(ctx, service)

	if p.recorder != nil {
		p.recorder.RecordProbe(ctx, service, result.OK, result.Reason, time.Since(start))
	}

	if !result.OK {
		p.logger.Debug().
			Str("service", service).
			Str("reason", result.Reason).
			Int("status", result.Status).
			Msg("health probe failed")
	}
	return result
}

func (p *Prober) check(ctx context.Context, service string) Result {
	url, ok := p.urls[service]
	if !ok {
		return Result{Service: service, OK: false, Reason: ReasonNoURL}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Result{Service: service, OK: false, Reason: ReasonNoResponse}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.clients[service].Do(req)
	if err != nil {
		return Result{Service: service, OK: false, Reason: classify(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Service: service, OK: false, Status: resp.StatusCode}
	}

	return Result{Service: service, OK: true, Body: readJSONBody(resp.Body)}
}

// CheckAll probes every service concurrently. The result slice has one
// entry per input name, in input order.
func (p *Prober) CheckAll(ctx context.Context, services []string) []Result {
	results := make([]Result, len(services))

	var g errgroup.Group
	for i, service := range services {
		g.Go(func() error {
			results[i] = p.Check(ctx, service)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// classify maps a transport error to a probe reason.
func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonNoResponse
}

// readJSONBody returns the body if it is valid JSON, nil otherwise.
func readJSONBody(r io.Reader) json.RawMessage {
	data, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil || len(data) == 0 || !json.Valid(data) {
		return nil
	}
	return json.RawMessage(data)
}
