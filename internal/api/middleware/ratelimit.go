package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/timbercraft/orchestrator/internal/api/models"
)

// RateLimitConfig is a fixed request budget per sliding window.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// WebhookRateLimit applies to builder webhooks (10 req/min).
	WebhookRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
	}

	// DiagnoseRateLimit applies to diagnostics, which can restart containers (30 req/min).
	DiagnoseRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP limits by client address. chi's RealIP runs earlier in the
// chain, so X-Forwarded-For from the reverse proxy is honoured.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limiter(cfg, httprate.KeyByRealIP)
}

// RateLimitBySubject limits authenticated operators by token subject,
// falling back to the client IP. It must run after RequireAdmin.
func RateLimitBySubject(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limiter(cfg, keyBySubjectOrIP)
}

func limiter(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(rateLimitExceededHandler(cfg)),
	)
}

func keyBySubjectOrIP(r *http.Request) (string, error) {
	if claims := GetClaims(r.Context()); claims != nil && claims.Subject != "" {
		return "sub:" + claims.Subject, nil
	}
	return httprate.KeyByRealIP(r)
}

func rateLimitExceededHandler(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := int(cfg.WindowLength.Seconds())
	return func(w http.ResponseWriter, r *http.Request) {
		// httprate doesn't expose the reset time; the window length is an upper bound.
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").Write(w)
	}
}
