package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/timbercraft/orchestrator/internal/api/models"
	"github.com/timbercraft/orchestrator/internal/auth"
)

// WebhookSecretHeader carries the shared secret on builder webhooks.
const WebhookSecretHeader = "X-Builder-Secret"

// claimsKey is the context key for validated operator claims.
type claimsKey struct{}

// WebhookRejectRecorder observes rejected webhooks.
type WebhookRejectRecorder interface {
	RecordWebhook(ctx context.Context, outcome string)
}

// WebhookSecret rejects requests whose secret header does not match secret
// with 401 {"error":"invalid webhook secret"}. The handler is not invoked.
func WebhookSecret(secret string, log zerolog.Logger, recorder WebhookRejectRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.SecureCompare(r.Header.Get(WebhookSecretHeader), secret) {
				requestID := GetRequestID(r.Context())
				log.Warn().
					Str("request_id", requestID).
					Str("remote_addr", r.RemoteAddr).
					Bool("header_present", r.Header.Get(WebhookSecretHeader) != "").
					Msg("invalid webhook secret")
				if recorder != nil {
					recorder.RecordWebhook(r.Context(), "unauthorized")
				}
				models.NewUnauthorized(requestID, models.ErrorInvalidWebhookSecret).Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin validates a bearer JWT and requires the admin role.
// Missing or invalid tokens get 401; valid tokens without the role get 403.
func RequireAdmin(jwt *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			// Check for Bearer prefix (case-insensitive)
			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			tokenString := authHeader[len(bearerPrefix):]
			if tokenString == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			claims, err := jwt.ValidateToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeUnauthorized(w, r, "token has expired")
				case errors.Is(err, auth.ErrInvalidToken):
					writeUnauthorized(w, r, "invalid token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			if !claims.IsAdmin() {
				models.NewForbidden(GetRequestID(r.Context()), "admin role required").Write(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized writes a 401 Unauthorized response.
// This is implemented directly here to avoid import cycle with response package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	models.NewUnauthorized(GetRequestID(r.Context()), models.ErrorUnauthorized).
		WithDetail(detail).
		Write(w)
}

// GetClaims returns the validated operator claims, or nil when the request
// was not authenticated.
func GetClaims(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(claimsKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}
