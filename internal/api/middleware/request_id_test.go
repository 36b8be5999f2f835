package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timbercraft/orchestrator/internal/api/middleware"
)

// serveRequestID runs one request through RequestID and returns the ID seen
// by the handler and the ID echoed in the response.
func serveRequestID(t *testing.T, incoming string) (seen, echoed string) {
	t.Helper()

	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhook/builder", http.NoBody)
	if incoming != "" {
		req.Header.Set(middleware.RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return seen, rec.Header().Get(middleware.RequestIDHeader)
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	seen, echoed := serveRequestID(t, "")

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, echoed)

	parsed, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestRequestID_CallerSuppliedID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		kept     bool
	}{
		{"cms delivery id", "cms-delivery-0042", true},
		{"proxy style id", "edge:7f3a.9_b", true},
		{"oversized", strings.Repeat("a", 500), false},
		{"header injection", "abc\r\nX-Evil: 1", false},
		{"spaces", "two words", false},
		{"json fragment", `{"id":1}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, echoed := serveRequestID(t, tt.incoming)

			assert.Equal(t, seen, echoed)
			if tt.kept {
				assert.Equal(t, tt.incoming, seen)
				return
			}
			assert.NotEqual(t, tt.incoming, seen)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
		})
	}
}

func TestRequestID_UniqueIDs(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, _ := serveRequestID(t, "")
		assert.False(t, ids[id], "duplicate request ID generated: %s", id)
		ids[id] = true
	}
}

func TestGetRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))

	ctx := middleware.WithRequestID(req.Context(), "abc")
	assert.Equal(t, "abc", middleware.GetRequestID(ctx))
}
