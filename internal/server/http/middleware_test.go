package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/arxivite/search-service/internal/observability"
)

func TestRequestContextMiddleware(t *testing.T) {
	var requestID, sessionID string

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContextMiddleware)
	r.Get("/probe", func(w http.ResponseWriter, r *http.Request) {
		requestID = observability.RequestIDFromContext(r.Context())
		sessionID = observability.SessionIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	req.Header.Set(SessionHeader, "tab-1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, "req-123", requestID)
	assert.Equal(t, "tab-1", sessionID)
	assert.Equal(t, "req-123", rr.Header().Get(middleware.RequestIDHeader))
}

func TestRequestContextMiddleware_NoSession(t *testing.T) {
	sessionID := "unset"

	h := requestContextMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID = observability.SessionIDFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, sessionID)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	h := requestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("{}"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"status":502`)
	assert.Contains(t, out, `"path":"/api/v1/search"`)
}
