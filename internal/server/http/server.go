// Package httpserver exposes the search pipeline over a JSON REST API.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/arxivite/search-service/internal/database"
	"github.com/arxivite/search-service/internal/domain"
)

// Searcher runs consumer searches. search.Orchestrator implements it.
type Searcher interface {
	SearchSession(ctx context.Context, session string, req domain.SearchRequest) (*domain.SearchResult, error)
	ClearCache()
}

// IntentInterpreter turns free text into a structured intent.
type IntentInterpreter interface {
	Interpret(ctx context.Context, raw string) domain.SearchIntent
}

// HistoryLister reads recorded searches.
type HistoryLister interface {
	ListRecent(ctx context.Context, limit int) ([]*domain.SearchHistoryEntry, error)
}

// Purger drops every cached entry of a store.
type Purger interface {
	Purge() error
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	searcher    Searcher
	interpreter IntentInterpreter
	history     HistoryLister
	intents     Purger
	db          HealthChecker
	logger      zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithHistory enables GET /api/v1/search/history.
func WithHistory(h HistoryLister) Option {
	return func(s *Server) { s.history = h }
}

// WithIntentPurger lets DELETE /api/v1/cache?intents=true purge the intent store.
func WithIntentPurger(p Purger) Option {
	return func(s *Server) { s.intents = p }
}

// WithHealthChecker makes /readyz depend on the database.
func WithHealthChecker(h HealthChecker) Option {
	return func(s *Server) { s.db = h }
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, searcher Searcher, interpreter IntentInterpreter, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		searcher:    searcher,
		interpreter: interpreter,
		logger:      logger.With().Str("component", "http-server").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestContextMiddleware)
	r.Use(requestLogger(s.logger))
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.searchGet)
		r.Post("/search", s.searchPost)
		r.Get("/search/history", s.listHistory)
		r.Post("/interpret", s.interpret)
		r.Delete("/cache", s.clearCache)
	})

	return r
}

// Start listens and serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	health := s.db.Health(r.Context())
	if !health.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": health.Status,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}
