// Package search runs the retrieval pipeline: it decides whether a query
// needs interpretation, fetches a page from the provider and recovers from
// empty or rejected queries before falling back to a literal search.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/arxivite/search-service/internal/cache"
	"github.com/arxivite/search-service/internal/domain"
	"github.com/arxivite/search-service/internal/observability"
	"github.com/arxivite/search-service/internal/papersources"
	"github.com/arxivite/search-service/internal/telemetry"
)

// Interpreter maps raw query text to a structured intent. It never fails;
// an empty intent means "search literally".
type Interpreter interface {
	Interpret(ctx context.Context, raw string) domain.SearchIntent
}

// HistoryRecorder persists completed searches.
type HistoryRecorder interface {
	Record(ctx context.Context, entry *domain.SearchHistoryEntry) error
}

// Orchestrator is the consumer-facing search entry point. It is safe for
// concurrent use.
type Orchestrator struct {
	source      papersources.PaperSource
	interpreter Interpreter
	results     *cache.ResultCache
	history     HistoryRecorder
	tracker     *Tracker
	emitter     telemetry.Emitter
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithResultCache serves repeated requests from c.
func WithResultCache(c *cache.ResultCache) Option {
	return func(o *Orchestrator) { o.results = c }
}

// WithHistory records each completed search.
func WithHistory(h HistoryRecorder) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithTracker replaces the default session tracker.
func WithTracker(t *Tracker) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracker = t
		}
	}
}

// WithEmitter sets the telemetry emitter for recovered panics.
func WithEmitter(e telemetry.Emitter) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.emitter = e
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an Orchestrator.
func New(source papersources.PaperSource, interpreter Interpreter, logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:      source,
		interpreter: interpreter,
		tracker:     NewTracker(0),
		emitter:     telemetry.Nop(),
		logger:      logger.With().Str("component", telemetry.ComponentSearch).Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Tracker returns the session tracker.
func (o *Orchestrator) Tracker() *Tracker {
	return o.tracker
}

// ClearCache drops every cached result.
func (o *Orchestrator) ClearCache() {
	if o.results != nil {
		o.results.Clear()
	}
}

// Search runs one search. Invalid requests return a domain.ValidationError.
// A result with no papers is not an error.
func (o *Orchestrator) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	req = req.WithDefaults()
	if err := domain.ValidateSearchRequest(req); err != nil {
		return nil, err
	}

	key := cache.RequestKey(req)
	if o.results != nil {
		if entry, ok := o.results.Get(key); ok {
			o.metrics.RecordResultCacheHit()
			return &domain.SearchResult{
				Papers:   entry.Papers,
				Metadata: entry.Metadata,
				Path:     entry.Path,
				Query:    entry.Query,
				Cached:   true,
			}, nil
		}
		o.metrics.RecordResultCacheMiss()
	}

	started := time.Now()
	r := newRun(o, req)
	err := r.execute(ctx)
	elapsed := time.Since(started)

	logger := observability.WithSearchContext(observability.LoggerFromContext(ctx, o.logger), req.Query, string(r.path))
	if err != nil {
		if !errors.Is(err, domain.ErrCancelled) {
			o.metrics.RecordSearchFailed(elapsed.Seconds())
			logger.Error().Err(err).Stringer("trace", traceString(r.trace)).Msg("search failed")
		}
		return nil, err
	}

	res := &domain.SearchResult{
		Papers:   ClientSort(nonNil(r.papers), req.Sort, r.applied),
		Metadata: r.metadata,
		Path:     r.path,
		Query:    r.query,
	}

	o.metrics.RecordSearch(string(res.Path), elapsed.Seconds(), len(res.Papers))
	logger.Info().
		Str("resolved_query", res.Query).
		Int("papers", len(res.Papers)).
		Int("total", res.Metadata.TotalResults).
		Dur("duration", elapsed).
		Msg("search completed")

	if o.results != nil {
		o.results.SetResult(key, res)
	}
	o.recordHistory(ctx, req, res)
	return res, nil
}

// SearchSession runs a search on behalf of a consumer session. A newer
// search for the same session cancels this one, and a result that finishes
// after being replaced is discarded with domain.ErrSuperseded.
func (o *Orchestrator) SearchSession(ctx context.Context, session string, req domain.SearchRequest) (*domain.SearchResult, error) {
	runCtx, gen, release := o.tracker.Begin(ctx, session)
	defer release()

	res, err := o.Search(observability.WithSessionID(runCtx, session), req)
	if !o.tracker.IsCurrent(session, gen) {
		o.metrics.RecordSearchSuperseded()
		return nil, fmt.Errorf("search %s: %w", gen, domain.ErrSuperseded)
	}
	if err != nil {
		return nil, err
	}
	res.Generation = gen
	return res, nil
}

func (o *Orchestrator) recordHistory(ctx context.Context, req domain.SearchRequest, res *domain.SearchResult) {
	if o.history == nil {
		return
	}
	entry := &domain.SearchHistoryEntry{
		SessionID:     observability.SessionIDFromContext(ctx),
		Query:         req.Query,
		ResolvedQuery: res.Query,
		Path:          res.Path,
		TotalResults:  res.Metadata.TotalResults,
		CreatedAt:     time.Now().UTC(),
	}
	if err := o.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		o.logger.Warn().Err(err).Msg("failed to record search history")
	}
}

func nonNil(papers []domain.PaperRecord) []domain.PaperRecord {
	if papers == nil {
		return []domain.PaperRecord{}
	}
	return papers
}

type traceString []State

func (t traceString) String() string {
	names := make([]string, len(t))
	for i, s := range t {
		names[i] = s.String()
	}
	return strings.Join(names, " > ")
}
