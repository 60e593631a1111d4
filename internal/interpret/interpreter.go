// Package interpret turns free-text search queries into structured
// SearchIntent values using a language model.
//
// Interpretation never fails: a missing credential, a provider error or an
// unparseable completion all yield an empty intent, which sends the caller
// down the literal-search path. Only successful interpretations are stored.
package interpret

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/arxivite/search-service/internal/cache"
	"github.com/arxivite/search-service/internal/domain"
	"github.com/arxivite/search-service/internal/llm"
	"github.com/arxivite/search-service/internal/observability"
	"github.com/arxivite/search-service/internal/telemetry"
)

// DefaultMaxTokens caps the completion length of an interpretation.
const DefaultMaxTokens = 256

// DefaultCompletionTimeout bounds a shared completion, which runs detached
// from the callers waiting on it.
const DefaultCompletionTimeout = 2 * time.Minute

// Interpretation outcomes reported to metrics.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeLLM      = "llm"
	OutcomeFallback = "fallback"
	// OutcomeCancelled means the caller gave up before the shared
	// completion finished.
	OutcomeCancelled = "cancelled"
)

// IntentStore holds interpreted intents keyed by normalized query text.
// cache.MemoryIntentStore and cache.LevelDBIntentStore implement it.
type IntentStore interface {
	Get(key string) (domain.SearchIntent, bool)
	Put(key string, intent domain.SearchIntent)
}

// Interpreter maps raw queries to intents, memoizing successful results.
type Interpreter struct {
	completer llm.Completer
	store     IntentStore
	emitter   telemetry.Emitter
	metrics   *observability.Metrics
	logger    zerolog.Logger
	maxTokens int
	timeout   time.Duration
	group     singleflight.Group
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithStore replaces the default in-memory intent store.
func WithStore(store IntentStore) Option {
	return func(i *Interpreter) {
		if store != nil {
			i.store = store
		}
	}
}

// WithEmitter sets the telemetry emitter for LLM usage and error events.
func WithEmitter(e telemetry.Emitter) Option {
	return func(i *Interpreter) {
		if e != nil {
			i.emitter = e
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(i *Interpreter) { i.metrics = m }
}

// WithMaxTokens overrides DefaultMaxTokens.
func WithMaxTokens(n int) Option {
	return func(i *Interpreter) {
		if n > 0 {
			i.maxTokens = n
		}
	}
}

// WithCompletionTimeout overrides DefaultCompletionTimeout.
func WithCompletionTimeout(d time.Duration) Option {
	return func(i *Interpreter) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// New creates an Interpreter. A nil completer is allowed and means no LLM
// credential is configured; every query then interprets to an empty intent.
func New(completer llm.Completer, logger zerolog.Logger, opts ...Option) *Interpreter {
	i := &Interpreter{
		completer: completer,
		store:     cache.NewMemoryIntentStore(0),
		emitter:   telemetry.Nop(),
		logger:    logger.With().Str("component", telemetry.ComponentInterpreter).Logger(),
		maxTokens: DefaultMaxTokens,
		timeout:   DefaultCompletionTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CacheKey normalizes query text for intent lookup.
func CacheKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

type interpretation struct {
	intent  domain.SearchIntent
	outcome string
}

// Interpret returns the structured intent of raw. Repeated calls with the
// same normalized text return equal intents without contacting the LLM.
func (i *Interpreter) Interpret(ctx context.Context, raw string) domain.SearchIntent {
	key := CacheKey(raw)
	if key == "" {
		return domain.NewSearchIntent()
	}

	if intent, ok := i.store.Get(key); ok {
		i.metrics.RecordInterpretation(OutcomeCacheHit)
		return intent.Clone()
	}

	detached := context.WithoutCancel(ctx)
	ch := i.group.DoChan(key, func() (any, error) {
		if intent, ok := i.store.Get(key); ok {
			return interpretation{intent: intent, outcome: OutcomeCacheHit}, nil
		}

		callCtx, cancel := context.WithTimeout(detached, i.timeout)
		defer cancel()
		intent, err := i.complete(callCtx, raw)
		if err != nil {
			i.reportFailure(callCtx, raw, err)
			return interpretation{intent: domain.NewSearchIntent(), outcome: OutcomeFallback}, nil
		}

		i.store.Put(key, intent)
		return interpretation{intent: intent, outcome: OutcomeLLM}, nil
	})

	select {
	case r := <-ch:
		res := r.Val.(interpretation)
		i.metrics.RecordInterpretation(res.outcome)
		return res.intent.Clone()
	case <-ctx.Done():
		i.metrics.RecordInterpretation(OutcomeCancelled)
		return domain.NewSearchIntent()
	}
}

func (i *Interpreter) complete(ctx context.Context, raw string) (domain.SearchIntent, error) {
	if i.completer == nil {
		return domain.SearchIntent{}, domain.ErrMissingCredential
	}

	provider, model := i.completer.Provider(), i.completer.Model()
	resp, err := i.completer.Complete(ctx, llm.CompletionRequest{
		Prompt:    BuildPrompt(raw),
		MaxTokens: i.maxTokens,
		JSON:      true,
	})
	if err != nil {
		i.metrics.RecordLLMRequestFailed(provider, model, errorType(err))
		return domain.SearchIntent{}, err
	}

	if resp.Model != "" {
		model = resp.Model
	}
	i.metrics.RecordLLMRequest(provider, model, resp.Latency.Seconds(), resp.InputTokens, resp.OutputTokens)
	i.emitter.Emit(telemetry.LLMUsageEvent(model, resp.TotalTokens(), resp.Latency))

	intent, err := ParseIntent(resp.Text)
	if err != nil {
		i.metrics.RecordLLMRequestFailed(provider, model, "parse")
		return domain.SearchIntent{}, err
	}

	i.logger.Debug().
		Str("query", raw).
		Int("authors", len(intent.Authors)).
		Int("topics", len(intent.Topics)).
		Msg("query interpreted")
	return intent, nil
}

func (i *Interpreter) reportFailure(ctx context.Context, raw string, err error) {
	if ctx.Err() != nil {
		i.logger.Debug().Err(err).Str("query", raw).Msg("interpretation abandoned")
		return
	}
	if errors.Is(err, domain.ErrMissingCredential) {
		i.logger.Debug().Str("query", raw).Msg("no LLM credential; using literal search")
	} else {
		i.logger.Warn().Err(err).Str("query", raw).Msg("interpretation failed; using literal search")
	}
	i.emitter.Emit(telemetry.ErrorEvent(telemetry.ComponentInterpreter, err, ""))
}

func errorType(err error) string {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, llm.ErrEmptyCompletion):
		return "empty"
	case errors.As(err, &apiErr) && apiErr.IsTransient():
		return "transient"
	case errors.As(err, &apiErr):
		return "api"
	default:
		return "unknown"
	}
}
