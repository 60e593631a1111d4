package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the search service, grouped
// into searches, provider requests, interpretation, LLM calls, result
// caching and telemetry delivery.
//
// Every Record method is a no-op on a nil receiver.
type Metrics struct {
	// SearchesTotal counts completed searches, labeled by resolution path
	// (success, empty_relax, parser_error_relax, legacy_fallback, failed).
	SearchesTotal *prometheus.CounterVec

	// SearchDuration observes end-to-end search duration in seconds, labeled by path.
	SearchDuration *prometheus.HistogramVec

	// PapersPerSearch observes the number of papers returned per search.
	PapersPerSearch prometheus.Histogram

	// SearchesSuperseded counts searches cancelled by a newer search in the same session.
	SearchesSuperseded prometheus.Counter

	// ProviderRequests counts arXiv requests, labeled by orchestration stage and outcome.
	ProviderRequests *prometheus.CounterVec

	// ProviderRequestDuration observes arXiv request duration in seconds, labeled by stage.
	ProviderRequestDuration *prometheus.HistogramVec

	// Interpretations counts interpretation outcomes (cache_hit, llm, fallback).
	Interpretations *prometheus.CounterVec

	// LLMRequestsTotal counts LLM completions, labeled by provider and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM completions, labeled by provider, model and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM completion latency in seconds.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts tokens, labeled by provider, model and direction (input, output).
	LLMTokensUsed *prometheus.CounterVec

	// ResultCacheHits counts search responses served from the result cache.
	ResultCacheHits prometheus.Counter

	// ResultCacheMisses counts result cache lookups that fell through to the provider.
	ResultCacheMisses prometheus.Counter

	// TelemetryDropped counts telemetry events that never reached a sink, labeled by reason.
	TelemetryDropped *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with the default
// Prometheus registry. The namespace prefixes every metric name.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a Metrics instance registered with reg.
func NewMetricsWithRegisterer(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Searches
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches by resolution path",
		}, []string{"path"}),
		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of searches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"path"}),
		PapersPerSearch: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_search",
			Help:      "Number of papers returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		SearchesSuperseded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_superseded_total",
			Help:      "Total number of searches superseded by a newer search",
		}),

		// Provider
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of arXiv API requests by stage and outcome",
		}, []string{"stage", "outcome"}),
		ProviderRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of arXiv API requests in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"stage"}),

		// Interpretation
		Interpretations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpretations_total",
			Help:      "Total number of query interpretations by outcome",
		}, []string{"outcome"}),

		// LLM
		LLMRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		}, []string{"provider", "model"}),
		LLMRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM requests",
		}, []string{"provider", "model", "error_type"}),
		LLMRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM requests in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider", "model"}),
		LLMTokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of LLM tokens used",
		}, []string{"provider", "model", "direction"}),

		// Result cache
		ResultCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_hits_total",
			Help:      "Total number of result cache hits",
		}),
		ResultCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_misses_total",
			Help:      "Total number of result cache misses",
		}),

		// Telemetry
		TelemetryDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_dropped_total",
			Help:      "Total number of telemetry events dropped before delivery",
		}, []string{"reason"}),
	}
}

// RecordSearch records a completed search.
func (m *Metrics) RecordSearch(path string, durationSeconds float64, paperCount int) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(path).Inc()
	m.SearchDuration.WithLabelValues(path).Observe(durationSeconds)
	m.PapersPerSearch.Observe(float64(paperCount))
}

// RecordSearchFailed records a search that exhausted every strategy.
func (m *Metrics) RecordSearchFailed(durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues("failed").Inc()
	m.SearchDuration.WithLabelValues("failed").Observe(durationSeconds)
}

// RecordSearchSuperseded records a search cancelled by a newer one.
func (m *Metrics) RecordSearchSuperseded() {
	if m == nil {
		return
	}
	m.SearchesSuperseded.Inc()
}

// RecordProviderRequest records one arXiv request made during the given stage.
func (m *Metrics) RecordProviderRequest(stage, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(stage, outcome).Inc()
	m.ProviderRequestDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordInterpretation records how an intent was obtained.
func (m *Metrics) RecordInterpretation(outcome string) {
	if m == nil {
		return
	}
	m.Interpretations.WithLabelValues(outcome).Inc()
}

// RecordLLMRequest records a successful LLM completion.
func (m *Metrics) RecordLLMRequest(provider, model string, durationSeconds float64, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, model).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	m.LLMTokensUsed.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
}

// RecordLLMRequestFailed records a failed LLM completion.
func (m *Metrics) RecordLLMRequestFailed(provider, model, errorType string) {
	if m == nil {
		return
	}
	m.LLMRequestsFailed.WithLabelValues(provider, model, errorType).Inc()
}

// RecordResultCacheHit records a search served from the result cache.
func (m *Metrics) RecordResultCacheHit() {
	if m == nil {
		return
	}
	m.ResultCacheHits.Inc()
}

// RecordResultCacheMiss records a result cache miss.
func (m *Metrics) RecordResultCacheMiss() {
	if m == nil {
		return
	}
	m.ResultCacheMisses.Inc()
}

// RecordTelemetryDropped records a telemetry event that was not delivered.
func (m *Metrics) RecordTelemetryDropped(reason string) {
	if m == nil {
		return
	}
	m.TelemetryDropped.WithLabelValues(reason).Inc()
}
