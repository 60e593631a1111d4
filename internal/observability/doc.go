// Package observability provides logging, metrics and context helpers for
// the search service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger.Info().Str("query", q).Msg("search started")
//
// Attach request identifiers carried in a context:
//
//	logger = observability.LoggerFromContext(ctx, logger)
//
// # Metrics
//
// NewMetrics registers every collector with the default Prometheus
// registry under the given namespace, so call it once per process:
//
//	metrics := observability.NewMetrics("arxivite")
//	metrics.RecordSearch("success", 0.42, 50)
//
// All Record methods are safe to call on a nil *Metrics, which lets
// components run without instrumentation in tests and the CLI.
//
// # Context Helpers
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithSessionID(ctx, sessionID)
//	reqID := observability.RequestIDFromContext(ctx)
package observability
