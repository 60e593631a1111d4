package telemetry

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arxivite/search-service/internal/domain"
)

// LogSink writes events to a zerolog logger.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs through logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "telemetry").Logger()}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Write implements Sink.
func (s *LogSink) Write(_ context.Context, e Event) error {
	var ev *zerolog.Event
	switch e.Level {
	case domain.LogLevelError:
		ev = s.logger.Error()
	case domain.LogLevelWarn:
		ev = s.logger.Warn()
	default:
		ev = s.logger.Info()
	}
	ev.Str("event_id", e.ID.String()).
		Str("event_kind", string(e.Kind)).
		Str("event_component", e.Component).
		Interface("metadata", e.Metadata).
		Time("event_time", e.Timestamp).
		Msg(e.Message)
	return nil
}
