package telemetry

import (
	"context"

	"github.com/arxivite/search-service/internal/domain"
)

// LogStore persists system log rows. repository.PgLogRepository
// implements it.
type LogStore interface {
	InsertLog(ctx context.Context, entry *domain.SystemLog) error
}

// PostgresSink writes events into the system_logs table.
type PostgresSink struct {
	store LogStore
}

// NewPostgresSink wraps a log store.
func NewPostgresSink(store LogStore) *PostgresSink {
	return &PostgresSink{store: store}
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

// Write implements Sink.
func (s *PostgresSink) Write(ctx context.Context, e Event) error {
	entry := e.SystemLog()
	return s.store.InsertLog(ctx, &entry)
}
