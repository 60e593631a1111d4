package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arxivite/search-service/internal/domain"
	"github.com/arxivite/search-service/internal/telemetry"
)

var _ telemetry.LogStore = (*PgLogRepository)(nil)

// PgLogRepository writes telemetry events into system_logs.
type PgLogRepository struct {
	db DBTX
}

// NewPgLogRepository creates a new PostgreSQL system log repository.
func NewPgLogRepository(db DBTX) *PgLogRepository {
	return &PgLogRepository{db: db}
}

// InsertLog stores one row. A zero ID or timestamp is filled in. Replaying
// the same event ID is a no-op so the Kafka relay can redeliver safely.
func (r *PgLogRepository) InsertLog(ctx context.Context, entry *domain.SystemLog) error {
	if entry == nil {
		return domain.NewValidationError("entry", "log entry is required")
	}
	if entry.Component == "" {
		return domain.NewValidationError("component", "component is required")
	}
	switch entry.Level {
	case domain.LogLevelInfo, domain.LogLevelWarn, domain.LogLevelError:
	default:
		return domain.NewValidationError("level", fmt.Sprintf("unsupported level %q", entry.Level))
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	meta := entry.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal log metadata: %w", err)
	}

	query := `
		INSERT INTO system_logs (id, level, component, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(ctx, query,
		entry.ID,
		string(entry.Level),
		entry.Component,
		entry.Message,
		metaJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert system log: %w", err)
	}
	return nil
}

// ListLogs returns the newest rows for a component, or for every component
// when component is empty.
func (r *PgLogRepository) ListLogs(ctx context.Context, component string, limit int) ([]*domain.SystemLog, error) {
	query := `
		SELECT id, level, component, message, metadata, created_at
		FROM system_logs
		WHERE ($1 = '' OR component = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, component, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list system logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*domain.SystemLog, 0)
	for rows.Next() {
		var (
			entry    domain.SystemLog
			level    string
			metaJSON []byte
		)
		if err := rows.Scan(&entry.ID, &level, &entry.Component, &entry.Message, &metaJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan system log: %w", err)
		}
		entry.Level = domain.LogLevel(level)
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal log metadata: %w", err)
			}
		}
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating system logs: %w", err)
	}
	return logs, nil
}
