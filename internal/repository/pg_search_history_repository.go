package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arxivite/search-service/internal/domain"
)

// PgSearchHistoryRepository records completed consumer searches.
type PgSearchHistoryRepository struct {
	db DBTX
}

// NewPgSearchHistoryRepository creates a new PostgreSQL search history repository.
func NewPgSearchHistoryRepository(db DBTX) *PgSearchHistoryRepository {
	return &PgSearchHistoryRepository{db: db}
}

// Record inserts one history row.
func (r *PgSearchHistoryRepository) Record(ctx context.Context, entry *domain.SearchHistoryEntry) error {
	if entry == nil {
		return domain.NewValidationError("entry", "history entry is required")
	}
	if strings.TrimSpace(entry.Query) == "" {
		return domain.NewValidationError("query", "query is required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO search_history (id, session_id, query, resolved_query, path, total_results, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.Query,
		entry.ResolvedQuery,
		string(entry.Path),
		entry.TotalResults,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record search history: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first. limit is clamped to [1, 200]
// and defaults to 20.
func (r *PgSearchHistoryRepository) ListRecent(ctx context.Context, limit int) ([]*domain.SearchHistoryEntry, error) {
	return r.list(ctx, `
		SELECT id, session_id, query, resolved_query, path, total_results, created_at
		FROM search_history
		ORDER BY created_at DESC
		LIMIT $1`, clampLimit(limit))
}

// ListBySession returns the newest entries of one session.
func (r *PgSearchHistoryRepository) ListBySession(ctx context.Context, session string, limit int) ([]*domain.SearchHistoryEntry, error) {
	if session == "" {
		return nil, domain.NewValidationError("session_id", "session id is required")
	}
	return r.list(ctx, `
		SELECT id, session_id, query, resolved_query, path, total_results, created_at
		FROM search_history
		WHERE session_id = $2
		ORDER BY created_at DESC
		LIMIT $1`, clampLimit(limit), session)
}

func (r *PgSearchHistoryRepository) list(ctx context.Context, query string, args ...any) ([]*domain.SearchHistoryEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.SearchHistoryEntry, 0)
	for rows.Next() {
		var (
			e    domain.SearchHistoryEntry
			path string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Query, &e.ResolvedQuery, &path, &e.TotalResults, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search history: %w", err)
		}
		e.Path = domain.ResolutionPath(path)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search history: %w", err)
	}
	return entries, nil
}
