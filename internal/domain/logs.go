package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogLevel is the severity of a system log row.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// SystemLog is a persisted telemetry event.
type SystemLog struct {
	ID        uuid.UUID      `json:"id"`
	Level     LogLevel       `json:"level"`
	Component string         `json:"component"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SearchHistoryEntry records one completed consumer search.
type SearchHistoryEntry struct {
	ID            uuid.UUID      `json:"id"`
	SessionID     string         `json:"session_id,omitempty"`
	Query         string         `json:"query"`
	ResolvedQuery string         `json:"resolved_query"`
	Path          ResolutionPath `json:"path"`
	TotalResults  int            `json:"total_results"`
	CreatedAt     time.Time      `json:"created_at"`
}
