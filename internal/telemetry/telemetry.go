// Package telemetry ships fire-and-forget operational events (provider
// requests, language-model usage, errors) to one or more sinks.
//
// Emitting never blocks the caller and sink failures never reach it: the
// Dispatcher buffers events and drops them when the buffer is full.
package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arxivite/search-service/internal/domain"
)

// Kind classifies an event.
type Kind string

const (
	KindRequest  Kind = "request"
	KindLLMUsage Kind = "llm_usage"
	KindError    Kind = "error"
)

// Component tags used by the search pipeline.
const (
	ComponentArxivAPI    = "arxiv-api"
	ComponentLLMAPI      = "llm-api"
	ComponentInterpreter = "query-interpreter"
	ComponentSearch      = "search-orchestrator"
)

// Event is one telemetry record.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Kind      Kind            `json:"kind"`
	Level     domain.LogLevel `json:"level"`
	Component string          `json:"component"`
	Message   string          `json:"message"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// SystemLog converts the event to its persisted form.
func (e Event) SystemLog() domain.SystemLog {
	meta := make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta["kind"] = string(e.Kind)
	return domain.SystemLog{
		ID:        e.ID,
		Level:     e.Level,
		Component: e.Component,
		Message:   e.Message,
		Metadata:  meta,
		CreatedAt: e.Timestamp,
	}
}

func newEvent(kind Kind, level domain.LogLevel, component, message string, meta map[string]any) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		Level:     level,
		Component: component,
		Message:   message,
		Metadata:  meta,
		Timestamp: time.Now().UTC(),
	}
}

// RequestEvent records an outbound provider query.
func RequestEvent(query string, params map[string]any) Event {
	return newEvent(KindRequest, domain.LogLevelInfo, ComponentArxivAPI, "ArXiv API Query", map[string]any{
		"query":  query,
		"params": params,
	})
}

// LLMUsageEvent records one completion call.
func LLMUsageEvent(model string, tokens int, latency time.Duration) Event {
	return newEvent(KindLLMUsage, domain.LogLevelInfo, ComponentLLMAPI, "LLM API Usage", map[string]any{
		"model":      model,
		"tokens":     tokens,
		"latency_ms": latency.Milliseconds(),
	})
}

// ErrorEvent records a failure inside component. stack may be empty.
func ErrorEvent(component string, err error, stack string) Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	meta := map[string]any{"component": component}
	if stack != "" {
		meta["stack"] = stack
	}
	return newEvent(KindError, domain.LogLevelError, component, msg, meta)
}

// Emitter accepts events without blocking.
type Emitter interface {
	Emit(Event)
}

// Sink delivers events to a backend.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Event) error
}

// Nop returns an Emitter that discards everything.
func Nop() Emitter { return nopEmitter{} }

type nopEmitter struct{}

func (nopEmitter) Emit(Event) {}
