// Package llm provides text-completion clients for the query interpreter.
//
// Each provider sends a single user-turn prompt and returns the raw text of
// the first candidate. Transient failures (network errors, 429, 5xx) are
// retried with backoff; everything else is returned immediately.
package llm

import (
	"context"
	"time"
)

// CompletionRequest is a single-turn prompt.
type CompletionRequest struct {
	// Prompt is the user-turn text.
	Prompt string
	// System is an optional system instruction.
	System string
	// MaxTokens caps the response length. Zero uses the provider default.
	MaxTokens int
	// JSON asks the provider for a JSON object response where supported.
	JSON bool
}

// Completion is the provider's reply.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}

// TotalTokens returns input plus output tokens.
func (c *Completion) TotalTokens() int {
	return c.InputTokens + c.OutputTokens
}

// Completer sends prompts to a language model.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Provider() string
	Model() string
}
