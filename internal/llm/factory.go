package llm

import (
	"fmt"
	"time"

	"github.com/arxivite/search-service/internal/domain"
)

// FactoryConfig holds the parameters needed to create a Completer.
type FactoryConfig struct {
	// Provider is "gemini", "openai" or "anthropic".
	Provider    string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	Gemini      GeminiConfig
	OpenAI      OpenAIConfig
	Anthropic   AnthropicConfig
}

// NewCompleter builds the configured provider. A provider without an API
// key yields an error wrapping domain.ErrMissingCredential.
func NewCompleter(cfg FactoryConfig) (Completer, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini: %w", domain.ErrMissingCredential)
		}
		return NewGeminiProvider(cfg.Gemini, cfg.Temperature, cfg.Timeout, cfg.MaxRetries), nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai: %w", domain.ErrMissingCredential)
		}
		return NewOpenAIProvider(cfg.OpenAI, cfg.Temperature, cfg.Timeout, cfg.MaxRetries), nil
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("anthropic: %w", domain.ErrMissingCredential)
		}
		return NewAnthropicProvider(cfg.Anthropic, cfg.Temperature, cfg.Timeout, cfg.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}
