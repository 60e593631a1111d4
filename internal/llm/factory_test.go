package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxivite/search-service/internal/domain"
)

func TestNewCompleter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      FactoryConfig
		provider string
	}{
		{"gemini", FactoryConfig{Provider: "gemini", Gemini: GeminiConfig{APIKey: "k"}}, "gemini"},
		{"openai", FactoryConfig{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "k"}}, "openai"},
		{"anthropic", FactoryConfig{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "k"}}, "anthropic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompleter(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, c.Provider())
			assert.NotEmpty(t, c.Model())
		})
	}
}

func TestNewCompleter_MissingKey(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"gemini", "openai", "anthropic"} {
		_, err := NewCompleter(FactoryConfig{Provider: p})
		assert.ErrorIs(t, err, domain.ErrMissingCredential, p)
	}
}

func TestNewCompleter_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := NewCompleter(FactoryConfig{Provider: "cohere"})
	require.Error(t, err)
	assert.Equal(t, `unsupported LLM provider: "cohere"`, err.Error())
}
