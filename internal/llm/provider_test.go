package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults to ollama", func(t *testing.T) {
		c, err := New(Config{})
		require.NoError(t, err)
		assert.IsType(t, &OllamaClient{}, c)
	})

	t.Run("openai", func(t *testing.T) {
		c, err := New(Config{Provider: ProviderOpenAI, OpenAI: OpenAIConfig{APIKey: "k"}})
		require.NoError(t, err)
		assert.IsType(t, &OpenAIClient{}, c)
	})

	t.Run("openai without key fails", func(t *testing.T) {
		_, err := New(Config{Provider: ProviderOpenAI})
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "bedrock"})
		assert.ErrorContains(t, err, "unknown llm provider")
	})
}
