package llm

import "fmt"

// Provider names accepted by New.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config selects and configures a chat provider.
type Config struct {
	Provider string
	Ollama   OllamaConfig
	OpenAI   OpenAIConfig
}

// New builds the ChatCompleter for cfg.Provider.
func New(cfg Config) (ChatCompleter, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaClient(cfg.Ollama), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAI)
	default:
		return nil, fmt.Errorf("unknown llm provider %q: must be one of ollama, openai", cfg.Provider)
	}
}
