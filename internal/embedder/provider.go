package embedder

import (
	"fmt"
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/resilience"
)

// ProviderType names an embedding backend.
type ProviderType string

const (
	ProviderOllama ProviderType = "ollama"
	ProviderOpenAI ProviderType = "openai"
	// ProviderMock produces deterministic hash vectors, for demos and tests.
	ProviderMock ProviderType = "mock"
)

// IsValid returns true if the provider type is recognized
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderOllama, ProviderOpenAI, ProviderMock:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if the provider requires an API key
func (p ProviderType) RequiresAPIKey() bool {
	return p == ProviderOpenAI
}

// ProviderConfig describes the full embedder stack.
type ProviderConfig struct {
	Provider   string
	Model      string
	Dimensions int
	Timeout    time.Duration

	OllamaURL  string
	OpenAIKey  string
	OpenAIURL  string
	CacheSize  int
	RatePerSec float64
	RateBurst  int
}

// NewFromConfig builds the provider client and wraps it, innermost first, in
// retries and circuit breaking (when executor is non-nil), rate limiting
// (when RatePerSec > 0) and an LRU cache (when CacheSize > 0).
func NewFromConfig(cfg ProviderConfig, executor *resilience.Executor) (Embedder, error) {
	base, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	var e Embedder = base
	if executor != nil {
		e = NewResilientEmbedder(e, executor)
	}
	if cfg.RatePerSec > 0 {
		e = NewRateLimitedEmbedder(e, cfg.RatePerSec, cfg.RateBurst)
	}
	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}

func newProvider(cfg ProviderConfig) (Embedder, error) {
	provider := ProviderType(cfg.Provider)
	if provider == "" {
		return nil, ErrProviderNotConfigured
	}

	switch provider {
	case ProviderOllama:
		return NewOllamaClient(OllamaConfig{
			BaseURL:    cfg.OllamaURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		}), nil
	case ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:     cfg.OpenAIKey,
			BaseURL:    cfg.OpenAIURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case ProviderMock:
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q: must be one of ollama, openai, mock", cfg.Provider)
	}
}
