package rerank

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how LLMScore is produced.
type Mode string

const (
	// ModeLLM asks the chat model and falls back to synthetic scores per batch.
	ModeLLM Mode = "llm"
	// ModeSynthetic never calls the model.
	ModeSynthetic Mode = "synthetic"
)

// ParseMode accepts "llm" or "synthetic", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLLM, "":
		return ModeLLM, nil
	case ModeSynthetic:
		return ModeSynthetic, nil
	default:
		return "", fmt.Errorf("unknown rescoring mode %q: must be llm or synthetic", s)
	}
}

// Config controls LLM rescoring.
type Config struct {
	Mode        Mode
	BatchSize   int
	Concurrency int
	Temperature float64
	MaxTokens   int
	// Timeout bounds one batch including retries; zero leaves it to the
	// client and the caller's context.
	Timeout   time.Duration
	Synthetic SyntheticConfig
}

// DefaultConfig returns batches of 5, two in flight, temperature 0.1 and
// 1024 max tokens.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeLLM,
		BatchSize:   5,
		Concurrency: 2,
		Temperature: 0.1,
		MaxTokens:   1024,
		Synthetic:   DefaultSyntheticConfig(),
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	c.Synthetic = c.Synthetic.normalize()
	return c
}
