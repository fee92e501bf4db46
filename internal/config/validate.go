package config

import (
	"fmt"
	"strings"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/embedder"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/llm"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/rerank"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// HasErrors returns true if there are any validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// validLogLevels defines the allowed log level values
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks the configuration for errors and returns all validation errors found
func Validate(cfg *Config) ValidationErrors {
	var errors ValidationErrors
	add := func(field, format string, args ...any) {
		errors = append(errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Version < 1 {
		add("version", "must be at least 1")
	}

	// Search defaults are checked by the pipeline's own rules so that the
	// field names match what a request would report.
	if sc, err := cfg.SearchDefaults(); err != nil {
		add("search", "%v", err)
	} else if err := sc.Validate(); err != nil {
		if verrs, ok := err.(search.ValidationErrors); ok {
			for _, ve := range verrs {
				add("search."+ve.Field, "%s", ve.Message)
			}
		} else {
			add("search", "%v", err)
		}
	}

	if cfg.Chunking.ChunkSize < 1 {
		add("chunking.chunk_size", "must be at least 1")
	}
	if cfg.Chunking.Overlap < 0 {
		add("chunking.overlap", "must be non-negative")
	} else if cfg.Chunking.Overlap >= cfg.Chunking.ChunkSize && cfg.Chunking.ChunkSize > 0 {
		add("chunking.overlap", "must be smaller than chunk_size (%d)", cfg.Chunking.ChunkSize)
	}

	if !embedder.ProviderType(cfg.Embedding.Provider).IsValid() {
		add("embedding.provider", "invalid provider '%s'; valid values are: ollama, openai, mock", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Model == "" {
		add("embedding.model", "must not be empty")
	}
	if cfg.Embedding.Dimensions < 0 {
		add("embedding.dimensions", "must be non-negative")
	}
	if cfg.Embedding.BatchSize < 1 {
		add("embedding.batch_size", "must be at least 1")
	}
	if cfg.Embedding.Concurrency < 1 {
		add("embedding.concurrency", "must be at least 1")
	}
	if cfg.Embedding.CacheSize < 0 {
		add("embedding.cache_size", "must be non-negative")
	}
	if cfg.Embedding.RatePerSec < 0 {
		add("embedding.rate_per_sec", "must be non-negative")
	}

	switch cfg.LLM.Provider {
	case llm.ProviderOllama, llm.ProviderOpenAI:
	default:
		add("llm.provider", "invalid provider '%s'; valid values are: ollama, openai", cfg.LLM.Provider)
	}

	if _, err := rerank.ParseMode(cfg.Rescore.Mode); err != nil {
		add("rescore.mode", "%v", err)
	}
	if cfg.Rescore.BatchSize < 1 {
		add("rescore.batch_size", "must be at least 1")
	}
	if cfg.Rescore.Concurrency < 1 {
		add("rescore.concurrency", "must be at least 1")
	}
	if cfg.Rescore.Temperature < 0 || cfg.Rescore.Temperature > 2 {
		add("rescore.temperature", "must be between 0 and 2")
	}
	if cfg.Rescore.Timeout < 0 {
		add("rescore.timeout", "must be non-negative")
	}

	if cfg.Resilience.RetryMaxAttempts < 1 {
		add("resilience.retry_max_attempts", "must be at least 1")
	}
	if cfg.Resilience.BreakerFailureRatio < 0 || cfg.Resilience.BreakerFailureRatio > 1 {
		add("resilience.breaker_failure_ratio", "must be between 0 and 1")
	}

	switch cfg.Store.Driver {
	case StoreSQLite:
	case StorePostgres:
		if cfg.Store.PostgresDSN == "" {
			add("store.postgres_dsn", "must be set when driver is postgres")
		}
	default:
		add("store.driver", "invalid driver '%s'; valid values are: sqlite, postgres", cfg.Store.Driver)
	}

	if len(cfg.Index.IncludePatterns) == 0 {
		add("index.include_patterns", "must specify at least one include pattern")
	}
	if cfg.Index.MaxFileSize <= 0 {
		add("index.max_file_size", "must be positive")
	}

	if cfg.Server.Host == "" {
		add("server.host", "must not be empty")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535")
	}

	if !validLogLevels[cfg.Logging.Level] {
		add("logging.level", "invalid log level '%s'; valid values are: debug, info, warn, error", cfg.Logging.Level)
	}
	if !validLogFormats[cfg.Logging.Format] {
		add("logging.format", "invalid log format '%s'; valid values are: text, json", cfg.Logging.Format)
	}

	return errors
}

// ValidateOrError is a convenience function that returns an error if validation fails
func ValidateOrError(cfg *Config) error {
	errors := Validate(cfg)
	if errors.HasErrors() {
		return errors
	}
	return nil
}
