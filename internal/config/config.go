// Package config provides configuration loading, validation and conversion
// into the settings of each component.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/chunker"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/embedder"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/llm"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/rerank"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/resilience"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// Config represents the complete ragcore configuration
type Config struct {
	Version    int               `yaml:"version" json:"version" mapstructure:"version"`
	Search     SearchConfig      `yaml:"search" json:"search" mapstructure:"search"`
	Chunking   ChunkingConfig    `yaml:"chunking" json:"chunking" mapstructure:"chunking"`
	Embedding  EmbeddingConfig   `yaml:"embedding" json:"embedding" mapstructure:"embedding"`
	LLM        LLMConfig         `yaml:"llm" json:"llm" mapstructure:"llm"`
	Rescore    RescoreConfig     `yaml:"rescore" json:"rescore" mapstructure:"rescore"`
	Resilience resilience.Config `yaml:"resilience" json:"resilience" mapstructure:"resilience"`
	Store      StoreConfig       `yaml:"store" json:"store" mapstructure:"store"`
	Index      IndexConfig       `yaml:"index" json:"index" mapstructure:"index"`
	Server     ServerConfig      `yaml:"server" json:"server" mapstructure:"server"`
	Logging    LoggingConfig     `yaml:"logging" json:"logging" mapstructure:"logging"`
}

// SearchConfig holds the default pipeline parameters; requests may
// override them per call.
type SearchConfig struct {
	TopK                         int     `yaml:"top_k" json:"top_k" mapstructure:"top_k"`
	MinScoreThreshold            float64 `yaml:"min_score_threshold" json:"min_score_threshold" mapstructure:"min_score_threshold"`
	SemanticWeight               float64 `yaml:"semantic_weight" json:"semantic_weight" mapstructure:"semantic_weight"`
	KeywordWeight                float64 `yaml:"keyword_weight" json:"keyword_weight" mapstructure:"keyword_weight"`
	MaxChunksPerDocument         int     `yaml:"max_chunks_per_document" json:"max_chunks_per_document" mapstructure:"max_chunks_per_document"`
	RemoveDuplicates             bool    `yaml:"remove_duplicates" json:"remove_duplicates" mapstructure:"remove_duplicates"`
	DuplicateSimilarityThreshold float64 `yaml:"duplicate_similarity_threshold" json:"duplicate_similarity_threshold" mapstructure:"duplicate_similarity_threshold"`
	RerankStrategy               string  `yaml:"rerank_strategy" json:"rerank_strategy" mapstructure:"rerank_strategy"`
	RRFK                         int     `yaml:"rrf_k" json:"rrf_k" mapstructure:"rrf_k"`
	IncludeMetadata              bool    `yaml:"include_metadata" json:"include_metadata" mapstructure:"include_metadata"`
	CandidateMultiplier          int     `yaml:"candidate_multiplier" json:"candidate_multiplier" mapstructure:"candidate_multiplier"`
	SemanticThreshold            float64 `yaml:"semantic_threshold" json:"semantic_threshold" mapstructure:"semantic_threshold"`
	RelevanceFilter              string  `yaml:"relevance_filter" json:"relevance_filter" mapstructure:"relevance_filter"`
	RelevanceThreshold           float64 `yaml:"relevance_threshold" json:"relevance_threshold" mapstructure:"relevance_threshold"`
	Rescore                      bool    `yaml:"rescore" json:"rescore" mapstructure:"rescore"`
}

// ChunkingConfig controls ingestion chunking. Lengths are in characters.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size" json:"chunk_size" mapstructure:"chunk_size"`
	Overlap   int `yaml:"overlap" json:"overlap" mapstructure:"overlap"`
}

// EmbeddingConfig contains embedding model settings
type EmbeddingConfig struct {
	Provider string `yaml:"provider" json:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" json:"model" mapstructure:"model"`
	// Dimensions overrides the size looked up from the model name.
	Dimensions  int           `yaml:"dimensions" json:"dimensions,omitempty" mapstructure:"dimensions"`
	BatchSize   int           `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	Concurrency int           `yaml:"concurrency" json:"concurrency" mapstructure:"concurrency"`
	CacheSize   int           `yaml:"cache_size" json:"cache_size" mapstructure:"cache_size"`
	RatePerSec  float64       `yaml:"rate_per_sec" json:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst   int           `yaml:"rate_burst" json:"rate_burst" mapstructure:"rate_burst"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	Ollama OllamaProviderConfig `yaml:"ollama" json:"ollama" mapstructure:"ollama"`
	OpenAI OpenAIProviderConfig `yaml:"openai" json:"openai" mapstructure:"openai"`
}

// OllamaProviderConfig contains Ollama connection settings
type OllamaProviderConfig struct {
	URL string `yaml:"url" json:"url" mapstructure:"url"`
}

// OpenAIProviderConfig contains OpenAI-compatible API settings
type OpenAIProviderConfig struct {
	APIKey  string `yaml:"api_key" json:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" json:"base_url,omitempty" mapstructure:"base_url"`
}

// LLMConfig selects the chat model used for rescoring.
type LLMConfig struct {
	Provider string               `yaml:"provider" json:"provider" mapstructure:"provider"`
	Model    string               `yaml:"model" json:"model" mapstructure:"model"`
	Timeout  time.Duration        `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	Ollama   OllamaProviderConfig `yaml:"ollama" json:"ollama" mapstructure:"ollama"`
	OpenAI   OpenAIProviderConfig `yaml:"openai" json:"openai" mapstructure:"openai"`
}

// RescoreConfig controls LLM rescoring and its synthetic fallback.
type RescoreConfig struct {
	Mode        string                 `yaml:"mode" json:"mode" mapstructure:"mode"`
	BatchSize   int                    `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	Concurrency int                    `yaml:"concurrency" json:"concurrency" mapstructure:"concurrency"`
	Temperature float64                `yaml:"temperature" json:"temperature" mapstructure:"temperature"`
	MaxTokens   int                    `yaml:"max_tokens" json:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration          `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	Synthetic   rerank.SyntheticConfig `yaml:"synthetic" json:"synthetic" mapstructure:"synthetic"`
}

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// StoreConfig selects where documents and vectors are kept.
type StoreConfig struct {
	Driver      string `yaml:"driver" json:"driver" mapstructure:"driver"`
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn,omitempty" mapstructure:"postgres_dsn"`
}

// IndexConfig controls which files `index` ingests from a directory.
type IndexConfig struct {
	IncludePatterns []string `yaml:"include_patterns" json:"include_patterns" mapstructure:"include_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns" json:"exclude_patterns" mapstructure:"exclude_patterns"`
	MaxFileSize     int64    `yaml:"max_file_size" json:"max_file_size" mapstructure:"max_file_size"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" json:"host" mapstructure:"host"`
	Port            int           `yaml:"port" json:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LoggingConfig selects log level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// Address returns the host:port the server listens on.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SearchDefaults converts the search section into pipeline parameters.
func (c *Config) SearchDefaults() (search.Config, error) {
	strategy, err := search.ParseStrategy(c.Search.RerankStrategy)
	if err != nil {
		return search.Config{}, err
	}
	filter, err := search.ParseFilterKind(c.Search.RelevanceFilter)
	if err != nil {
		return search.Config{}, err
	}
	s := c.Search
	return search.Config{
		TopK:                         s.TopK,
		MinScoreThreshold:            s.MinScoreThreshold,
		SemanticWeight:               s.SemanticWeight,
		KeywordWeight:                s.KeywordWeight,
		MaxChunksPerDocument:         s.MaxChunksPerDocument,
		RemoveDuplicates:             s.RemoveDuplicates,
		DuplicateSimilarityThreshold: s.DuplicateSimilarityThreshold,
		RerankStrategy:               strategy,
		RRFK:                         s.RRFK,
		IncludeMetadata:              s.IncludeMetadata,
		CandidateMultiplier:          s.CandidateMultiplier,
		SemanticThreshold:            s.SemanticThreshold,
		RelevanceFilter:              filter,
		RelevanceThreshold:           s.RelevanceThreshold,
		Rescore:                      s.Rescore,
	}, nil
}

// ChunkerConfig returns the chunker settings.
func (c *Config) ChunkerConfig() chunker.Config {
	return chunker.Config{
		ChunkSize: c.Chunking.ChunkSize,
		Overlap:   c.Chunking.Overlap,
	}
}

// EmbedderConfig returns the embedding provider settings with API keys and
// URLs resolved from the environment when not configured.
func (c *Config) EmbedderConfig() embedder.ProviderConfig {
	e := c.Embedding
	return embedder.ProviderConfig{
		Provider:   e.Provider,
		Model:      e.Model,
		Dimensions: e.Dimensions,
		Timeout:    e.Timeout,
		OllamaURL:  e.Ollama.ResolvedURL(),
		OpenAIKey:  e.OpenAI.ResolvedAPIKey(),
		OpenAIURL:  e.OpenAI.BaseURL,
		CacheSize:  e.CacheSize,
		RatePerSec: e.RatePerSec,
		RateBurst:  e.RateBurst,
	}
}

// Dimensions returns the embedding vector size for the configured model.
func (c *Config) Dimensions() int {
	return embedder.DimensionsFor(c.Embedding.Model, c.Embedding.Dimensions)
}

// LLMClientConfig returns the chat model settings.
func (c *Config) LLMClientConfig() llm.Config {
	l := c.LLM
	return llm.Config{
		Provider: l.Provider,
		Ollama: llm.OllamaConfig{
			BaseURL: l.Ollama.ResolvedURL(),
			Model:   l.Model,
			Timeout: l.Timeout,
		},
		OpenAI: llm.OpenAIConfig{
			APIKey:  l.OpenAI.ResolvedAPIKey(),
			BaseURL: l.OpenAI.BaseURL,
			Model:   l.Model,
		},
	}
}

// RerankConfig returns the rescorer settings.
func (c *Config) RerankConfig() (rerank.Config, error) {
	mode, err := rerank.ParseMode(c.Rescore.Mode)
	if err != nil {
		return rerank.Config{}, err
	}
	r := c.Rescore
	return rerank.Config{
		Mode:        mode,
		BatchSize:   r.BatchSize,
		Concurrency: r.Concurrency,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
		Timeout:     r.Timeout,
		Synthetic:   r.Synthetic,
	}, nil
}

// ResolvedURL returns the configured URL, then OLLAMA_HOST, then the local
// default.
func (o OllamaProviderConfig) ResolvedURL() string {
	if o.URL != "" {
		return o.URL
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		return host
	}
	return DefaultOllamaURL
}

// ResolvedAPIKey returns the configured key or OPENAI_API_KEY.
func (o OpenAIProviderConfig) ResolvedAPIKey() string {
	if o.APIKey != "" {
		return o.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}
