package config

import (
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/chunker"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/rerank"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/resilience"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

const (
	DefaultOllamaURL = "http://localhost:11434"
	DefaultPort      = 8420
)

// Default returns a Config with sensible default values
func Default() *Config {
	rescore := rerank.DefaultConfig()

	return &Config{
		Version: 1,
		Search: SearchConfig{
			TopK:                         search.DefaultTopK,
			MinScoreThreshold:            search.DefaultMinScoreThreshold,
			SemanticWeight:               search.DefaultSemanticWeight,
			KeywordWeight:                search.DefaultKeywordWeight,
			MaxChunksPerDocument:         search.DefaultMaxChunksPerDocument,
			RemoveDuplicates:             false,
			DuplicateSimilarityThreshold: search.DefaultDuplicateSimilarityThreshold,
			RerankStrategy:               string(search.StrategyWeightedSum),
			RRFK:                         search.DefaultRRFK,
			IncludeMetadata:              true,
			CandidateMultiplier:          search.DefaultCandidateMultiplier,
			RelevanceFilter:              string(search.FilterNoop),
			RelevanceThreshold:           search.DefaultRelevanceThreshold,
			Rescore:                      false,
		},
		Chunking: ChunkingConfig{
			ChunkSize: chunker.DefaultChunkSize,
			Overlap:   chunker.DefaultOverlap,
		},
		Embedding: EmbeddingConfig{
			Provider:    "ollama",
			Model:       "nomic-embed-text",
			BatchSize:   32,
			Concurrency: 4,
			CacheSize:   1000,
			Timeout:     30 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			Timeout:  120 * time.Second,
		},
		Rescore: RescoreConfig{
			Mode:        string(rescore.Mode),
			BatchSize:   rescore.BatchSize,
			Concurrency: rescore.Concurrency,
			Temperature: rescore.Temperature,
			MaxTokens:   rescore.MaxTokens,
			Synthetic:   rescore.Synthetic,
		},
		Resilience: resilience.DefaultConfig(),
		Store: StoreConfig{
			Driver: StoreSQLite,
		},
		Index: IndexConfig{
			IncludePatterns: []string{
				"**/*.md",
				"**/*.txt",
			},
			ExcludePatterns: []string{
				"**/node_modules/**",
				"**/.git/**",
			},
			MaxFileSize: 1048576, // 1MB
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
