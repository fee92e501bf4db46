package api

import (
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// =============================================================================
// Search API Types
// =============================================================================

// SearchRequest is a query plus optional overrides of the configured search
// parameters. Nil and empty fields keep the server defaults.
type SearchRequest struct {
	Query string `json:"query"`

	TopK                 *int     `json:"topK,omitempty"`
	MinScoreThreshold    *float64 `json:"minScoreThreshold,omitempty"`
	SemanticWeight       *float64 `json:"semanticWeight,omitempty"`
	KeywordWeight        *float64 `json:"keywordWeight,omitempty"`
	MaxChunksPerDocument *int     `json:"maxChunksPerDocument,omitempty"`
	RemoveDuplicates     *bool    `json:"removeDuplicates,omitempty"`
	RerankStrategy       string   `json:"rerankStrategy,omitempty"`
	RRFK                 *int     `json:"rrfK,omitempty"`
	IncludeMetadata      *bool    `json:"includeMetadata,omitempty"`
	RelevanceFilter      string   `json:"relevanceFilter,omitempty"`
	RelevanceThreshold   *float64 `json:"relevanceThreshold,omitempty"`
	Rescore              *bool    `json:"rescore,omitempty"`
	DocumentID           string   `json:"documentId,omitempty"`
}

// Apply returns defaults with the request overrides applied. Unknown
// strategy or filter names are reported as validation errors.
func (r SearchRequest) Apply(defaults search.Config) (search.Config, error) {
	cfg := defaults
	setInt(&cfg.TopK, r.TopK)
	setFloat(&cfg.MinScoreThreshold, r.MinScoreThreshold)
	setFloat(&cfg.SemanticWeight, r.SemanticWeight)
	setFloat(&cfg.KeywordWeight, r.KeywordWeight)
	setInt(&cfg.MaxChunksPerDocument, r.MaxChunksPerDocument)
	setBool(&cfg.RemoveDuplicates, r.RemoveDuplicates)
	setInt(&cfg.RRFK, r.RRFK)
	setBool(&cfg.IncludeMetadata, r.IncludeMetadata)
	setFloat(&cfg.RelevanceThreshold, r.RelevanceThreshold)
	setBool(&cfg.Rescore, r.Rescore)
	if r.DocumentID != "" {
		cfg.DocumentID = r.DocumentID
	}

	var errs search.ValidationErrors
	if r.RerankStrategy != "" {
		strategy, err := search.ParseStrategy(r.RerankStrategy)
		if err != nil {
			errs = append(errs, search.ValidationError{Field: "rerankStrategy", Message: err.Error()})
		}
		cfg.RerankStrategy = strategy
	}
	if r.RelevanceFilter != "" {
		filter, err := search.ParseFilterKind(r.RelevanceFilter)
		if err != nil {
			errs = append(errs, search.ValidationError{Field: "relevanceFilter", Message: err.Error()})
		}
		cfg.RelevanceFilter = filter
	}
	if len(errs) > 0 {
		return cfg, errs
	}
	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// =============================================================================
// Chunk API Types
// =============================================================================

// ChunkRequest previews how text would be split at ingestion.
type ChunkRequest struct {
	Text      string `json:"text"`
	ChunkSize int    `json:"chunkSize,omitempty"`
	Overlap   *int   `json:"overlap,omitempty"`
}

// ChunkResponse lists the chunks in order.
type ChunkResponse struct {
	Chunks    []string `json:"chunks"`
	Count     int      `json:"count"`
	ChunkSize int      `json:"chunkSize"`
	Overlap   int      `json:"overlap"`
}

// =============================================================================
// Document API Types
// =============================================================================

// IngestRequest stores a document. A later request with the same source (or
// name) replaces it.
type IngestRequest struct {
	Name     string            `json:"name"`
	Source   string            `json:"source,omitempty"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DocumentListResponse lists the stored documents.
type DocumentListResponse struct {
	Documents []*models.Document `json:"documents"`
	Total     int                `json:"total"`
}
