package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// ErrProviderUnavailable is matched by every SourceError, whatever the
// underlying cause.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Ranking sources, as reported in SourceError.
const (
	SourceSemantic = "semantic"
	SourceKeyword  = "keyword"
)

// SourceError records a ranking source that could not be queried.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s search unavailable: %v", e.Source, e.Err)
}

// Unwrap exposes both ErrProviderUnavailable and the cause to errors.Is/As.
func (e *SourceError) Unwrap() []error {
	return []error{ErrProviderUnavailable, e.Err}
}

func (e *SourceError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source string `json:"source"`
		Error  string `json:"error"`
	}{Source: e.Source, Error: e.Err.Error()})
}

// Status summarises how a search went.
type Status string

const (
	// StatusOK means both sources answered and something matched.
	StatusOK Status = "ok"
	// StatusDegraded means one source failed and the other one was used.
	StatusDegraded Status = "degraded"
	// StatusEmpty means the query was blank or nothing survived the stages.
	StatusEmpty Status = "empty"
	// StatusUnavailable means every source failed.
	StatusUnavailable Status = "unavailable"
)

// VectorQuery narrows a vector search.
type VectorQuery struct {
	TopK int
	// Threshold is a minimum similarity; zero disables it.
	Threshold  float64
	DocumentID string
}

// TextQuery narrows a full-text search.
type TextQuery struct {
	TopK       int
	DocumentID string
}

// VectorStore returns the chunks most similar to an embedding, best first.
// Scores are similarities where higher is better.
type VectorStore interface {
	SearchVectors(ctx context.Context, vec []float32, opts VectorQuery) ([]models.ChunkHit, error)
}

// TextIndex returns the chunks matching a keyword query, best first. Scores
// are relevance values where higher is better.
type TextIndex interface {
	SearchText(ctx context.Context, q KeywordQuery, opts TextQuery) ([]models.ChunkHit, error)
}

// QueryEmbedder turns the query text into an embedding.
type QueryEmbedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// Rescorer assigns LLM relevance scores and reorders records by them. It
// only returns an error when ctx is done.
type Rescorer interface {
	Rescore(ctx context.Context, query string, records []models.MergedRecord) ([]models.MergedRecord, error)
}

// Observer receives pipeline measurements.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveSearch(status string, results int)
}

// Pipeline stage names, used in Response.TimingsMs and metrics.
const (
	StageSemantic = "semantic"
	StageKeyword  = "keyword"
	StageMerge    = "merge"
	StageRerank   = "rerank"
	StageRescore  = "rescore"
	StageFilter   = "filter"
	StageFinalize = "finalize"
)

// Response is the outcome of one Pipeline.Search call.
type Response struct {
	Query        string               `json:"query"`
	Status       Status               `json:"status"`
	Results      []models.FinalResult `json:"results"`
	TotalResults int                  `json:"totalResults"`
	Failures     []*SourceError       `json:"failures,omitempty"`
	Strategy     StrategyKind         `json:"strategy"`
	Filter       string               `json:"filter"`
	Rescored     bool                 `json:"rescored"`
	// TimingsMs holds the wall time of each stage that ran.
	TimingsMs    map[string]float64 `json:"timingsMs"`
	SearchTimeMs int64              `json:"searchTimeMs"`
}

// Degraded reports whether at least one source failed.
func (r *Response) Degraded() bool {
	return len(r.Failures) > 0
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
