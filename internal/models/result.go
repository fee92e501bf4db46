package models

import "time"

// Source tells which ranked lists a result was found in.
type Source string

const (
	SourceSemantic Source = "SEMANTIC"
	SourceKeyword  Source = "KEYWORD"
	SourceBoth     Source = "BOTH"
	SourceUnknown  Source = "UNKNOWN"
)

// ChunkHit is one scored passage from one ranking source. Score is local to
// the source and not comparable across sources.
type ChunkHit struct {
	ChunkID      string         `json:"chunkId"`
	DocumentID   string         `json:"documentId"`
	DocumentName string         `json:"documentName"`
	ChunkIndex   int            `json:"chunkIndex"`
	Text         string         `json:"text"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	Score        float64        `json:"score"`
}

// MergedRecord is one chunk carrying up to two source scores. A nil score
// means the chunk was absent from that source or the stage has not run.
type MergedRecord struct {
	ChunkID      string         `json:"chunkId"`
	DocumentID   string         `json:"documentId"`
	DocumentName string         `json:"documentName"`
	ChunkIndex   int            `json:"chunkIndex"`
	Text         string         `json:"text"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`

	SemanticScore *float64 `json:"semanticScore"`
	KeywordScore  *float64 `json:"keywordScore"`
	CombinedScore *float64 `json:"combinedScore"`
	LLMScore      *float64 `json:"llmScore"`
}

// NewMergedRecord copies the chunk fields of a hit. No score is set.
func NewMergedRecord(hit ChunkHit) MergedRecord {
	return MergedRecord{
		ChunkID:      hit.ChunkID,
		DocumentID:   hit.DocumentID,
		DocumentName: hit.DocumentName,
		ChunkIndex:   hit.ChunkIndex,
		Text:         hit.Text,
		Metadata:     hit.Metadata,
		CreatedAt:    hit.CreatedAt,
	}
}

// Combined returns the combined score, 0 when unset.
func (r MergedRecord) Combined() float64 {
	return Value(r.CombinedScore)
}

// Semantic returns the semantic score, 0 when absent.
func (r MergedRecord) Semantic() float64 {
	return Value(r.SemanticScore)
}

// Keyword returns the keyword score, 0 when absent.
func (r MergedRecord) Keyword() float64 {
	return Value(r.KeywordScore)
}

// HasBothScores reports whether both rankers returned the chunk.
func (r MergedRecord) HasBothScores() bool {
	return r.SemanticScore != nil && r.KeywordScore != nil
}

// Source derives the result source from which scores are present.
func (r MergedRecord) Source() Source {
	switch {
	case r.SemanticScore != nil && r.KeywordScore != nil:
		return SourceBoth
	case r.SemanticScore != nil:
		return SourceSemantic
	case r.KeywordScore != nil:
		return SourceKeyword
	default:
		return SourceUnknown
	}
}

// FinalResult is a merged record annotated with its final position.
type FinalResult struct {
	MergedRecord

	RelevanceRank       int     `json:"relevanceRank,omitempty"`
	RelevancePercentile float64 `json:"relevancePercentile,omitempty"`
	Source              Source  `json:"source"`
}

// BestScore returns the larger of the two source scores.
func (f FinalResult) BestScore() float64 {
	return max(f.Semantic(), f.Keyword())
}

// Float returns a pointer to v, for filling nullable score fields.
func Float(v float64) *float64 {
	return &v
}

// Value dereferences a nullable score, treating nil as 0.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
