package search

import (
	"fmt"
	"sort"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// Strategy computes one combined score per record and returns the records
// sorted by it, highest first. Implementations never modify their input.
type Strategy interface {
	Name() StrategyKind
	Rerank(records []models.MergedRecord) []models.MergedRecord
}

// StrategyParams carries the tunables of all strategies; each strategy reads
// only the ones it needs.
type StrategyParams struct {
	SemanticWeight float64
	KeywordWeight  float64
	RRFK           int
}

// DefaultStrategyParams returns 0.6/0.4 weights and k=60.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		SemanticWeight: DefaultSemanticWeight,
		KeywordWeight:  DefaultKeywordWeight,
		RRFK:           DefaultRRFK,
	}
}

// NewStrategy maps a strategy kind to its implementation.
func NewStrategy(kind StrategyKind, params StrategyParams) (Strategy, error) {
	switch kind {
	case StrategyWeightedSum:
		return NewWeightedSum(params.SemanticWeight, params.KeywordWeight), nil
	case StrategyMaxScore:
		return MaxScore{}, nil
	case StrategyRRF:
		return NewRRF(params.RRFK), nil
	default:
		return nil, fmt.Errorf("unknown rerank strategy %q", kind)
	}
}

// WeightedSum scores semanticWeight×semantic + keywordWeight×keyword with the
// weights normalized to sum to 1. Missing scores count as 0.
type WeightedSum struct {
	semanticWeight float64
	keywordWeight  float64
}

// NewWeightedSum creates a WeightedSum strategy.
func NewWeightedSum(semanticWeight, keywordWeight float64) WeightedSum {
	ws, wk := NormalizeWeights(semanticWeight, keywordWeight)
	return WeightedSum{semanticWeight: ws, keywordWeight: wk}
}

// Weights returns the normalized weights.
func (s WeightedSum) Weights() (float64, float64) {
	return s.semanticWeight, s.keywordWeight
}

func (s WeightedSum) Name() StrategyKind { return StrategyWeightedSum }

func (s WeightedSum) Rerank(records []models.MergedRecord) []models.MergedRecord {
	out := cloneRecords(records)
	for i := range out {
		score := s.semanticWeight*out[i].Semantic() + s.keywordWeight*out[i].Keyword()
		out[i].CombinedScore = models.Float(score)
	}
	sortByCombined(out)
	return out
}

// MaxScore takes the better of the two source scores.
type MaxScore struct{}

func (MaxScore) Name() StrategyKind { return StrategyMaxScore }

func (MaxScore) Rerank(records []models.MergedRecord) []models.MergedRecord {
	out := cloneRecords(records)
	for i := range out {
		out[i].CombinedScore = models.Float(max(out[i].Semantic(), out[i].Keyword()))
	}
	sortByCombined(out)
	return out
}

// cloneRecords returns a shallow copy of the slice. Score pointers are only
// ever replaced, never written through, so sharing them is safe.
func cloneRecords(records []models.MergedRecord) []models.MergedRecord {
	out := make([]models.MergedRecord, len(records))
	copy(out, records)
	return out
}

// sortByCombined orders records by combined score descending, then by chunk
// id so identical input always yields identical output.
func sortByCombined(records []models.MergedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		si, sj := records[i].Combined(), records[j].Combined()
		if si != sj {
			return si > sj
		}
		return records[i].ChunkID < records[j].ChunkID
	})
}
