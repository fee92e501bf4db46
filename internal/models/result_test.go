package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MergedRecord Tests
// =============================================================================

func TestMergedRecord_Source(t *testing.T) {
	tests := []struct {
		name     string
		semantic *float64
		keyword  *float64
		expected Source
	}{
		{"both scores", Float(0.8), Float(0.4), SourceBoth},
		{"semantic only", Float(0.8), nil, SourceSemantic},
		{"keyword only", nil, Float(0.4), SourceKeyword},
		{"zero scores still count as present", Float(0), Float(0), SourceBoth},
		{"neither", nil, nil, SourceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MergedRecord{SemanticScore: tt.semantic, KeywordScore: tt.keyword}
			assert.Equal(t, tt.expected, r.Source())
		})
	}
}

func TestMergedRecord_ScoreAccessors(t *testing.T) {
	r := MergedRecord{SemanticScore: Float(0.7)}

	assert.InDelta(t, 0.7, r.Semantic(), 1e-9)
	assert.Zero(t, r.Keyword())
	assert.Zero(t, r.Combined())
	assert.False(t, r.HasBothScores())
}

func TestNewMergedRecord(t *testing.T) {
	hit := ChunkHit{ChunkID: "c1", DocumentID: "d1", DocumentName: "doc", ChunkIndex: 2, Text: "t", Score: 0.9}

	r := NewMergedRecord(hit)

	assert.Equal(t, "c1", r.ChunkID)
	assert.Equal(t, "d1", r.DocumentID)
	assert.Equal(t, 2, r.ChunkIndex)
	assert.Nil(t, r.SemanticScore)
	assert.Nil(t, r.KeywordScore)
	assert.Nil(t, r.CombinedScore)
	assert.Nil(t, r.LLMScore)
}

func TestFinalResult_JSONKeepsNullScores(t *testing.T) {
	res := FinalResult{
		MergedRecord:  MergedRecord{ChunkID: "c1", KeywordScore: Float(0.5), CombinedScore: Float(0.2)},
		RelevanceRank: 1,
		Source:        SourceKeyword,
	}

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, decoded, "semanticScore")
	assert.Nil(t, decoded["semanticScore"])
	assert.InDelta(t, 0.5, decoded["keywordScore"], 1e-9)
	assert.Equal(t, "KEYWORD", decoded["source"])
	assert.EqualValues(t, 1, decoded["relevanceRank"])
}

func TestFinalResult_BestScore(t *testing.T) {
	res := FinalResult{MergedRecord: MergedRecord{SemanticScore: Float(0.3), KeywordScore: Float(0.9)}}
	assert.InDelta(t, 0.9, res.BestScore(), 1e-9)
}
