package search

import (
	"testing"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withText(id, doc, text string) models.MergedRecord {
	r := record(id, doc, ptr(0.5), nil)
	r.Text = text
	return r
}

// ============================================================================
// Jaccard Similarity Tests
// ============================================================================

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the quick fox", "the quick fox", 1},
		{"case insensitive", "The Quick Fox", "the quick fox", 1},
		{"disjoint", "alpha beta", "gamma delta", 0},
		{"half overlap", "alpha beta", "beta gamma", 1.0 / 3.0},
		{"repeated words count once", "alpha alpha beta", "alpha beta", 1},
		{"both empty", "   ", "\t", 0},
		{"one empty", "alpha", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, JaccardSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestJaccardSimilarity_EqualEmptyStrings(t *testing.T) {
	assert.Equal(t, 1.0, JaccardSimilarity("", ""))
}

// ============================================================================
// Deduplicate Tests
// ============================================================================

func TestDeduplicate_ExactMatch(t *testing.T) {
	records := []models.MergedRecord{
		withText("a", "d1", "caching strategies"),
		withText("b", "d2", "  caching strategies \n"),
		withText("c", "d3", "something else"),
	}

	out := Deduplicate(records, 1)

	assert.Equal(t, []string{"a", "c"}, ids(out))
}

func TestDeduplicate_NearDuplicates(t *testing.T) {
	records := []models.MergedRecord{
		withText("a", "d1", "one two three four five six seven eight nine ten"),
		withText("b", "d2", "one two three four five six seven eight nine eleven"),
		withText("c", "d3", "completely different passage about databases"),
	}

	// a vs b: 9 shared of 11 total = 0.818
	assert.Equal(t, []string{"a", "c"}, ids(Deduplicate(records, 0.8)))
	assert.Equal(t, []string{"a", "b", "c"}, ids(Deduplicate(records, 0.95)))
}

func TestDeduplicate_FirstOccurrenceWins(t *testing.T) {
	records := []models.MergedRecord{
		withText("low", "d1", "same text"),
		withText("high", "d2", "same text"),
	}

	out := Deduplicate(records, 0.95)

	require.Len(t, out, 1)
	assert.Equal(t, "low", out[0].ChunkID)
}

func TestDeduplicate_Empty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil, 0.95))
}

// ============================================================================
// Per-Document Cap Tests
// ============================================================================

func TestCapPerDocument(t *testing.T) {
	records := []models.MergedRecord{
		withText("a", "d1", "1"),
		withText("b", "d1", "2"),
		withText("c", "d2", "3"),
		withText("d", "d1", "4"),
		withText("e", "d2", "5"),
	}

	assert.Equal(t, []string{"a", "c"}, ids(CapPerDocument(records, 1)))
	assert.Equal(t, []string{"a", "b", "c", "e"}, ids(CapPerDocument(records, 2)))
	assert.Len(t, CapPerDocument(records, 0), 5)
	assert.Len(t, CapPerDocument(records, -1), 5)
}
