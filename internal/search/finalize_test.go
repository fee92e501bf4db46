package search

import (
	"testing"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalIDs(results []models.FinalResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ChunkID
	}
	return out
}

func combined(id, doc string, score float64) models.MergedRecord {
	r := record(id, doc, ptr(score), nil)
	r.CombinedScore = ptr(score)
	return r
}

// ============================================================================
// Configuration Tests
// ============================================================================

func TestDefaultFinalizeConfig(t *testing.T) {
	cfg := DefaultFinalizeConfig()

	assert.Equal(t, 0.3, cfg.MinScoreThreshold)
	assert.Equal(t, 10, cfg.TopK)
	assert.Equal(t, 0, cfg.MaxChunksPerDocument)
	assert.False(t, cfg.RemoveDuplicates)
	assert.Equal(t, 0.95, cfg.DuplicateSimilarityThreshold)
	assert.True(t, cfg.SortByScore)
	assert.True(t, cfg.IncludeMetadata)
	assert.NoError(t, cfg.Validate())
}

func TestFinalizeConfig_Validate(t *testing.T) {
	cfg := FinalizeConfig{MinScoreThreshold: 1.5, DuplicateSimilarityThreshold: -0.1, TopK: -1, MaxChunksPerDocument: -2}

	err := cfg.Validate()

	require.Error(t, err)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.ElementsMatch(t, []string{"threshold", "duplicateSimilarityThreshold", "topK", "maxChunksPerDocument"}, verrs.Fields())
}

// ============================================================================
// Finalize Tests
// ============================================================================

func TestFinalize_EndToEndExample(t *testing.T) {
	records := []models.MergedRecord{
		record("id1", "doc1", ptr(0.89), ptr(0.88)),
		record("id2", "doc1", nil, ptr(0.95)),
		record("id3", "doc2", ptr(0.82), nil),
	}

	reranked := NewWeightedSum(0.6, 0.4).Rerank(records)

	cfg := DefaultFinalizeConfig()
	cfg.MinScoreThreshold = 0.4
	cfg.TopK = 10
	cfg.MaxChunksPerDocument = 1
	results := NewFinalizer(cfg, nil).Finalize(reranked)

	require.Equal(t, []string{"id1", "id3"}, finalIDs(results))
	assert.InDelta(t, 0.886, results[0].Combined(), 1e-3)
	assert.InDelta(t, 0.492, results[1].Combined(), 1e-3)
	assert.Equal(t, models.SourceBoth, results[0].Source)
	assert.Equal(t, models.SourceSemantic, results[1].Source)
}

func TestFinalize_SortsByCombinedScore(t *testing.T) {
	records := []models.MergedRecord{
		combined("b", "d1", 0.5),
		combined("a", "d2", 0.9),
		combined("d", "d3", 0.5),
		combined("c", "d4", 0.7),
	}

	results := NewFinalizer(DefaultFinalizeConfig(), nil).Finalize(records)

	assert.Equal(t, []string{"a", "c", "b", "d"}, finalIDs(results))
	assert.Equal(t, "b", records[0].ChunkID, "input must not be reordered")
}

func TestFinalize_SortDisabledKeepsOrder(t *testing.T) {
	records := []models.MergedRecord{combined("b", "d1", 0.5), combined("a", "d2", 0.9)}

	cfg := DefaultFinalizeConfig()
	cfg.SortByScore = false

	assert.Equal(t, []string{"b", "a"}, finalIDs(NewFinalizer(cfg, nil).Finalize(records)))
}

func TestFinalize_ThresholdDisabled(t *testing.T) {
	records := []models.MergedRecord{combined("a", "d1", 0.01), combined("b", "d1", 0.0)}

	cfg := DefaultFinalizeConfig()
	cfg.MinScoreThreshold = 0

	assert.Len(t, NewFinalizer(cfg, nil).Finalize(records), 2)
}

func TestFinalize_DiversificationCap(t *testing.T) {
	records := []models.MergedRecord{
		combined("a1", "docA", 0.95),
		combined("a2", "docA", 0.97),
		combined("b1", "docB", 0.60),
		combined("a3", "docA", 0.50),
		combined("b2", "docB", 0.80),
		combined("c1", "docC", 0.40),
	}

	results := FinalizeWithDiversification(records, 10, 1)

	best := map[string]string{}
	bestScore := map[string]float64{}
	for _, r := range records {
		if r.Combined() > bestScore[r.DocumentID] {
			bestScore[r.DocumentID] = r.Combined()
			best[r.DocumentID] = r.ChunkID
		}
	}

	perDoc := map[string]int{}
	for _, r := range results {
		perDoc[r.DocumentID]++
		assert.Equal(t, best[r.DocumentID], r.ChunkID)
	}
	for doc, n := range perDoc {
		assert.Equal(t, 1, n, doc)
	}
	assert.Equal(t, []string{"a2", "b2", "c1"}, finalIDs(results))
}

func TestFinalize_Deduplication(t *testing.T) {
	records := []models.MergedRecord{
		combined("a", "d1", 0.9),
		combined("b", "d2", 0.8),
		combined("c", "d3", 0.7),
	}
	records[1].Text = records[0].Text

	results := FinalizeWithDeduplication(records, 10)

	assert.Equal(t, []string{"a", "c"}, finalIDs(results))
}

func TestFinalize_TopK(t *testing.T) {
	records := []models.MergedRecord{
		combined("a", "d1", 0.9),
		combined("b", "d2", 0.8),
		combined("c", "d3", 0.7),
	}

	assert.Equal(t, []string{"a", "b"}, finalIDs(FinalizeWithThreshold(records, 0.3, 2)))
	assert.Equal(t, []string{"a"}, finalIDs(FinalizeWithThreshold(records, 0.85, 10)))
}

func TestFinalize_Annotations(t *testing.T) {
	records := []models.MergedRecord{
		combined("a", "d1", 0.9),
		combined("b", "d2", 0.8),
		combined("c", "d3", 0.7),
		combined("d", "d4", 0.6),
	}

	results := NewFinalizer(DefaultFinalizeConfig(), nil).Finalize(records)

	require.Len(t, results, 4)
	wantPercentiles := []float64{100, 75, 50, 25}
	for i, r := range results {
		assert.Equal(t, i+1, r.RelevanceRank)
		assert.InDelta(t, wantPercentiles[i], r.RelevancePercentile, 1e-9)
		assert.Equal(t, models.SourceSemantic, r.Source)
	}
}

func TestFinalize_WithoutMetadata(t *testing.T) {
	cfg := DefaultFinalizeConfig()
	cfg.IncludeMetadata = false

	results := NewFinalizer(cfg, nil).Finalize([]models.MergedRecord{combined("a", "d1", 0.9)})

	require.Len(t, results, 1)
	assert.Zero(t, results[0].RelevanceRank)
	assert.Zero(t, results[0].RelevancePercentile)
	assert.Equal(t, models.SourceSemantic, results[0].Source)
}

func TestFinalize_Empty(t *testing.T) {
	results := NewFinalizer(DefaultFinalizeConfig(), nil).Finalize(nil)

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFinalize_StepOrder(t *testing.T) {
	// Dedup runs before the cap: the duplicate of a must not use up d1's slot.
	records := []models.MergedRecord{
		combined("a", "d1", 0.9),
		combined("a-copy", "d1", 0.85),
		combined("b", "d1", 0.8),
	}
	records[1].Text = records[0].Text

	cfg := DefaultFinalizeConfig()
	cfg.RemoveDuplicates = true
	cfg.MaxChunksPerDocument = 2

	assert.Equal(t, []string{"a", "b"}, finalIDs(NewFinalizer(cfg, nil).Finalize(records)))
}
