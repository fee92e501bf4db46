package search

import (
	"sort"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// NormalizeWeights scales the two weights so they sum to 1. A non-positive
// sum falls back to an even split.
func NormalizeWeights(semanticWeight, keywordWeight float64) (float64, float64) {
	total := semanticWeight + keywordWeight
	if total <= 0 {
		return 0.5, 0.5
	}
	return semanticWeight / total, keywordWeight / total
}

// Merge unions the semantic and keyword hits into one record per chunk and
// scores every record with the normalized weighted sum. Records are sorted by
// combined score descending, ties keeping first-seen order, and truncated to
// topK. A topK of zero or less keeps every record.
//
// A chunk found by only one source scores 0 for the other, so agreement
// between the sources ranks higher. Hits without a chunk id are skipped and a
// chunk repeated within one list keeps its first occurrence.
func Merge(semantic, keyword []models.ChunkHit, semanticWeight, keywordWeight float64, topK int) []models.MergedRecord {
	records := buildRecords(semantic, keyword)

	ws, wk := NormalizeWeights(semanticWeight, keywordWeight)
	for i := range records {
		score := ws*records[i].Semantic() + wk*records[i].Keyword()
		records[i].CombinedScore = models.Float(score)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Combined() > records[j].Combined()
	})

	if topK > 0 && len(records) > topK {
		records = records[:topK]
	}
	return records
}

// buildRecords performs the keyed union of both lists. Insertion order is
// semantic hits first, then keyword-only hits.
func buildRecords(semantic, keyword []models.ChunkHit) []models.MergedRecord {
	index := make(map[string]int, len(semantic)+len(keyword))
	records := make([]models.MergedRecord, 0, len(semantic)+len(keyword))

	for _, hit := range semantic {
		if hit.ChunkID == "" {
			continue
		}
		if _, exists := index[hit.ChunkID]; exists {
			continue
		}
		rec := models.NewMergedRecord(hit)
		rec.SemanticScore = models.Float(hit.Score)
		index[hit.ChunkID] = len(records)
		records = append(records, rec)
	}

	for _, hit := range keyword {
		if hit.ChunkID == "" {
			continue
		}
		if i, exists := index[hit.ChunkID]; exists {
			if records[i].KeywordScore == nil {
				records[i].KeywordScore = models.Float(hit.Score)
			}
			continue
		}
		rec := models.NewMergedRecord(hit)
		rec.KeywordScore = models.Float(hit.Score)
		index[hit.ChunkID] = len(records)
		records = append(records, rec)
	}

	return records
}

// FilterByScore keeps records whose combined score is at least minScore.
func FilterByScore(records []models.MergedRecord, minScore float64) []models.MergedRecord {
	filtered := make([]models.MergedRecord, 0, len(records))
	for _, r := range records {
		if r.Combined() >= minScore {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
