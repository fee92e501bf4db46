package search

import (
	"sort"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// DefaultRRFK is the standard RRF constant (k=60 is commonly used)
const DefaultRRFK = 60

// RRF implements Reciprocal Rank Fusion. The formula is:
// RRF(d) = sum(1 / (k + rank(d)))
// where rank is 1-based within each source and a source the record is
// missing from contributes nothing. Only the relative order of the scores
// matters, so the two score scales never need to agree.
type RRF struct {
	K int
}

// NewRRF creates an RRF strategy; k <= 0 falls back to DefaultRRFK.
func NewRRF(k int) RRF {
	if k <= 0 {
		k = DefaultRRFK
	}
	return RRF{K: k}
}

func (r RRF) Name() StrategyKind { return StrategyRRF }

func (r RRF) Rerank(records []models.MergedRecord) []models.MergedRecord {
	out := cloneRecords(records)

	semanticRanks := rankBy(out, func(rec models.MergedRecord) *float64 { return rec.SemanticScore })
	keywordRanks := rankBy(out, func(rec models.MergedRecord) *float64 { return rec.KeywordScore })

	for i := range out {
		var score float64
		if rank, ok := semanticRanks[i]; ok {
			score += 1.0 / float64(r.K+rank)
		}
		if rank, ok := keywordRanks[i]; ok {
			score += 1.0 / float64(r.K+rank)
		}
		out[i].CombinedScore = models.Float(score)
	}

	sortByCombined(out)
	return out
}

// rankBy assigns 1-based ranks, keyed by slice position, to the records that
// have a score for one source. Ties are ranked by chunk id.
func rankBy(records []models.MergedRecord, score func(models.MergedRecord) *float64) map[int]int {
	positions := make([]int, 0, len(records))
	for i, rec := range records {
		if score(rec) != nil {
			positions = append(positions, i)
		}
	}

	sort.SliceStable(positions, func(a, b int) bool {
		sa, sb := *score(records[positions[a]]), *score(records[positions[b]])
		if sa != sb {
			return sa > sb
		}
		return records[positions[a]].ChunkID < records[positions[b]].ChunkID
	})

	ranks := make(map[int]int, len(positions))
	for rank, pos := range positions {
		ranks[pos] = rank + 1
	}
	return ranks
}
