package search

import (
	"strings"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// JaccardSimilarity compares the lowercased whitespace-separated word sets of
// two texts: |A ∩ B| / |A ∪ B|. Identical texts score 1, two empty word sets
// score 0.
func JaccardSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return jaccard(wordSet(a), wordSet(b))
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for w := range small {
		if _, ok := large[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Deduplicate drops records whose trimmed text equals an earlier kept
// record's text. When threshold is below 1 it also drops records whose
// Jaccard similarity to any kept record reaches the threshold. Input order
// decides which copy survives, so callers sort first.
func Deduplicate(records []models.MergedRecord, threshold float64) []models.MergedRecord {
	type kept struct {
		text  string
		words map[string]struct{}
	}

	seen := make(map[string]struct{}, len(records))
	var keptTexts []kept
	out := make([]models.MergedRecord, 0, len(records))

	for _, r := range records {
		text := strings.TrimSpace(r.Text)
		if _, dup := seen[text]; dup {
			continue
		}

		if threshold < 1 {
			words := wordSet(text)
			duplicate := false
			for _, k := range keptTexts {
				if jaccard(words, k.words) >= threshold {
					duplicate = true
					break
				}
			}
			if duplicate {
				continue
			}
			keptTexts = append(keptTexts, kept{text: text, words: words})
		}

		seen[text] = struct{}{}
		out = append(out, r)
	}

	return out
}

// CapPerDocument keeps at most maxPerDoc records per document id, walking
// the input in order. A cap of zero or less disables the step.
func CapPerDocument(records []models.MergedRecord, maxPerDoc int) []models.MergedRecord {
	if maxPerDoc <= 0 {
		return records
	}

	counts := make(map[string]int)
	out := make([]models.MergedRecord, 0, len(records))
	for _, r := range records {
		if counts[r.DocumentID] >= maxPerDoc {
			continue
		}
		counts[r.DocumentID]++
		out = append(out, r)
	}
	return out
}
