package output

import (
	"fmt"
	"strings"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// MaxReasons is the maximum number of reasons to return
const MaxReasons = 5

// GenerateMatchReasons creates human-readable explanations of why a result matched
func GenerateMatchReasons(result models.FinalResult, query string) []string {
	reasons := []string{}

	if strings.TrimSpace(query) == "" {
		return reasons
	}

	queryTerms := extractTerms(query)

	// Check match source
	switch result.Source {
	case models.SourceSemantic:
		reasons = append(reasons, "semantic similarity")
	case models.SourceKeyword:
		reasons = append(reasons, "keyword match")
	case models.SourceBoth:
		reasons = append(reasons, "semantic similarity", "keyword match", "found by both rankers")
	}

	// Check for document name matches
	if result.DocumentName != "" {
		for _, term := range queryTerms {
			if strings.Contains(strings.ToLower(result.DocumentName), term) {
				reasons = append(reasons, "document name contains '"+term+"'")
				break // Only add one name reason
			}
		}
	}

	// Check for exact phrase match
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if result.Text != "" && strings.Contains(strings.ToLower(result.Text), queryLower) {
		reasons = append(reasons, "exact phrase match")
	} else if n := countTerms(result.Text, queryTerms); n > 0 {
		reasons = append(reasons, fmt.Sprintf("contains %d of %d query terms", n, len(queryTerms)))
	}

	if result.LLMScore != nil && *result.LLMScore >= 0.5 {
		reasons = append(reasons, fmt.Sprintf("rescored relevant (%.2f)", *result.LLMScore))
	}

	// Deduplicate and limit
	reasons = deduplicateReasons(reasons)
	if len(reasons) > MaxReasons {
		reasons = reasons[:MaxReasons]
	}

	return reasons
}

// extractTerms splits a query into unique lowercase terms
func extractTerms(query string) []string {
	words := strings.Fields(query)
	terms := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.Trim(w, ".,;:!?\"'()[]{}|"))
		if len([]rune(w)) > 1 && !seen[w] {
			seen[w] = true
			terms = append(terms, w)
		}
	}
	return terms
}

// countTerms counts the terms that occur in text.
func countTerms(text string, terms []string) int {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	n := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			n++
		}
	}
	return n
}

// deduplicateReasons removes duplicate reasons
func deduplicateReasons(reasons []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if r == "" {
			continue
		}
		lower := strings.ToLower(r)
		if !seen[lower] {
			seen[lower] = true
			result = append(result, r)
		}
	}
	return result
}
