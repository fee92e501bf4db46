package metrics

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// SearchMetrics contains metrics for a search operation
type SearchMetrics struct {
	ResultCount   int   // Number of results returned
	DocumentCount int   // Distinct documents among the results
	TotalTokens   int   // Estimated total tokens in results
	TotalChars    int   // Characters across all result texts
	SearchTimeMs  int64 // Search time in milliseconds
}

// BaselineEstimate is the cost of handing every matched document to a model
// whole instead of the selected chunks.
type BaselineEstimate struct {
	DocumentCount   int
	TotalChunks     int
	EstimatedTokens int
}

// ContextSavings contains context window savings calculation
type ContextSavings struct {
	TokensSaved  int     // Tokens saved vs baseline
	PercentSaved float64 // Percentage of context saved
}

// charsPerToken approximates English prose.
const charsPerToken = 4

// EstimateTokens estimates the number of tokens in a string
// Uses a simple heuristic: count words and add extra for punctuation
func EstimateTokens(content string) int {
	if content == "" {
		return 0
	}

	words := 0
	punctCount := 0
	inWord := false
	for _, r := range content {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			if !inWord {
				words++
				inWord = true
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			punctCount++
			inWord = false
		default:
			inWord = false
		}
	}

	// Each punctuation/symbol is roughly 0.5 tokens on average
	return words + punctCount/2
}

// FromSearchResults creates metrics from search results
func FromSearchResults(results []models.FinalResult, searchTime time.Duration) *SearchMetrics {
	metrics := &SearchMetrics{
		ResultCount:  len(results),
		SearchTimeMs: searchTime.Milliseconds(),
	}

	docs := make(map[string]struct{})
	for _, r := range results {
		metrics.TotalTokens += EstimateTokens(r.Text)
		metrics.TotalChars += len([]rune(r.Text))
		docs[r.DocumentID] = struct{}{}
	}
	metrics.DocumentCount = len(docs)

	return metrics
}

// EstimateDocumentBaseline estimates the tokens of the given documents read
// in full, assuming chunkSize characters per stored chunk.
func EstimateDocumentBaseline(docs []*models.Document, chunkSize int) *BaselineEstimate {
	b := &BaselineEstimate{DocumentCount: len(docs)}
	for _, d := range docs {
		b.TotalChunks += d.ChunkCount
	}
	b.EstimatedTokens = b.TotalChunks * chunkSize / charsPerToken
	return b
}

// CalculateSavings calculates context window savings
func CalculateSavings(resultTokens, baselineTokens int) ContextSavings {
	if baselineTokens == 0 {
		return ContextSavings{TokensSaved: 0, PercentSaved: 0}
	}

	saved := baselineTokens - resultTokens
	if saved < 0 {
		return ContextSavings{TokensSaved: 0, PercentSaved: 0}
	}

	percent := float64(saved) / float64(baselineTokens) * 100

	return ContextSavings{
		TokensSaved:  saved,
		PercentSaved: percent,
	}
}

// FormatMetrics formats search metrics for display
func FormatMetrics(m *SearchMetrics) string {
	var sb strings.Builder

	sb.WriteString("Search Metrics:\n")
	sb.WriteString(fmt.Sprintf("  Results: %d\n", m.ResultCount))
	sb.WriteString(fmt.Sprintf("  Documents: %d\n", m.DocumentCount))
	sb.WriteString(fmt.Sprintf("  Estimated Tokens: %d\n", m.TotalTokens))
	sb.WriteString(fmt.Sprintf("  Search Time: %dms\n", m.SearchTimeMs))

	return sb.String()
}

// FormatMetricsWithComparison formats metrics with baseline comparison
func FormatMetricsWithComparison(m *SearchMetrics, baseline *BaselineEstimate, savings ContextSavings) string {
	var sb strings.Builder

	sb.WriteString(FormatMetrics(m))
	sb.WriteString("\n")
	sb.WriteString("Baseline Comparison:\n")
	sb.WriteString(fmt.Sprintf("  Full documents: %d documents, %d chunks\n", baseline.DocumentCount, baseline.TotalChunks))
	sb.WriteString(fmt.Sprintf("  Full document tokens (est.): %d\n", baseline.EstimatedTokens))
	sb.WriteString("\n")
	sb.WriteString("Context Savings:\n")
	sb.WriteString(fmt.Sprintf("  Tokens Saved: %d (%.1f%%)\n", savings.TokensSaved, savings.PercentSaved))

	return sb.String()
}

// FormatMetricsSummary returns a compact one-line summary
func FormatMetricsSummary(m *SearchMetrics, savings *ContextSavings) string {
	if savings != nil && savings.PercentSaved > 0 {
		return fmt.Sprintf("%d results from %d documents, %d tokens (%.0f%% context saved), %dms",
			m.ResultCount, m.DocumentCount, m.TotalTokens, savings.PercentSaved, m.SearchTimeMs)
	}
	return fmt.Sprintf("%d results from %d documents, %d tokens, %dms",
		m.ResultCount, m.DocumentCount, m.TotalTokens, m.SearchTimeMs)
}
