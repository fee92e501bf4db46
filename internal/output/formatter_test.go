package output

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

func scoredResult() models.FinalResult {
	return models.FinalResult{
		MergedRecord: models.MergedRecord{
			ChunkID:       "c7",
			DocumentID:    "d1",
			DocumentName:  "notes.md",
			ChunkIndex:    3,
			Text:          "Refunds are processed\nwithin   five days.",
			SemanticScore: models.Float(0.81),
			KeywordScore:  models.Float(0.55),
			CombinedScore: models.Float(0.742),
		},
		RelevanceRank:       1,
		RelevancePercentile: 100,
		Source:              models.SourceBoth,
	}
}

// ============================================================================
// Formatter Tests
// ============================================================================

func TestNewFormatter(t *testing.T) {
	f := NewFormatter(FormatVerbose, false)
	assert.Equal(t, FormatVerbose, f.Mode)
	assert.Empty(t, f.Query)
}

func TestFormatResultNormal(t *testing.T) {
	f := NewFormatter(FormatNormal, false)
	out := f.FormatResult(scoredResult(), 0)

	assert.Equal(t, "[1] notes.md #3 (semantic + keyword) [0.742] Refunds are processed within five days.", out)
}

func TestFormatResultNormalFallsBackToDocumentID(t *testing.T) {
	f := NewFormatter(FormatNormal, false)
	r := scoredResult()
	r.DocumentName = ""
	r.Text = ""

	assert.Equal(t, "[2] d1 #3 (semantic + keyword) [0.742]", f.FormatResult(r, 1))
}

func TestFormatResultPrefersLLMScore(t *testing.T) {
	f := NewFormatter(FormatNormal, false)
	r := scoredResult()
	r.LLMScore = models.Float(0.9)

	assert.Contains(t, f.FormatResult(r, 0), "[0.900]")
}

func TestFormatResultVerbose(t *testing.T) {
	f := NewFormatter(FormatVerbose, false)
	f.Query = "refunds"
	out := f.FormatResult(scoredResult(), 0)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "[1] notes.md #3", lines[0])
	assert.Contains(t, out, "Rank: 1 | Percentile: 100 | Source: semantic + keyword")
	assert.Contains(t, out, "Scores: semantic=0.8100 | keyword=0.5500 | combined=0.7420")
	assert.NotContains(t, out, "llm=")
	assert.Contains(t, out, "Reasons: semantic similarity, keyword match")
	assert.Contains(t, out, "Preview: Refunds are processed within five days.")
}

func TestFormatResultJSONIsEmpty(t *testing.T) {
	f := NewFormatter(FormatJSON, false)
	assert.Empty(t, f.FormatResult(scoredResult(), 0))
}

func TestFormatSummary(t *testing.T) {
	resp := &search.Response{
		Status:       search.StatusOK,
		TotalResults: 4,
		Strategy:     search.StrategyRRF,
		Filter:       string(search.FilterThreshold),
		Rescored:     true,
		SearchTimeMs: 12,
	}

	assert.Equal(t, "Found 4 results", NewFormatter(FormatNormal, false).FormatSummary(resp))
	assert.Equal(t, "Found 4 results in 12ms (rrf, filter=threshold, rescored)",
		NewFormatter(FormatVerbose, false).FormatSummary(resp))

	resp.Status = search.StatusDegraded
	resp.Filter = string(search.FilterNoop)
	resp.Rescored = false
	assert.Equal(t, "Found 4 results in 12ms (rrf) [degraded]",
		NewFormatter(FormatVerbose, false).FormatSummary(resp))
}

func TestFormatResponse(t *testing.T) {
	resp := &search.Response{
		Status:       search.StatusDegraded,
		Results:      []models.FinalResult{scoredResult()},
		TotalResults: 1,
		Failures: []*search.SourceError{
			{Source: search.SourceKeyword, Err: errors.New("fts offline")},
		},
	}
	out := NewFormatter(FormatNormal, false).FormatResponse(resp)

	assert.Contains(t, out, "Found 1 results [degraded]\n")
	assert.Contains(t, out, "warning: keyword search unavailable: fts offline\n")
	assert.Contains(t, out, "[1] notes.md #3")
}

func TestFormatChunks(t *testing.T) {
	out := NewFormatter(FormatNormal, false).FormatChunks([]string{"héllo", "world"})

	assert.Contains(t, out, "--- chunk 0 (5 chars) ---\nhéllo\n")
	assert.Contains(t, out, "--- chunk 1 (5 chars) ---\nworld\n")
	assert.True(t, strings.HasSuffix(out, "2 chunks\n"))
}

func TestColorsEnabled(t *testing.T) {
	out := NewFormatter(FormatNormal, true).FormatResult(scoredResult(), 0)
	assert.Contains(t, out, "\x1b[")
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		source models.Source
		want   string
	}{
		{models.SourceSemantic, "semantic match"},
		{models.SourceKeyword, "keyword match"},
		{models.SourceBoth, "semantic + keyword"},
		{models.SourceUnknown, "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSource(tt.source))
		})
	}
}

func TestTruncateContent(t *testing.T) {
	assert.Equal(t, "short", truncateContent("short", 10))
	assert.Equal(t, "a b c", truncateContent("a\n\tb   c", 10))
	assert.Equal(t, "abcdefg...", truncateContent("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncateContent(strings.Repeat("é", 20), 10))
}
