package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// FormatMode specifies the output format
type FormatMode int

const (
	// FormatNormal is the standard compact output
	FormatNormal FormatMode = iota
	// FormatVerbose includes match reasons and score details
	FormatVerbose
	// FormatJSON outputs raw JSON
	FormatJSON
)

// previewLength is the rune length of content previews.
const previewLength = 120

// palette holds the colors of one formatter. Colors are per instance so a
// formatter writing to a pipe does not affect one writing to a terminal.
type palette struct {
	header *color.Color
	source *color.Color
	high   *color.Color
	medium *color.Color
	low    *color.Color
	warn   *color.Color
	faint  *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header: color.New(color.Bold),
		source: color.New(color.FgCyan),
		high:   color.New(color.FgGreen),
		medium: color.New(color.FgYellow),
		low:    color.New(color.FgRed),
		warn:   color.New(color.FgYellow, color.Bold),
		faint:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.header, p.source, p.high, p.medium, p.low, p.warn, p.faint} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Formatter handles search result output formatting
type Formatter struct {
	Mode  FormatMode
	Query string

	colors palette
}

// NewFormatter creates a formatter with the specified mode. Colors are only
// used when showColors is true.
func NewFormatter(mode FormatMode, showColors bool) *Formatter {
	return &Formatter{
		Mode:   mode,
		colors: newPalette(showColors),
	}
}

// FormatResponse formats the summary, any source failures and every result.
func (f *Formatter) FormatResponse(resp *search.Response) string {
	var sb strings.Builder

	sb.WriteString(f.FormatSummary(resp))
	sb.WriteString("\n")
	for _, failure := range resp.Failures {
		sb.WriteString(f.colors.warn.Sprintf("warning: %s", failure.Error()))
		sb.WriteString("\n")
	}
	for i, r := range resp.Results {
		sb.WriteString(f.FormatResult(r, i))
		if f.Mode != FormatVerbose {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatResult formats a single search result
func (f *Formatter) FormatResult(result models.FinalResult, index int) string {
	switch f.Mode {
	case FormatVerbose:
		return f.formatVerbose(result, index)
	case FormatJSON:
		// JSON formatting is handled at a higher level
		return ""
	default:
		return f.formatNormal(result, index)
	}
}

// formatNormal produces compact single-line output
func (f *Formatter) formatNormal(result models.FinalResult, index int) string {
	// Format: [index] document #chunk (source) [score] preview
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%d] ", index+1))
	sb.WriteString(f.colors.header.Sprint(displayName(result)))
	sb.WriteString(fmt.Sprintf(" #%d", result.ChunkIndex))
	sb.WriteString(" (" + f.colors.source.Sprint(FormatSource(result.Source)) + ")")
	sb.WriteString(" [" + f.score(rankingScore(result), 3) + "]")

	if result.Text != "" {
		sb.WriteString(" " + f.colors.faint.Sprint(truncateContent(result.Text, 60)))
	}
	return sb.String()
}

// formatVerbose produces detailed multi-line output
func (f *Formatter) formatVerbose(result models.FinalResult, index int) string {
	var sb strings.Builder

	// Header line
	sb.WriteString(fmt.Sprintf("[%d] %s #%d\n", index+1, f.colors.header.Sprint(displayName(result)), result.ChunkIndex))

	// Rank section
	sb.WriteString(fmt.Sprintf("    Rank: %d | Percentile: %.0f | Source: %s\n",
		result.RelevanceRank, result.RelevancePercentile, f.colors.source.Sprint(FormatSource(result.Source))))

	// Score section
	sb.WriteString(f.formatScoreDetails(result))

	if reasons := GenerateMatchReasons(result, f.Query); len(reasons) > 0 {
		sb.WriteString(fmt.Sprintf("    Reasons: %s\n", strings.Join(reasons, ", ")))
	}

	// Content preview (truncated)
	if result.Text != "" {
		sb.WriteString(fmt.Sprintf("    Preview: %s\n", truncateContent(result.Text, previewLength)))
	}

	return sb.String()
}

// formatScoreDetails formats the detailed score breakdown
func (f *Formatter) formatScoreDetails(result models.FinalResult) string {
	var scores []string

	if result.SemanticScore != nil {
		scores = append(scores, "semantic="+f.score(*result.SemanticScore, 4))
	}
	if result.KeywordScore != nil {
		scores = append(scores, "keyword="+f.score(*result.KeywordScore, 4))
	}
	if result.CombinedScore != nil {
		scores = append(scores, "combined="+f.score(*result.CombinedScore, 4))
	}
	if result.LLMScore != nil {
		scores = append(scores, "llm="+f.score(*result.LLMScore, 4))
	}

	if len(scores) == 0 {
		return ""
	}
	return fmt.Sprintf("    Scores: %s\n", strings.Join(scores, " | "))
}

// score colors a score by band.
func (f *Formatter) score(v float64, precision int) string {
	s := fmt.Sprintf("%.*f", precision, v)
	switch {
	case v >= 0.7:
		return f.colors.high.Sprint(s)
	case v >= 0.4:
		return f.colors.medium.Sprint(s)
	default:
		return f.colors.low.Sprint(s)
	}
}

// FormatSummary formats the search summary line
func (f *Formatter) FormatSummary(response *search.Response) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Found %d results", response.TotalResults))

	if f.Mode == FormatVerbose {
		sb.WriteString(fmt.Sprintf(" in %dms", response.SearchTimeMs))

		flags := []string{strings.ToLower(string(response.Strategy))}
		if response.Filter != "" && !strings.EqualFold(response.Filter, string(search.FilterNoop)) {
			flags = append(flags, "filter="+strings.ToLower(response.Filter))
		}
		if response.Rescored {
			flags = append(flags, "rescored")
		}
		sb.WriteString(fmt.Sprintf(" (%s)", strings.Join(flags, ", ")))
	}

	if response.Status == search.StatusDegraded || response.Status == search.StatusUnavailable {
		sb.WriteString(" " + f.colors.warn.Sprintf("[%s]", response.Status))
	}

	return sb.String()
}

// FormatChunks lists chunks with their index and rune length.
func (f *Formatter) FormatChunks(chunks []string) string {
	var sb strings.Builder
	for i, c := range chunks {
		sb.WriteString(f.colors.header.Sprintf("--- chunk %d (%d chars) ---", i, len([]rune(c))))
		sb.WriteString("\n")
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("%d chunks\n", len(chunks)))
	return sb.String()
}

// rankingScore is the score the result was ranked by.
func rankingScore(r models.FinalResult) float64 {
	switch {
	case r.LLMScore != nil:
		return *r.LLMScore
	case r.CombinedScore != nil:
		return *r.CombinedScore
	default:
		return r.BestScore()
	}
}

func displayName(r models.FinalResult) string {
	if r.DocumentName != "" {
		return r.DocumentName
	}
	return r.DocumentID
}

// truncateContent truncates content to maxLen runes, adding ellipsis if needed
func truncateContent(content string, maxLen int) string {
	// Collapse newlines, tabs and repeated spaces for a single-line preview
	content = strings.Join(strings.Fields(content), " ")

	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// FormatSource returns a human-readable match source description
func FormatSource(source models.Source) string {
	switch source {
	case models.SourceSemantic:
		return "semantic match"
	case models.SourceKeyword:
		return "keyword match"
	case models.SourceBoth:
		return "semantic + keyword"
	default:
		return "unknown"
	}
}
