package search

import (
	"fmt"
	"log/slog"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// Filter removes records that fall below a relevance bar. New filter kinds
// plug in by implementing this interface; callers never branch on the kind.
type Filter interface {
	Name() string
	Description() string
	Filter(records []models.MergedRecord) []models.MergedRecord
}

// NewFilter maps a filter kind to its implementation. Unknown kinds fall
// back to NoopFilter.
func NewFilter(kind FilterKind, threshold float64) Filter {
	switch kind {
	case FilterThreshold:
		return NewThresholdFilter(threshold)
	case FilterLLMScore:
		return NewLLMScoreFilter(threshold)
	case FilterNoop, "":
		return NoopFilter{}
	default:
		slog.Warn("unknown relevance filter, using noop", "filter", string(kind))
		return NoopFilter{}
	}
}

func clampUnit(v float64) float64 {
	return min(1, max(0, v))
}

// ThresholdFilter keeps records whose combined score is at least the
// threshold. A missing combined score counts as 0.
type ThresholdFilter struct {
	threshold float64
}

// NewThresholdFilter creates a ThresholdFilter; the threshold is clamped to
// [0, 1].
func NewThresholdFilter(threshold float64) ThresholdFilter {
	return ThresholdFilter{threshold: clampUnit(threshold)}
}

// Threshold returns the effective threshold.
func (f ThresholdFilter) Threshold() float64 { return f.threshold }

func (f ThresholdFilter) Name() string {
	return fmt.Sprintf("ThresholdFilter_%.4f", f.threshold)
}

func (f ThresholdFilter) Description() string {
	return fmt.Sprintf("drops records with combined score < %.4f", f.threshold)
}

func (f ThresholdFilter) Filter(records []models.MergedRecord) []models.MergedRecord {
	return keepIf(records, func(r models.MergedRecord) bool {
		return r.Combined() >= f.threshold
	})
}

// LLMScoreFilter keeps records whose LLM score is at least the threshold.
// Records that were never rescored fail the filter.
type LLMScoreFilter struct {
	threshold float64
}

// NewLLMScoreFilter creates an LLMScoreFilter; the threshold is clamped to
// [0, 1].
func NewLLMScoreFilter(threshold float64) LLMScoreFilter {
	return LLMScoreFilter{threshold: clampUnit(threshold)}
}

// Threshold returns the effective threshold.
func (f LLMScoreFilter) Threshold() float64 { return f.threshold }

func (f LLMScoreFilter) Name() string {
	return fmt.Sprintf("LLMScoreFilter_%.2f", f.threshold)
}

func (f LLMScoreFilter) Description() string {
	return fmt.Sprintf("drops records with llm score < %.4f or no llm score", f.threshold)
}

func (f LLMScoreFilter) Filter(records []models.MergedRecord) []models.MergedRecord {
	return keepIf(records, func(r models.MergedRecord) bool {
		return r.LLMScore != nil && *r.LLMScore >= f.threshold
	})
}

// NoopFilter passes every record through.
type NoopFilter struct{}

func (NoopFilter) Name() string        { return "NoopFilter" }
func (NoopFilter) Description() string { return "passes all records unchanged" }

func (NoopFilter) Filter(records []models.MergedRecord) []models.MergedRecord {
	return records
}

func keepIf(records []models.MergedRecord, keep func(models.MergedRecord) bool) []models.MergedRecord {
	out := make([]models.MergedRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
