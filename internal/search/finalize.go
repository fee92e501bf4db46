package search

import (
	"fmt"
	"log/slog"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// FinalizeConfig controls the last pipeline stage. Every step can be turned
// off: SortByScore=false, MinScoreThreshold<=0, RemoveDuplicates=false,
// MaxChunksPerDocument<=0 and TopK<=0 each disable their step.
type FinalizeConfig struct {
	MinScoreThreshold            float64
	TopK                         int
	MaxChunksPerDocument         int
	RemoveDuplicates             bool
	DuplicateSimilarityThreshold float64
	SortByScore                  bool
	IncludeMetadata              bool
}

// DefaultFinalizeConfig returns threshold 0.3, top 10, no per-document cap,
// no deduplication, sorting and metadata on.
func DefaultFinalizeConfig() FinalizeConfig {
	return FinalizeConfig{
		MinScoreThreshold:            DefaultMinScoreThreshold,
		TopK:                         DefaultTopK,
		MaxChunksPerDocument:         0,
		RemoveDuplicates:             false,
		DuplicateSimilarityThreshold: DefaultDuplicateSimilarityThreshold,
		SortByScore:                  true,
		IncludeMetadata:              true,
	}
}

// Validate reports out-of-range fields.
func (c FinalizeConfig) Validate() error {
	var errs ValidationErrors
	if c.MinScoreThreshold < 0 || c.MinScoreThreshold > 1 {
		errs = append(errs, ValidationError{Field: "threshold", Message: fmt.Sprintf("must be between 0 and 1, got %g", c.MinScoreThreshold)})
	}
	if c.DuplicateSimilarityThreshold < 0 || c.DuplicateSimilarityThreshold > 1 {
		errs = append(errs, ValidationError{Field: "duplicateSimilarityThreshold", Message: fmt.Sprintf("must be between 0 and 1, got %g", c.DuplicateSimilarityThreshold)})
	}
	if c.TopK < 0 {
		errs = append(errs, ValidationError{Field: "topK", Message: fmt.Sprintf("must be non-negative, got %d", c.TopK)})
	}
	if c.MaxChunksPerDocument < 0 {
		errs = append(errs, ValidationError{Field: "maxChunksPerDocument", Message: fmt.Sprintf("must be non-negative, got %d", c.MaxChunksPerDocument)})
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Finalizer sorts, filters, deduplicates, diversifies, truncates and
// annotates reranked records, in that fixed order.
type Finalizer struct {
	cfg    FinalizeConfig
	logger *slog.Logger
}

// NewFinalizer creates a Finalizer. A nil logger falls back to slog.Default().
func NewFinalizer(cfg FinalizeConfig, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{cfg: cfg, logger: logger}
}

// Finalize turns records into ranked final results. The input is not
// modified.
func (f *Finalizer) Finalize(records []models.MergedRecord) []models.FinalResult {
	if len(records) == 0 {
		return []models.FinalResult{}
	}

	current := records
	if f.cfg.SortByScore {
		current = cloneRecords(current)
		sortByCombined(current)
	}

	if f.cfg.MinScoreThreshold > 0 {
		before := len(current)
		current = NewThresholdFilter(f.cfg.MinScoreThreshold).Filter(current)
		f.logDropped("threshold", before, len(current))
	}

	if f.cfg.RemoveDuplicates {
		before := len(current)
		current = Deduplicate(current, f.cfg.DuplicateSimilarityThreshold)
		f.logDropped("dedup", before, len(current))
	}

	if f.cfg.MaxChunksPerDocument > 0 {
		before := len(current)
		current = CapPerDocument(current, f.cfg.MaxChunksPerDocument)
		f.logDropped("per_document_cap", before, len(current))
	}

	if f.cfg.TopK > 0 && len(current) > f.cfg.TopK {
		current = current[:f.cfg.TopK]
	}

	return f.annotate(current)
}

func (f *Finalizer) annotate(records []models.MergedRecord) []models.FinalResult {
	total := len(records)
	results := make([]models.FinalResult, total)

	for i, r := range records {
		results[i] = models.FinalResult{
			MergedRecord: r,
			Source:       r.Source(),
		}
		if f.cfg.IncludeMetadata {
			results[i].RelevanceRank = i + 1
			results[i].RelevancePercentile = float64(total-i) / float64(total) * 100
		}
	}
	return results
}

func (f *Finalizer) logDropped(step string, before, after int) {
	if before == after {
		return
	}
	f.logger.Debug("finalize step dropped records",
		"step", step,
		"before", before,
		"after", after)
}

// FinalizeWithThreshold finalizes with a custom threshold and top-K.
func FinalizeWithThreshold(records []models.MergedRecord, threshold float64, topK int) []models.FinalResult {
	cfg := DefaultFinalizeConfig()
	cfg.MinScoreThreshold = threshold
	cfg.TopK = topK
	return NewFinalizer(cfg, nil).Finalize(records)
}

// FinalizeWithDiversification finalizes with a per-document cap.
func FinalizeWithDiversification(records []models.MergedRecord, topK, maxChunksPerDocument int) []models.FinalResult {
	cfg := DefaultFinalizeConfig()
	cfg.TopK = topK
	cfg.MaxChunksPerDocument = maxChunksPerDocument
	return NewFinalizer(cfg, nil).Finalize(records)
}

// FinalizeWithDeduplication finalizes with near-duplicate removal.
func FinalizeWithDeduplication(records []models.MergedRecord, topK int) []models.FinalResult {
	cfg := DefaultFinalizeConfig()
	cfg.TopK = topK
	cfg.RemoveDuplicates = true
	return NewFinalizer(cfg, nil).Finalize(records)
}
