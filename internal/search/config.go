package search

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration is matched by every ValidationErrors value, so
// callers can use errors.Is without inspecting individual fields.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// StrategyKind selects how the two source scores are fused.
type StrategyKind string

const (
	StrategyWeightedSum StrategyKind = "WEIGHTED_SUM"
	StrategyMaxScore    StrategyKind = "MAX_SCORE"
	StrategyRRF         StrategyKind = "RRF"
)

// ParseStrategy accepts strategy names in any case, with dashes or
// underscores.
func ParseStrategy(s string) (StrategyKind, error) {
	switch normalizeKind(s) {
	case "WEIGHTED_SUM", "WEIGHTED":
		return StrategyWeightedSum, nil
	case "MAX_SCORE", "MAX":
		return StrategyMaxScore, nil
	case "RRF":
		return StrategyRRF, nil
	default:
		return "", fmt.Errorf("unknown rerank strategy %q", s)
	}
}

// FilterKind selects the relevance filter applied after reranking.
type FilterKind string

const (
	FilterNoop      FilterKind = "NOOP"
	FilterThreshold FilterKind = "THRESHOLD"
	FilterLLMScore  FilterKind = "LLM_SCORE"
)

// ParseFilterKind accepts filter names in any case. An empty string means no
// filtering.
func ParseFilterKind(s string) (FilterKind, error) {
	switch normalizeKind(s) {
	case "", "NOOP", "NONE":
		return FilterNoop, nil
	case "THRESHOLD":
		return FilterThreshold, nil
	case "LLM_SCORE", "LLM", "LLM_FILTER":
		return FilterLLMScore, nil
	default:
		return "", fmt.Errorf("unknown relevance filter %q", s)
	}
}

func normalizeKind(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}

const (
	DefaultTopK                         = 10
	DefaultMinScoreThreshold            = 0.3
	DefaultSemanticWeight               = 0.6
	DefaultKeywordWeight                = 0.4
	DefaultMaxChunksPerDocument         = 2
	DefaultDuplicateSimilarityThreshold = 0.95
	DefaultCandidateMultiplier          = 2
	DefaultRelevanceThreshold           = 0.5
)

// Config holds the per-call pipeline parameters. A zero MaxChunksPerDocument
// means no per-document cap.
type Config struct {
	TopK                         int
	MinScoreThreshold            float64
	SemanticWeight               float64
	KeywordWeight                float64
	MaxChunksPerDocument         int
	RemoveDuplicates             bool
	DuplicateSimilarityThreshold float64
	RerankStrategy               StrategyKind
	RRFK                         int
	IncludeMetadata              bool

	// CandidateMultiplier scales TopK into the number of hits requested
	// from each ranker.
	CandidateMultiplier int
	// SemanticThreshold is passed to the vector store as a similarity floor.
	SemanticThreshold float64
	// DocumentID restricts both rankers to one document when set.
	DocumentID string

	RelevanceFilter    FilterKind
	RelevanceThreshold float64
	// Rescore runs the LLM rescorer before filtering and finalizing.
	Rescore bool
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		TopK:                         DefaultTopK,
		MinScoreThreshold:            DefaultMinScoreThreshold,
		SemanticWeight:               DefaultSemanticWeight,
		KeywordWeight:                DefaultKeywordWeight,
		MaxChunksPerDocument:         DefaultMaxChunksPerDocument,
		RemoveDuplicates:             false,
		DuplicateSimilarityThreshold: DefaultDuplicateSimilarityThreshold,
		RerankStrategy:               StrategyWeightedSum,
		RRFK:                         DefaultRRFK,
		IncludeMetadata:              true,
		CandidateMultiplier:          DefaultCandidateMultiplier,
		RelevanceFilter:              FilterNoop,
		RelevanceThreshold:           DefaultRelevanceThreshold,
	}
}

// CandidateLimit is the number of hits requested from each ranker.
func (c Config) CandidateLimit() int {
	m := c.CandidateMultiplier
	if m < 1 {
		m = 1
	}
	return c.TopK * m
}

// StrategyParams returns the reranking parameters of the config.
func (c Config) StrategyParams() StrategyParams {
	return StrategyParams{
		SemanticWeight: c.SemanticWeight,
		KeywordWeight:  c.KeywordWeight,
		RRFK:           c.RRFK,
	}
}

// MaxRRFScore is the RRF score of a chunk ranked first by both rankers,
// the highest score RRF can give.
func MaxRRFScore(k int) float64 {
	return 2 / float64(k+1)
}

// combinedFloor maps a threshold in [0, 1] onto the scale of the combined
// score. Under RRF the threshold is a share of MaxRRFScore.
func (c Config) combinedFloor(t float64) float64 {
	if c.RerankStrategy == StrategyRRF && c.RRFK > 0 {
		return t * MaxRRFScore(c.RRFK)
	}
	return t
}

// FilterThreshold returns the relevance threshold on the scale the filter
// compares against. Only the THRESHOLD filter reads the combined score.
func (c Config) FilterThreshold() float64 {
	if c.RelevanceFilter == FilterThreshold {
		return c.combinedFloor(c.RelevanceThreshold)
	}
	return c.RelevanceThreshold
}

// FinalizeConfig returns the finalizer settings of the config.
// MinScoreThreshold is scaled like FilterThreshold.
func (c Config) FinalizeConfig() FinalizeConfig {
	return FinalizeConfig{
		MinScoreThreshold:            c.combinedFloor(c.MinScoreThreshold),
		TopK:                         c.TopK,
		MaxChunksPerDocument:         c.MaxChunksPerDocument,
		RemoveDuplicates:             c.RemoveDuplicates,
		DuplicateSimilarityThreshold: c.DuplicateSimilarityThreshold,
		SortByScore:                  true,
		IncludeMetadata:              c.IncludeMetadata,
	}
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("invalid configuration: ")
	for i, err := range e {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Is makes errors.Is(err, ErrInvalidConfiguration) hold.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// Fields returns the names of the failing fields.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// Validate checks every field and reports all problems at once. It returns
// nil when the config is usable.
func (c Config) Validate() error {
	var errs ValidationErrors

	unit := func(field string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must be between 0 and 1, got %g", v),
			})
		}
	}

	if c.TopK < 1 {
		errs = append(errs, ValidationError{Field: "topK", Message: fmt.Sprintf("must be at least 1, got %d", c.TopK)})
	}
	unit("threshold", c.MinScoreThreshold)
	unit("semanticWeight", c.SemanticWeight)
	unit("keywordWeight", c.KeywordWeight)
	unit("duplicateSimilarityThreshold", c.DuplicateSimilarityThreshold)
	unit("semanticThreshold", c.SemanticThreshold)
	unit("relevanceThreshold", c.RelevanceThreshold)

	if c.MaxChunksPerDocument < 0 {
		errs = append(errs, ValidationError{
			Field:   "maxChunksPerDocument",
			Message: fmt.Sprintf("must be non-negative, got %d", c.MaxChunksPerDocument),
		})
	}
	if c.RRFK <= 0 {
		errs = append(errs, ValidationError{Field: "rrfK", Message: fmt.Sprintf("must be positive, got %d", c.RRFK)})
	}
	if c.CandidateMultiplier < 1 {
		errs = append(errs, ValidationError{
			Field:   "candidateMultiplier",
			Message: fmt.Sprintf("must be at least 1, got %d", c.CandidateMultiplier),
		})
	}

	switch c.RerankStrategy {
	case StrategyWeightedSum, StrategyMaxScore, StrategyRRF:
	default:
		errs = append(errs, ValidationError{
			Field:   "rerankStrategy",
			Message: fmt.Sprintf("unknown strategy %q; valid values are: WEIGHTED_SUM, MAX_SCORE, RRF", c.RerankStrategy),
		})
	}

	switch c.RelevanceFilter {
	case FilterNoop, FilterThreshold, FilterLLMScore, "":
	default:
		errs = append(errs, ValidationError{
			Field:   "relevanceFilter",
			Message: fmt.Sprintf("unknown filter %q; valid values are: NOOP, THRESHOLD, LLM_SCORE", c.RelevanceFilter),
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
