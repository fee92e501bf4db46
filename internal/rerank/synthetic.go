package rerank

import (
	"math"
	"strings"
	"unicode/utf8"
)

// SyntheticConfig holds the weights and curves of the synthetic score.
type SyntheticConfig struct {
	KeywordWeight  float64      `yaml:"keyword_weight" json:"keyword_weight" mapstructure:"keyword_weight"`
	LengthWeight   float64      `yaml:"length_weight" json:"length_weight" mapstructure:"length_weight"`
	PositionWeight float64      `yaml:"position_weight" json:"position_weight" mapstructure:"position_weight"`
	MinTokenLength int          `yaml:"min_token_length" json:"min_token_length" mapstructure:"min_token_length"`
	PositionDecay  float64      `yaml:"position_decay" json:"position_decay" mapstructure:"position_decay"`
	LengthBands    []LengthBand `yaml:"length_bands" json:"length_bands" mapstructure:"length_bands"`
	LongTextScore  float64      `yaml:"long_text_score" json:"long_text_score" mapstructure:"long_text_score"`
}

// DefaultSyntheticConfig weighs keywords 0.6, length 0.2 and position 0.2.
// Texts under 50 runes score 0.2 for length, under 300 score 0.6, up to
// 1000 score 1.0, up to 2000 score 0.9 and longer ones 0.7.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		KeywordWeight:  0.6,
		LengthWeight:   0.2,
		PositionWeight: 0.2,
		MinTokenLength: 3,
		PositionDecay:  0.7,
		LengthBands: []LengthBand{
			{Below: 50, Score: 0.2},
			{Below: 300, Score: 0.6},
			{Below: 1001, Score: 1.0},
			{Below: 2001, Score: 0.9},
		},
		LongTextScore: 0.7,
	}
}

func (c SyntheticConfig) normalize() SyntheticConfig {
	if c.KeywordWeight == 0 && c.LengthWeight == 0 && c.PositionWeight == 0 {
		return DefaultSyntheticConfig()
	}
	if c.MinTokenLength <= 0 {
		c.MinTokenLength = 1
	}
	return c
}

// SyntheticScorer estimates relevance without a model.
type SyntheticScorer struct {
	cfg SyntheticConfig
}

// NewSyntheticScorer creates a scorer. A zero config uses the defaults.
func NewSyntheticScorer(cfg SyntheticConfig) *SyntheticScorer {
	return &SyntheticScorer{cfg: cfg.normalize()}
}

// Score returns a relevance estimate in [0, 1]. A blank query or text
// scores 0.
func (s *SyntheticScorer) Score(query, text string) float64 {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(text) == "" {
		return 0
	}

	lower := strings.ToLower(text)
	tokens := queryTokens(query, s.cfg.MinTokenLength)

	words := len(strings.Fields(query))

	score := s.cfg.KeywordWeight*KeywordSignal(lower, tokens, words) +
		s.cfg.LengthWeight*LengthSignal(utf8.RuneCountInString(text), s.cfg.LengthBands, s.cfg.LongTextScore) +
		s.cfg.PositionWeight*PositionSignal(lower, tokens, s.cfg.PositionDecay)

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
