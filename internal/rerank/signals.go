package rerank

import (
	"strings"
	"unicode/utf8"
)

// Signal functions return a value in [0, 1]. Text arguments are expected
// lowercased.

// queryTokens lowercases and splits query on whitespace, keeping tokens of
// at least minLen runes.
func queryTokens(query string, minLen int) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// KeywordSignal is the number of tokens found anywhere in text divided by
// words, the word count of the whole query. Words too short to be tokens
// never match but still count in the denominator.
func KeywordSignal(text string, tokens []string, words int) float64 {
	if words <= 0 || len(tokens) == 0 {
		return 0
	}
	matches := 0
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			matches++
		}
	}
	return min(float64(matches)/float64(words), 1)
}

// LengthBand maps texts shorter than Below runes to Score.
type LengthBand struct {
	Below int     `yaml:"below" json:"below" mapstructure:"below"`
	Score float64 `yaml:"score" json:"score" mapstructure:"score"`
}

// LengthSignal returns the score of the first band whose bound exceeds
// length, or longScore past the last band. Bands must be ascending.
func LengthSignal(length int, bands []LengthBand, longScore float64) float64 {
	for _, b := range bands {
		if length < b.Below {
			return b.Score
		}
	}
	return longScore
}

// PositionSignal averages 1 - decay*offset/length over the tokens found in
// text, so earlier matches count more. No match scores 0.
func PositionSignal(text string, tokens []string, decay float64) float64 {
	length := utf8.RuneCountInString(text)
	if length == 0 {
		return 0
	}

	sum := 0.0
	matches := 0
	for _, tok := range tokens {
		idx := strings.Index(text, tok)
		if idx < 0 {
			continue
		}
		offset := utf8.RuneCountInString(text[:idx])
		sum += 1 - decay*float64(offset)/float64(length)
		matches++
	}
	if matches == 0 {
		return 0
	}
	return sum / float64(matches)
}
