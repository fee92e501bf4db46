package rerank

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrMalformedOutput means the model reply held no usable score.
var ErrMalformedOutput = errors.New("malformed model output")

// ParseScores extracts n scores from a model reply. Markdown fences and
// surrounding prose are ignored, a truncated array is repaired, tokens that
// are not numbers are skipped and values are clamped to [0, 1]. Missing
// trailing scores are 0; extra ones are dropped. A NaN or infinite score
// makes the whole reply malformed.
func ParseScores(output string, n int) ([]float64, error) {
	body, ok := arrayBody(stripFences(output))
	if !ok {
		return nil, ErrMalformedOutput
	}

	scores := make([]float64, 0, n)
	for _, tok := range strings.Split(body, ",") {
		tok = strings.Trim(strings.TrimSpace(tok), `"'`)
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrMalformedOutput
		}
		scores = append(scores, clamp01(v))
	}
	if len(scores) == 0 {
		return nil, ErrMalformedOutput
	}

	if len(scores) > n {
		scores = scores[:n]
	}
	for len(scores) < n {
		scores = append(scores, 0)
	}
	return scores, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the info string, e.g. "json"
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// arrayBody returns the text between the first '[' and the last ']'. An
// unterminated array is run through jsonrepair first.
func arrayBody(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}
	s = s[start:]

	end := strings.LastIndexByte(s, ']')
	if end >= 0 {
		return s[1:end], true
	}

	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return s[1:], true
	}
	start = strings.IndexByte(repaired, '[')
	end = strings.LastIndexByte(repaired, ']')
	if start < 0 || end < start {
		return s[1:], true
	}
	return repaired[start+1 : end], true
}
