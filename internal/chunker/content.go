package chunker

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	// ErrBinaryContent is returned for content that is not UTF-8 text.
	ErrBinaryContent = errors.New("content is not text")
	// ErrMinifiedContent is returned for bundled or minified files, whose
	// chunks would be unreadable.
	ErrMinifiedContent = errors.New("content looks minified")
)

// ContentThresholds tune CheckContent.
type ContentThresholds struct {
	// MinWhitespaceRatio is the share of whitespace bytes below which text
	// counts as minified.
	MinWhitespaceRatio float64
	// MinSizeForRatio skips the whitespace check for small inputs.
	MinSizeForRatio int
}

// DefaultContentThresholds returns the thresholds used by CheckContent.
func DefaultContentThresholds() ContentThresholds {
	return ContentThresholds{
		MinWhitespaceRatio: 0.05,
		MinSizeForRatio:    1024,
	}
}

var minifiedSuffixes = []string{".min.js", ".min.css", ".bundle.js", ".bundle.css"}

// CheckContent reports whether content is worth chunking. name is only
// inspected for its suffix.
func CheckContent(content []byte, name string) error {
	return CheckContentWithThresholds(content, name, DefaultContentThresholds())
}

// CheckContentWithThresholds is CheckContent with explicit thresholds.
func CheckContentWithThresholds(content []byte, name string, t ContentThresholds) error {
	if bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content) {
		return ErrBinaryContent
	}

	lower := strings.ToLower(name)
	for _, suffix := range minifiedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return ErrMinifiedContent
		}
	}

	if len(content) < t.MinSizeForRatio {
		return nil
	}
	var whitespace int
	for _, b := range content {
		switch b {
		case ' ', '\t', '\n', '\r':
			whitespace++
		}
	}
	if float64(whitespace)/float64(len(content)) < t.MinWhitespaceRatio {
		return ErrMinifiedContent
	}
	return nil
}

// IsSkippable reports whether err came from CheckContent.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrBinaryContent) || errors.Is(err, ErrMinifiedContent)
}
