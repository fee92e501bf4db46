package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// split breaks text into pieces no longer than the chunk size. Separators
// are tried in order; a piece that is still too large is split again with
// the separators that follow the current one.
func (c *TextChunker) split(text string, separators []string) []string {
	if runeLen(text) <= c.chunkSize {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	for i, sep := range separators {
		if sep == "" {
			return splitRunes(text, c.chunkSize)
		}
		if !strings.Contains(text, sep) {
			continue
		}

		chunks := c.mergeParts(strings.Split(text, sep), sep, separators[i+1:])
		if len(chunks) > 0 {
			return chunks
		}
	}

	// Separator list exhausted without the character fallback.
	return splitRunes(text, c.chunkSize)
}

// mergeParts greedily packs split parts into chunks. Each part gets its
// separator back when the separator followed it in the source text.
func (c *TextChunker) mergeParts(parts []string, sep string, finer []string) []string {
	var (
		chunks []string
		buf    strings.Builder
		bufLen int
	)

	flush := func() {
		if chunk := strings.TrimSpace(buf.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
		bufLen = 0
	}

	for j, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}

		piece := trimmed
		if j < len(parts)-1 {
			piece += sep
		}
		// Trailing whitespace is trimmed on flush, so it does not count
		// against the limit.
		fitLen := runeLen(strings.TrimRightFunc(piece, unicode.IsSpace))

		if bufLen+fitLen <= c.chunkSize {
			buf.WriteString(piece)
			bufLen += runeLen(piece)
			continue
		}

		flush()

		if fitLen > c.chunkSize {
			chunks = append(chunks, c.split(piece, finer)...)
			continue
		}

		buf.WriteString(piece)
		bufLen = runeLen(piece)
	}
	flush()

	return chunks
}

// splitRunes cuts text at fixed rune offsets.
func splitRunes(text string, size int) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func endsWithSpace(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}
