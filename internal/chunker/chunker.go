package chunker

import (
	"log/slog"
	"strings"
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 500

	// DefaultOverlap is the number of trailing characters of the previous
	// chunk repeated at the start of the next one.
	DefaultOverlap = 100
)

// DefaultSeparators lists split points from coarsest to finest. The empty
// separator cuts at fixed character offsets and always terminates.
var DefaultSeparators = []string{
	"\n\n", // paragraphs
	"\n",   // lines
	". ",   // sentences
	"! ",
	"? ",
	"; ",
	", ",
	" ", // words
	"",  // characters
}

// Config controls chunk size and overlap. Lengths are counted in runes.
type Config struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// DefaultConfig returns the chunking defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize: DefaultChunkSize,
		Overlap:   DefaultOverlap,
	}
}

// TextChunker splits prose into overlapping passages using recursive
// separator splitting.
type TextChunker struct {
	chunkSize  int
	overlap    int
	separators []string
	logger     *slog.Logger
}

// New creates a TextChunker. A chunk size below 1 is raised to 1 and a nil
// logger falls back to slog.Default().
func New(cfg Config, logger *slog.Logger) *TextChunker {
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 1
	}
	seps := cfg.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TextChunker{
		chunkSize:  cfg.ChunkSize,
		overlap:    cfg.Overlap,
		separators: seps,
		logger:     logger,
	}
}

// ChunkText splits text with the default separators.
func ChunkText(text string, chunkSize, overlap int) []string {
	return New(Config{ChunkSize: chunkSize, Overlap: overlap}, nil).Chunk(text)
}

// ChunkSize returns the configured maximum chunk length.
func (c *TextChunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the configured overlap length.
func (c *TextChunker) Overlap() int {
	return c.overlap
}

// Chunk splits text into passages. Blank input yields an empty slice.
func (c *TextChunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	chunks := c.split(text, c.separators)
	withOverlap := c.addOverlap(chunks)

	c.logger.Debug("chunked text",
		"length", runeLen(text),
		"chunk_size", c.chunkSize,
		"overlap", c.overlap,
		"chunks", len(withOverlap))

	return withOverlap
}

// ChunkDocument splits text and wraps every passage in a chunk record owned
// by doc, with ids and content hashes set.
func (c *TextChunker) ChunkDocument(doc *models.Document, text string) []*models.Chunk {
	passages := c.Chunk(text)
	now := time.Now().UTC()

	chunks := make([]*models.Chunk, 0, len(passages))
	for i, passage := range passages {
		chunk := &models.Chunk{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    passage,
			Metadata: map[string]any{
				"char_count": runeLen(passage),
			},
			CreatedAt: now,
		}
		chunk.SetHashes()
		chunks = append(chunks, chunk)
	}
	return chunks
}

// addOverlap prefixes every chunk after the first with the tail of its
// predecessor. The tail is taken from the un-overlapped predecessor.
func (c *TextChunker) addOverlap(chunks []string) []string {
	if len(chunks) <= 1 || c.overlap <= 0 {
		return chunks
	}

	result := make([]string, len(chunks))
	result[0] = chunks[0]

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		start := max(0, len(prev)-c.overlap)
		tail := string(prev[start:])

		var sb strings.Builder
		sb.WriteString(tail)
		if !endsWithSpace(tail) {
			sb.WriteByte(' ')
		}
		sb.WriteString(chunks[i])

		result[i] = strings.TrimSpace(sb.String())
	}

	return result
}
