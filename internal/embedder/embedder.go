package embedder

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Embedder generates vector embeddings from text
type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Health(ctx context.Context) error
	ModelName() string
	Dimensions() int
}

// Compile-time checks that the providers implement Embedder
var (
	_ Embedder = (*OllamaClient)(nil)
	_ Embedder = (*OpenAIClient)(nil)
)

// Result is the outcome of embedding one text with EmbedEach.
type Result struct {
	Index  int
	Vector []float32
	Err    error
}

// EmbedEach embeds texts one by one with at most concurrency calls in
// flight. Unlike Embed, one failing text does not fail the others: every
// input gets a Result at its own index. Texts not attempted because ctx was
// done carry ctx's error.
func EmbedEach(ctx context.Context, e Embedder, texts []string, concurrency int) []Result {
	results := make([]Result, len(texts))
	if concurrency <= 0 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, text := range texts {
		results[i].Index = i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Vector, results[i].Err = e.EmbedSingle(ctx, text)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// EmbedBatches calls Embed on consecutive slices of at most batchSize texts
// and concatenates the vectors in input order. The first failing batch
// aborts the rest.
func EmbedBatches(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		batch := texts[start:min(start+batchSize, len(texts))]
		vectors, err := e.Embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, ErrInvalidResponse.WithCause(errCountMismatch(len(batch), len(vectors)))
		}
		out = append(out, vectors...)
	}
	return out, nil
}
