package embedder

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder spaces provider calls with a token bucket. Each call
// takes one token whatever the number of texts.
type RateLimitedEmbedder struct {
	embedder Embedder
	limiter  *rate.Limiter
}

var _ Embedder = (*RateLimitedEmbedder)(nil)

// NewRateLimitedEmbedder allows perSecond calls with bursts of burst. A burst
// below 1 is raised to 1.
func NewRateLimitedEmbedder(embedder Embedder, perSecond float64, burst int) *RateLimitedEmbedder {
	return &RateLimitedEmbedder{
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), max(burst, 1)),
	}
}

// EmbedSingle waits for a token, then embeds.
func (r *RateLimitedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.embedder.EmbedSingle(ctx, text)
}

// Embed waits for a token, then embeds the whole batch.
func (r *RateLimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.embedder.Embed(ctx, texts)
}

// Health is not rate limited.
func (r *RateLimitedEmbedder) Health(ctx context.Context) error {
	return r.embedder.Health(ctx)
}

// ModelName delegates to the underlying embedder.
func (r *RateLimitedEmbedder) ModelName() string {
	return r.embedder.ModelName()
}

// Dimensions delegates to the underlying embedder.
func (r *RateLimitedEmbedder) Dimensions() int {
	return r.embedder.Dimensions()
}
