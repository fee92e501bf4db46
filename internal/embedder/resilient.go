package embedder

import (
	"context"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/resilience"
)

// Breaker operation names used by ResilientEmbedder.
const (
	OperationEmbedQuery = "embedding.query"
	OperationEmbedBatch = "embedding.batch"
)

// ResilientEmbedder retries retryable provider failures with backoff and
// stops calling a failing provider once its circuit opens.
type ResilientEmbedder struct {
	embedder Embedder
	executor *resilience.Executor
}

var _ Embedder = (*ResilientEmbedder)(nil)

// NewResilientEmbedder wraps embedder with executor.
func NewResilientEmbedder(embedder Embedder, executor *resilience.Executor) *ResilientEmbedder {
	return &ResilientEmbedder{embedder: embedder, executor: executor}
}

// EmbedSingle embeds one text through the executor.
func (r *ResilientEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.executor.Execute(ctx, OperationEmbedQuery, func(ctx context.Context) error {
		v, err := r.embedder.EmbedSingle(ctx, text)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, Classify)
	if err != nil {
		return nil, r.wrapOpen(err)
	}
	return out, nil
}

// Embed embeds a batch through the executor.
func (r *ResilientEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.executor.Execute(ctx, OperationEmbedBatch, func(ctx context.Context) error {
		v, err := r.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}
		out = v
		return nil
	}, Classify)
	if err != nil {
		return nil, r.wrapOpen(err)
	}
	return out, nil
}

// wrapOpen turns an open-circuit rejection into ErrProviderUnavailable.
func (r *ResilientEmbedder) wrapOpen(err error) error {
	if resilience.IsCircuitOpen(err) {
		return ErrProviderUnavailable.WithCause(err)
	}
	return err
}

// Health delegates to the underlying embedder.
func (r *ResilientEmbedder) Health(ctx context.Context) error {
	return r.embedder.Health(ctx)
}

// ModelName delegates to the underlying embedder.
func (r *ResilientEmbedder) ModelName() string {
	return r.embedder.ModelName()
}

// Dimensions delegates to the underlying embedder.
func (r *ResilientEmbedder) Dimensions() int {
	return r.embedder.Dimensions()
}
