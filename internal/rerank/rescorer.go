// Package rerank assigns LLM relevance scores to merged search results, with
// a deterministic synthetic score whenever the model cannot be used.
package rerank

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/llm"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// Fallback reasons reported to a FallbackObserver.
const (
	FallbackError     = "error"
	FallbackMalformed = "malformed"
)

// FallbackObserver is told whenever a batch falls back to synthetic scores.
type FallbackObserver interface {
	ObserveFallback(reason string, records int)
}

// LLMRescorer sets MergedRecord.LLMScore and reorders records by it.
type LLMRescorer struct {
	client    llm.ChatCompleter
	cfg       Config
	synthetic *SyntheticScorer
	observer  FallbackObserver
	logger    *slog.Logger
}

// Option configures an LLMRescorer.
type Option func(*LLMRescorer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *LLMRescorer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFallbackObserver sets the receiver of fallback events.
func WithFallbackObserver(o FallbackObserver) Option {
	return func(r *LLMRescorer) { r.observer = o }
}

// NewLLMRescorer creates a rescorer. With a nil client every batch is scored
// synthetically.
func NewLLMRescorer(client llm.ChatCompleter, cfg Config, opts ...Option) *LLMRescorer {
	cfg = cfg.normalize()
	r := &LLMRescorer{
		client:    client,
		cfg:       cfg,
		synthetic: NewSyntheticScorer(cfg.Synthetic),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode returns the effective scoring mode.
func (r *LLMRescorer) Mode() Mode {
	if r.client == nil {
		return ModeSynthetic
	}
	return r.cfg.Mode
}

// Rescore scores every record and returns a copy sorted by LLMScore
// descending, ties by chunk id. Model failures never surface: the affected
// batch gets synthetic scores instead. The only error is ctx's.
func (r *LLMRescorer) Rescore(ctx context.Context, query string, records []models.MergedRecord) ([]models.MergedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]models.MergedRecord, len(records))
	copy(out, records)
	if len(out) == 0 {
		return out, nil
	}

	if r.Mode() == ModeSynthetic {
		for i := range out {
			out[i].LLMScore = models.Float(r.synthetic.Score(query, out[i].Text))
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Concurrency)
		for start := 0; start < len(out); start += r.cfg.BatchSize {
			batch := out[start:min(start+r.cfg.BatchSize, len(out))]
			g.Go(func() error {
				return r.scoreBatch(gctx, query, batch)
			})
		}
		if err := g.Wait(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
	}

	sortByLLM(out)
	return out, nil
}

// scoreBatch fills LLMScore for one batch in place.
func (r *LLMRescorer) scoreBatch(ctx context.Context, query string, batch []models.MergedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	scores, err := r.askModel(ctx, query, batch)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		reason := FallbackError
		if errors.Is(err, ErrMalformedOutput) {
			reason = FallbackMalformed
		}
		r.logger.Warn("llm rescoring failed, using synthetic scores",
			"reason", reason,
			"batch_size", len(batch),
			"error", err)
		if r.observer != nil {
			r.observer.ObserveFallback(reason, len(batch))
		}

		for i := range batch {
			batch[i].LLMScore = models.Float(r.synthetic.Score(query, batch[i].Text))
		}
		return nil
	}

	for i := range batch {
		batch[i].LLMScore = models.Float(scores[i])
	}
	return nil
}

func (r *LLMRescorer) askModel(ctx context.Context, query string, batch []models.MergedRecord) ([]float64, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	passages := make([]string, len(batch))
	for i, rec := range batch {
		passages[i] = rec.Text
	}

	reply, err := r.client.Complete(ctx, BuildPrompt(query, passages), llm.Options{
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	scores, err := ParseScores(reply, len(batch))
	if err != nil {
		r.logger.Debug("unparseable rescoring reply", "reply", reply)
		return nil, err
	}
	return scores, nil
}

func sortByLLM(records []models.MergedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		si, sj := models.Value(records[i].LLMScore), models.Value(records[j].LLMScore)
		if si != sj {
			return si > sj
		}
		return records[i].ChunkID < records[j].ChunkID
	})
}
