package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

// Pipeline runs hybrid retrieval: semantic and keyword lookups in parallel,
// then merge, rerank, optional LLM rescoring, relevance filter and finalize.
type Pipeline struct {
	embedder QueryEmbedder
	vectors  VectorStore
	text     TextIndex
	rescorer Rescorer
	observer Observer
	logger   *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRescorer sets the rescorer used when Config.Rescore is true.
func WithRescorer(r Rescorer) PipelineOption {
	return func(p *Pipeline) { p.rescorer = r }
}

// WithObserver sets the receiver of stage timings and search outcomes.
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline. A nil embedder or vector store makes the
// semantic side unavailable, a nil text index the keyword side; searches then
// run degraded rather than failing.
func NewPipeline(emb QueryEmbedder, vectors VectorStore, text TextIndex, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		embedder: emb,
		vectors:  vectors,
		text:     text,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// retrieval holds results from parallel search operations.
type retrieval struct {
	semantic      []models.ChunkHit
	keyword       []models.ChunkHit
	semanticErr   error
	keywordErr    error
	semanticTime  time.Duration
	keywordTime   time.Duration
	keywordQuery  KeywordQuery
	candidateSize int
}

// Search answers query with at most cfg.TopK final results.
//
// The only errors returned are validation errors (matching
// ErrInvalidConfiguration) and ctx errors. Source failures are reported in
// Response.Failures and Response.Status.
func (p *Pipeline) Search(ctx context.Context, query string, cfg Config) (*Response, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := NewStrategy(cfg.RerankStrategy, cfg.StrategyParams())
	if err != nil {
		return nil, err
	}
	filter := NewFilter(cfg.RelevanceFilter, cfg.FilterThreshold())

	resp := &Response{
		Query:     query,
		Results:   []models.FinalResult{},
		Strategy:  strategy.Name(),
		Filter:    filter.Name(),
		TimingsMs: make(map[string]float64),
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return p.finish(resp, start), nil
	}

	// Run semantic and keyword searches in parallel
	r := p.retrieve(ctx, trimmed, cfg)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.recordStage(resp, StageSemantic, r.semanticTime)
	p.recordStage(resp, StageKeyword, r.keywordTime)

	if r.semanticErr != nil {
		resp.Failures = append(resp.Failures, &SourceError{Source: SourceSemantic, Err: r.semanticErr})
		p.logger.Warn("semantic search failed, continuing with keyword results", "error", r.semanticErr)
	}
	if r.keywordErr != nil {
		resp.Failures = append(resp.Failures, &SourceError{Source: SourceKeyword, Err: r.keywordErr})
		p.logger.Warn("keyword search failed, continuing with semantic results", "error", r.keywordErr)
	}
	if r.semanticErr != nil && r.keywordErr != nil {
		return p.finish(resp, start), nil
	}

	stageStart := time.Now()
	// The pool is bounded by the ranker limits; cutting it here would use
	// weighted-sum order for every strategy.
	merged := Merge(r.semantic, r.keyword, cfg.SemanticWeight, cfg.KeywordWeight, 0)
	p.recordStage(resp, StageMerge, time.Since(stageStart))

	stageStart = time.Now()
	reranked := strategy.Rerank(merged)
	p.recordStage(resp, StageRerank, time.Since(stageStart))

	if cfg.Rescore {
		if p.rescorer == nil {
			p.logger.Warn("rescoring requested but no rescorer is configured")
		} else if len(reranked) > 0 {
			stageStart = time.Now()
			rescored, err := p.rescorer.Rescore(ctx, trimmed, reranked)
			if err != nil {
				return nil, err
			}
			reranked = rescored
			resp.Rescored = true
			p.recordStage(resp, StageRescore, time.Since(stageStart))
		}
	}

	stageStart = time.Now()
	filtered := filter.Filter(reranked)
	p.recordStage(resp, StageFilter, time.Since(stageStart))

	finalCfg := cfg.FinalizeConfig()
	if resp.Rescored {
		// keep the LLM order
		finalCfg.SortByScore = false
	}
	stageStart = time.Now()
	resp.Results = NewFinalizer(finalCfg, p.logger).Finalize(filtered)
	p.recordStage(resp, StageFinalize, time.Since(stageStart))

	p.logger.Debug("hybrid search complete",
		"query", trimmed,
		"fts_query", r.keywordQuery.FTS5(),
		"semantic_hits", len(r.semantic),
		"keyword_hits", len(r.keyword),
		"merged", len(merged),
		"filtered", len(filtered),
		"results", len(resp.Results),
		"strategy", string(strategy.Name()))

	return p.finish(resp, start), nil
}

// retrieve runs semantic and keyword searches concurrently.
func (p *Pipeline) retrieve(ctx context.Context, query string, cfg Config) retrieval {
	r := retrieval{
		keywordQuery:  ParseKeywordQuery(query),
		candidateSize: cfg.CandidateLimit(),
	}

	var wg sync.WaitGroup

	// Semantic search goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		began := time.Now()
		r.semantic, r.semanticErr = p.searchSemantic(ctx, query, cfg, r.candidateSize)
		r.semanticTime = time.Since(began)
	}()

	// Keyword search goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		began := time.Now()
		r.keyword, r.keywordErr = p.searchKeyword(ctx, r.keywordQuery, cfg, r.candidateSize)
		r.keywordTime = time.Since(began)
	}()

	wg.Wait()
	return r
}

var (
	errNoVectorStore = errors.New("no vector store configured")
	errNoTextIndex   = errors.New("no text index configured")
	errEmptyVector   = errors.New("embedder returned an empty vector")
)

// searchSemantic embeds the query and performs vector similarity search.
func (p *Pipeline) searchSemantic(ctx context.Context, query string, cfg Config, limit int) ([]models.ChunkHit, error) {
	if p.embedder == nil || p.vectors == nil {
		return nil, errNoVectorStore
	}

	embedding, err := p.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(embedding) == 0 {
		return nil, errEmptyVector
	}

	return p.vectors.SearchVectors(ctx, embedding, VectorQuery{
		TopK:       limit,
		Threshold:  cfg.SemanticThreshold,
		DocumentID: cfg.DocumentID,
	})
}

// searchKeyword performs full-text search.
func (p *Pipeline) searchKeyword(ctx context.Context, q KeywordQuery, cfg Config, limit int) ([]models.ChunkHit, error) {
	if p.text == nil {
		return nil, errNoTextIndex
	}
	// Skip if no useful query terms
	if q.IsEmpty() {
		return []models.ChunkHit{}, nil
	}

	return p.text.SearchText(ctx, q, TextQuery{
		TopK:       limit,
		DocumentID: cfg.DocumentID,
	})
}

func (p *Pipeline) recordStage(resp *Response, stage string, d time.Duration) {
	resp.TimingsMs[stage] = milliseconds(d)
	if p.observer != nil {
		p.observer.ObserveStage(stage, d)
	}
}

// finish derives the status and total time.
func (p *Pipeline) finish(resp *Response, start time.Time) *Response {
	resp.TotalResults = len(resp.Results)

	switch {
	case len(resp.Failures) >= 2:
		resp.Status = StatusUnavailable
	case len(resp.Failures) == 1:
		resp.Status = StatusDegraded
	case len(resp.Results) == 0:
		resp.Status = StatusEmpty
	default:
		resp.Status = StatusOK
	}

	elapsed := time.Since(start)
	resp.SearchTimeMs = elapsed.Milliseconds()
	// Ensure at least 1ms is reported if there was any elapsed time
	if resp.SearchTimeMs == 0 && elapsed > 0 {
		resp.SearchTimeMs = 1
	}

	if p.observer != nil {
		p.observer.ObserveSearch(string(resp.Status), resp.TotalResults)
	}
	return resp
}
