package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/chunker"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/db"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/embedder"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/llm"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/metrics"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/rerank"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/resilience"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// Health status values.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// Components are the external dependencies of a Daemon. LLM may be nil, in
// which case rescoring always uses the synthetic scorer.
type Components struct {
	Store    Store
	Embedder embedder.Embedder
	LLM      llm.ChatCompleter
}

// HealthReport describes the reachability of the store and the embedder.
type HealthReport struct {
	Status      string     `json:"status"`
	Store       string     `json:"store"`
	Embedder    string     `json:"embedder"`
	RescoreMode string     `json:"rescore_mode"`
	Model       string     `json:"model"`
	Index       IndexStats `json:"index"`
	Uptime      string     `json:"uptime"`
}

// Daemon owns the store, embedder, search pipeline and indexer for one data
// directory, and serves them over HTTP when Run is called.
type Daemon struct {
	cfg     *config.Config
	dataDir string
	logger  *slog.Logger

	store     Store
	embedder  embedder.Embedder
	chunker   *chunker.TextChunker
	rescorer  *rerank.LLMRescorer
	pipeline  *search.Pipeline
	indexer   *Indexer
	collector *metrics.Collector
	started   time.Time
}

// New validates cfg, builds the providers it names and opens the store.
func New(ctx context.Context, cfg *config.Config, dataDir string, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.ValidateOrError(cfg); err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(cfg.Resilience, logger)

	emb, err := embedder.NewFromConfig(cfg.EmbedderConfig(), executor)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	rc, err := cfg.RerankConfig()
	if err != nil {
		return nil, err
	}
	var chat llm.ChatCompleter
	if rc.Mode == rerank.ModeLLM {
		base, err := llm.New(cfg.LLMClientConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create llm client: %w", err)
		}
		chat = llm.NewResilientClient(base, executor, "llm.rescore")
	}

	store, err := OpenStore(ctx, cfg, dataDir, logger)
	if err != nil {
		return nil, err
	}

	d, err := Assemble(cfg, dataDir, Components{Store: store, Embedder: emb, LLM: chat}, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	d.indexer.LoadStats(ctx)
	return d, nil
}

// Assemble wires already constructed components into a Daemon.
func Assemble(cfg *config.Config, dataDir string, c Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if c.Store == nil || c.Embedder == nil {
		return nil, fmt.Errorf("store and embedder are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := cfg.SearchDefaults(); err != nil {
		return nil, err
	}
	rc, err := cfg.RerankConfig()
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	if cached, ok := c.Embedder.(*embedder.CachedEmbedder); ok {
		collector.RegisterEmbeddingCache(cached)
	}

	chat := c.LLM
	if rc.Mode == rerank.ModeSynthetic {
		chat = nil
	}
	rescorer := rerank.NewLLMRescorer(chat, rc,
		rerank.WithLogger(logger),
		rerank.WithFallbackObserver(collector))

	pipeline := search.NewPipeline(c.Embedder, c.Store, c.Store,
		search.WithRescorer(rescorer),
		search.WithObserver(collector),
		search.WithLogger(logger))

	chk := chunker.New(cfg.ChunkerConfig(), logger)
	indexer := NewIndexer(c.Store, c.Embedder, chk, IndexerConfig{
		BatchSize: cfg.Embedding.BatchSize,
		Index:     cfg.Index,
		Provider: db.ProviderInfo{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Dimensions(),
		},
		Observer: collector,
	}, logger)

	return &Daemon{
		cfg:       cfg,
		dataDir:   dataDir,
		logger:    logger,
		store:     c.Store,
		embedder:  c.Embedder,
		chunker:   chk,
		rescorer:  rescorer,
		pipeline:  pipeline,
		indexer:   indexer,
		collector: collector,
		started:   time.Now(),
	}, nil
}

func (d *Daemon) Config() *config.Config { return d.cfg }
func (d *Daemon) DataDir() string { return d.dataDir }
func (d *Daemon) Logger() *slog.Logger { return d.logger }
func (d *Daemon) Store() Store { return d.store }
func (d *Daemon) Chunker() *chunker.TextChunker { return d.chunker }
func (d *Daemon) Indexer() *Indexer { return d.indexer }
func (d *Daemon) Metrics() *metrics.Collector { return d.collector }
func (d *Daemon) RescoreMode() rerank.Mode { return d.rescorer.Mode() }
func (d *Daemon) Pipeline() *search.Pipeline { return d.pipeline }

// SearchDefaults returns the configured pipeline parameters. Callers copy and
// adjust them per request.
func (d *Daemon) SearchDefaults() search.Config {
	cfg, err := d.cfg.SearchDefaults()
	if err != nil {
		// Assemble already parsed the same values.
		return search.DefaultConfig()
	}
	return cfg
}

// Search runs the retrieval pipeline with cfg.
func (d *Daemon) Search(ctx context.Context, query string, cfg search.Config) (*search.Response, error) {
	return d.pipeline.Search(ctx, query, cfg)
}

// Ingest chunks, embeds and stores one document.
func (d *Daemon) Ingest(ctx context.Context, req IngestRequest) (*models.Document, error) {
	return d.indexer.Ingest(ctx, req)
}

// ListDocuments returns every stored document.
func (d *Daemon) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	return d.store.ListDocuments(ctx)
}

// GetDocument returns one stored document.
func (d *Daemon) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return d.store.GetDocument(ctx, id)
}

// DeleteDocument removes a document and its chunks.
func (d *Daemon) DeleteDocument(ctx context.Context, id string) error {
	return d.indexer.DeleteDocument(ctx, id)
}

// Health pings the store and the embedder. The daemon is degraded, not down,
// when either fails, since the pipeline can still answer from the other
// ranker.
func (d *Daemon) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:      HealthOK,
		Store:       HealthOK,
		Embedder:    HealthOK,
		RescoreMode: string(d.rescorer.Mode()),
		Model:       d.embedder.ModelName(),
		Index:       d.indexer.Stats(),
		Uptime:      time.Since(d.started).Round(time.Second).String(),
	}
	if err := d.store.Ping(ctx); err != nil {
		d.logger.Warn("store health check failed", "error", err)
		report.Store = err.Error()
		report.Status = HealthDegraded
	}
	if err := d.embedder.Health(ctx); err != nil {
		d.logger.Warn("embedder health check failed", "error", err)
		report.Embedder = err.Error()
		report.Status = HealthDegraded
	}
	return report
}

// Run listens on the configured address and serves handler until ctx is
// done.
func (d *Daemon) Run(ctx context.Context, handler http.Handler) error {
	addr := d.cfg.Server.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return d.Serve(ctx, ln, handler)
}

// Serve serves handler on ln until ctx is done, then shuts the server down
// gracefully within the configured shutdown timeout.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       d.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      d.cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		d.logger.Info("starting API server", "addr", ln.Addr().String())
		serverErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
		d.logger.Info("shutting down API server")
	}

	timeout := d.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("server shutdown error", "error", err)
		return err
	}
	return nil
}

// Close releases the store.
func (d *Daemon) Close() error {
	if err := d.store.Close(); err != nil {
		d.logger.Warn("database close error", "error", err)
		return err
	}
	return nil
}
