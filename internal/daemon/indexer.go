package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/chunker"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/db"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/embedder"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/pathutil"
)

var (
	// ErrEmptyDocument is returned when a document has no text to chunk.
	ErrEmptyDocument = errors.New("document has no text")
	// ErrProviderChanged is returned when the store holds vectors from a
	// different embedding model than the one configured.
	ErrProviderChanged = errors.New("embedding provider changed since the index was built")
)

// IngestObserver is told about every ingestion attempt.
type IngestObserver interface {
	ObserveIngest(err error, chunks int)
}

// IndexStats contains statistics about the indexer state
type IndexStats struct {
	TotalDocuments int64     `json:"total_documents"`
	TotalChunks    int64     `json:"total_chunks"`
	LastIndexedAt  time.Time `json:"last_indexed_at,omitempty"`
	IndexingActive bool      `json:"indexing_active"`
}

// IndexerConfig configures an Indexer.
type IndexerConfig struct {
	// BatchSize is the number of chunks per embedding request.
	BatchSize int
	Index     config.IndexConfig
	// Provider is recorded in stores that track the embedding model.
	Provider db.ProviderInfo
	Observer IngestObserver
}

// IngestRequest is one document to chunk, embed and store.
type IngestRequest struct {
	Name     string
	Source   string
	Text     string
	Metadata map[string]string
}

// IndexOptions controls IndexDirectory.
type IndexOptions struct {
	// Force re-ingests files that have not changed.
	Force bool
	// Prune deletes documents whose files disappeared from the directory.
	Prune bool
	// OnProgress is called after every file.
	OnProgress func(ProgressSnapshot)
}

// IndexSummary reports the outcome of IndexDirectory.
type IndexSummary struct {
	Root      string        `json:"root"`
	Indexed   int           `json:"indexed"`
	Unchanged int           `json:"unchanged"`
	Deleted   int           `json:"deleted"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Chunks    int           `json:"chunks"`
	Duration  time.Duration `json:"duration"`
	Errors    []string      `json:"errors,omitempty"`
}

// Indexer turns text into stored chunks: it chunks documents, embeds the
// chunks in batches and writes everything to the store in one transaction
// per document.
type Indexer struct {
	store    Store
	embedder embedder.Embedder
	chunker  *chunker.TextChunker
	cfg      IndexerConfig
	logger   *slog.Logger

	stats    IndexStats
	statsMu  sync.RWMutex
	indexing atomic.Int32
}

// NewIndexer creates a new Indexer instance
func NewIndexer(store Store, emb embedder.Embedder, chk *chunker.TextChunker, cfg IndexerConfig, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &Indexer{
		store:    store,
		embedder: emb,
		chunker:  chk,
		cfg:      cfg,
		logger:   logger,
	}
}

// Ingest chunks, embeds and stores one document. A document with the same
// source (or name, when there is no source) replaces the earlier copy.
func (i *Indexer) Ingest(ctx context.Context, req IngestRequest) (*models.Document, error) {
	doc, chunks, err := i.ingest(ctx, req)
	if i.cfg.Observer != nil {
		i.cfg.Observer.ObserveIngest(err, len(chunks))
	}
	if err != nil {
		return nil, err
	}
	i.refreshStats(ctx, true)
	return doc, nil
}

func (i *Indexer) ingest(ctx context.Context, req IngestRequest) (*models.Document, []*models.Chunk, error) {
	i.indexing.Add(1)
	defer i.indexing.Add(-1)

	if strings.TrimSpace(req.Text) == "" {
		return nil, nil, ErrEmptyDocument
	}

	doc := &models.Document{
		Name:     strings.TrimSpace(req.Name),
		Source:   req.Source,
		Metadata: req.Metadata,
	}
	doc.SetDefaults()
	if err := doc.IsValid(); err != nil {
		return nil, nil, fmt.Errorf("invalid document: %w", err)
	}

	if err := i.checkProvider(ctx); err != nil {
		return nil, nil, err
	}

	chunks := i.chunker.ChunkDocument(doc, req.Text)
	if len(chunks) == 0 {
		return nil, nil, ErrEmptyDocument
	}

	texts := make([]string, len(chunks))
	for idx, c := range chunks {
		texts[idx] = c.Content
	}

	start := time.Now()
	vectors, err := embedder.EmbedBatches(ctx, i.embedder, texts, i.cfg.BatchSize)
	if err != nil {
		return nil, chunks, fmt.Errorf("failed to embed %s: %w", doc.Name, err)
	}
	embedTime := time.Since(start)

	if err := i.store.InsertDocument(ctx, doc, chunks, vectors); err != nil {
		return nil, chunks, fmt.Errorf("failed to store %s: %w", doc.Name, err)
	}

	if tracker, ok := i.store.(providerTracker); ok && i.cfg.Provider.Model != "" {
		if err := tracker.SetProviderInfo(ctx, i.cfg.Provider); err != nil {
			i.logger.Warn("failed to record embedding provider", "error", err)
		}
	}

	i.logger.Debug("ingested document",
		"document_id", doc.ID,
		"name", doc.Name,
		"chunks", len(chunks),
		"embed_ms", embedTime.Milliseconds())
	return doc, chunks, nil
}

// checkProvider refuses to mix vectors from different embedding models.
func (i *Indexer) checkProvider(ctx context.Context) error {
	tracker, ok := i.store.(providerTracker)
	if !ok || i.cfg.Provider.Model == "" {
		return nil
	}
	changed, err := tracker.ProviderChanged(ctx, i.cfg.Provider)
	if err != nil {
		return fmt.Errorf("failed to check embedding provider: %w", err)
	}
	if changed {
		return fmt.Errorf("%w: configured %s/%s (%d dimensions); delete the data directory and re-index",
			ErrProviderChanged, i.cfg.Provider.Provider, i.cfg.Provider.Model, i.cfg.Provider.Dimensions)
	}
	return nil
}

// IndexFile ingests one file. Its name is the path relative to root.
func (i *Indexer) IndexFile(ctx context.Context, root, path string) (*models.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if limit := i.cfg.Index.MaxFileSize; limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%s exceeds max file size (%d > %d bytes)", path, info.Size(), limit)
	}

	content, err := readFileWithRetry(abs, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := chunker.CheckContent(content, abs); err != nil {
		return nil, fmt.Errorf("skipping %s: %w", path, err)
	}

	return i.Ingest(ctx, IngestRequest{
		Name:   pathutil.DocumentName(root, abs),
		Source: abs,
		Text:   string(content),
		Metadata: map[string]string{
			"path":        filepath.ToSlash(abs),
			"modified_at": info.ModTime().UTC().Format(time.RFC3339),
		},
	})
}

// IndexDirectory ingests every matching file under root that is new or
// changed since it was last stored. Failures of single files are logged and
// counted; only a failed scan or a done ctx aborts the run.
func (i *Indexer) IndexDirectory(ctx context.Context, root string, opts IndexOptions) (*IndexSummary, error) {
	start := time.Now()

	scanner, err := NewScanner(root, i.cfg.Index)
	if err != nil {
		return nil, err
	}
	existing, err := i.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	scan, err := scanner.Scan(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	todo := append(append([]string{}, scan.Added...), scan.Modified...)
	summary := &IndexSummary{Root: scanner.Root()}
	if opts.Force {
		todo = append(todo, scan.Unchanged...)
	} else {
		summary.Unchanged = len(scan.Unchanged)
	}

	i.logger.Info("indexing directory",
		"root", scanner.Root(),
		"added", len(scan.Added),
		"modified", len(scan.Modified),
		"unchanged", len(scan.Unchanged),
		"deleted", len(scan.Deleted))

	if opts.Prune {
		for _, doc := range scan.Deleted {
			if err := i.store.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, models.ErrDocumentNotFound) {
				i.logger.Warn("failed to delete missing document", "document_id", doc.ID, "source", doc.Source, "error", err)
				continue
			}
			summary.Deleted++
		}
	}

	progress := NewIndexProgress(len(todo))
	for _, path := range todo {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		fileStart := time.Now()
		doc, err := i.IndexFile(ctx, scanner.Root(), path)
		chunks := 0
		switch {
		case err != nil && ctx.Err() != nil:
			return summary, ctx.Err()
		case chunker.IsSkippable(err):
			i.logger.Debug("skipped file", "path", path, "reason", err)
			summary.Skipped++
			err = nil
		case err != nil:
			i.logger.Warn("failed to index file", "path", path, "error", err)
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", path, err))
		default:
			chunks = doc.ChunkCount
			summary.Indexed++
			summary.Chunks += chunks
		}

		progress.Record(chunks, time.Since(fileStart), err)
		if opts.OnProgress != nil {
			opts.OnProgress(progress.Snapshot())
		}
	}

	summary.Duration = time.Since(start)
	i.refreshStats(ctx, summary.Indexed > 0 || summary.Deleted > 0)

	i.logger.Info("indexing complete",
		"indexed", summary.Indexed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"chunks", summary.Chunks,
		"duration_ms", summary.Duration.Milliseconds())
	return summary, nil
}

// DeleteDocument removes a document and its chunks.
func (i *Indexer) DeleteDocument(ctx context.Context, id string) error {
	if err := i.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	i.refreshStats(ctx, true)
	return nil
}

// Stats returns the current indexer statistics
func (i *Indexer) Stats() IndexStats {
	i.statsMu.RLock()
	defer i.statsMu.RUnlock()

	stats := i.stats
	stats.IndexingActive = i.indexing.Load() > 0
	return stats
}

// LoadStats reads the document and chunk counts from the store without
// touching LastIndexedAt.
func (i *Indexer) LoadStats(ctx context.Context) {
	i.refreshStats(ctx, false)
}

func (i *Indexer) refreshStats(ctx context.Context, touched bool) {
	docs, err := i.store.ListDocuments(ctx)
	if err != nil {
		i.logger.Warn("failed to refresh index stats", "error", err)
		return
	}
	var chunks int64
	for _, d := range docs {
		chunks += int64(d.ChunkCount)
	}

	i.statsMu.Lock()
	i.stats.TotalDocuments = int64(len(docs))
	i.stats.TotalChunks = chunks
	if touched {
		i.stats.LastIndexedAt = time.Now()
	}
	i.statsMu.Unlock()
}
