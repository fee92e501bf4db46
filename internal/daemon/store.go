package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/db"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/pgstore"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// Store is the document store behind both rankers. The sqlite and Postgres
// stores implement it.
type Store interface {
	search.VectorStore
	search.TextIndex

	InsertDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk, embeddings [][]float32) error
	DeleteDocument(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*db.DB)(nil)
	_ Store = (*pgstore.Store)(nil)
)

// providerTracker is implemented by stores that remember which embedding
// model produced their vectors.
type providerTracker interface {
	ProviderChanged(ctx context.Context, info db.ProviderInfo) (bool, error)
	SetProviderInfo(ctx context.Context, info db.ProviderInfo) error
}

// OpenStore opens the store selected by cfg.Store and prepares its schema.
func OpenStore(ctx context.Context, cfg *config.Config, dataDir string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dims := cfg.Dimensions()

	switch cfg.Store.Driver {
	case config.StoreSQLite, "":
		database, err := db.Open(dataDir, dims)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Debug("opened sqlite store", "path", database.Path(), "dimensions", dims)
		return database, nil

	case config.StorePostgres:
		store, err := pgstore.Open(ctx, cfg.Store.PostgresDSN, dims)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		logger.Debug("opened postgres store", "dimensions", dims)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
