// Package pgstore is the Postgres document store: pgvector embeddings for
// semantic search and a generated tsvector column for keyword search.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// schemaLockID serialises schema bootstrap across concurrently starting
// processes.
const schemaLockID int64 = 2026101701

// TextSearchConfig is the Postgres text search configuration used for both
// the stored tsvector and incoming queries.
const TextSearchConfig = "english"

var (
	_ search.VectorStore = (*Store)(nil)
	_ search.TextIndex   = (*Store)(nil)
)

type Store struct {
	db         *sql.DB
	dimensions int
}

// New wraps an open connection pool.
func New(db *sql.DB, dimensions int) *Store {
	return &Store{db: db, dimensions: dimensions}
}

// Open connects to dsn with the pgx driver and checks the connection.
func Open(ctx context.Context, dsn string, dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("invalid embedding dimensions: %d", dimensions)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return New(db, dimensions), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dimensions returns the embedding dimensions of the chunk table.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// EnsureSchema creates the extension, tables and indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	query := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS rag_documents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	source TEXT,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS rag_chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES rag_documents(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	content TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	metadata JSONB,
	embedding vector(%d) NOT NULL,
	content_tsv tsvector GENERATED ALWAYS AS (to_tsvector('%s', content)) STORED,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rag_chunks_document ON rag_chunks(document_id, chunk_index);
CREATE INDEX IF NOT EXISTS idx_rag_chunks_embedding ON rag_chunks USING hnsw (embedding vector_cosine_ops);
CREATE INDEX IF NOT EXISTS idx_rag_chunks_tsv ON rag_chunks USING gin (content_tsv);
`, s.dimensions, TextSearchConfig)

	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// InsertDocument stores doc with its chunks and embeddings in one
// transaction, replacing chunks stored earlier under the same id.
func (s *Store) InsertDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk, embeddings [][]float32) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	if err := doc.IsValid(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk count (%d) and embedding count (%d) must match", len(chunks), len(embeddings))
	}
	for i, emb := range embeddings {
		if len(emb) != s.dimensions {
			return fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(emb), s.dimensions)
		}
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.ChunkCount = len(chunks)

	docMeta, err := marshalJSON(doc.Metadata)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO rag_documents (id, name, source, chunk_count, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	source = EXCLUDED.source,
	chunk_count = EXCLUDED.chunk_count,
	metadata = EXCLUDED.metadata,
	updated_at = EXCLUDED.updated_at`,
		doc.ID, doc.Name, doc.Source, doc.ChunkCount, docMeta, doc.CreatedAt, doc.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rag_chunks WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("delete previous chunks: %w", err)
	}

	for i, chunk := range chunks {
		chunk.DocumentID = doc.ID
		if chunk.ID == "" || chunk.ContentHash == "" {
			chunk.SetHashes()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		if err := chunk.IsValid(); err != nil {
			return fmt.Errorf("invalid chunk %d: %w", chunk.ChunkIndex, err)
		}

		meta, err := marshalJSON(chunk.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO rag_chunks (id, document_id, chunk_index, content, content_hash, metadata, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content, chunk.ContentHash, meta,
			pgvector.NewVector(embeddings[i]), chunk.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document tx: %w", err)
	}
	return nil
}

// DeleteDocument removes a document; its chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rag_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrDocumentNotFound
	}
	return nil
}

const documentColumns = `id, name, source, chunk_count, metadata, created_at, updated_at`

// GetDocument returns a document by id or models.ErrDocumentNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM rag_documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns every document, most recently updated first.
func (s *Store) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM rag_documents ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []*models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var source sql.NullString
	var meta []byte
	if err := row.Scan(&doc.ID, &doc.Name, &source, &doc.ChunkCount, &meta, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Source = source.String
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decode document metadata: %w", err)
		}
	}
	return &doc, nil
}

func marshalJSON[M ~map[string]V, V any](m M) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}
