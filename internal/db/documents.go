package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
)

var (
	ErrDocumentNotFound = models.ErrDocumentNotFound
	ErrChunkNotFound    = models.ErrChunkNotFound
)

// InsertDocument stores doc with its chunks and their embeddings in one
// transaction. Chunks previously stored for the same document id are
// replaced. embeddings[i] belongs to chunks[i].
func (db *DB) InsertDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk, embeddings [][]float32) error {
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
		if len(emb) != db.dimensions {
			return fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(emb), db.dimensions)
		}
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.ChunkCount = len(chunks)

	docMeta, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteDocumentChunks(ctx, tx, doc.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, name, source, chunk_count, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			source = excluded.source,
			chunk_count = excluded.chunk_count,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Name, doc.Source, doc.ChunkCount, docMeta, doc.CreatedAt, doc.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
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

		meta, err := encodeMetadata(chunk.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, chunk_index, content, content_hash, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content, chunk.ContentHash, meta, chunk.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
		}

		serialized, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return fmt.Errorf("failed to serialize embedding for chunk %s: %w", chunk.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunk_embeddings (chunk_id, embedding) VALUES (?, ?)
		`, chunk.ID, serialized); err != nil {
			return fmt.Errorf("failed to insert embedding for chunk %s: %w", chunk.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks_fts (chunk_id, content, document_name) VALUES (?, ?, ?)
		`, chunk.ID, chunk.Content, doc.Name); err != nil {
			return fmt.Errorf("failed to insert FTS entry for chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// deleteDocumentChunks removes a document's chunks together with their
// vector and FTS rows, which do not cascade.
func deleteDocumentChunks(ctx context.Context, tx *sql.Tx, documentID string) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating chunk IDs: %w", err)
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_embeddings WHERE chunk_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete embedding: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete FTS entry: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// DeleteDocument removes a document and everything indexed for it.
func (db *DB) DeleteDocument(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteDocumentChunks(ctx, tx, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrDocumentNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// GetDocument returns a document by id, or ErrDocumentNotFound.
func (db *DB) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, source, chunk_count, metadata, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns every document, most recently updated first.
func (db *DB) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := db.Query(ctx, `
		SELECT id, name, source, chunk_count, metadata, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []*models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

// DocumentCount returns the number of stored documents.
func (db *DB) DocumentCount(ctx context.Context) (int64, error) {
	var count int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// ChunkCount returns the number of stored chunks.
func (db *DB) ChunkCount(ctx context.Context) (int64, error) {
	var count int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// GetChunk returns a chunk by id, or ErrChunkNotFound.
func (db *DB) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	var chunk models.Chunk
	var meta sql.NullString
	err := db.QueryRow(ctx, `
		SELECT id, document_id, chunk_index, content, content_hash, metadata, created_at
		FROM chunks WHERE id = ?
	`, id).Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Content, &chunk.ContentHash, &meta, &chunk.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChunkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	if chunk.Metadata, err = decodeChunkMetadata(meta); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// GetDocumentChunks returns a document's chunks in chunk order.
func (db *DB) GetDocumentChunks(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	rows, err := db.Query(ctx, `
		SELECT id, document_id, chunk_index, content, content_hash, metadata, created_at
		FROM chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	chunks := []*models.Chunk{}
	for rows.Next() {
		var chunk models.Chunk
		var meta sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Content, &chunk.ContentHash, &meta, &chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if chunk.Metadata, err = decodeChunkMetadata(meta); err != nil {
			return nil, err
		}
		chunks = append(chunks, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}
	return chunks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var source, meta sql.NullString
	if err := row.Scan(&doc.ID, &doc.Name, &source, &doc.ChunkCount, &meta, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Source = source.String
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("invalid document metadata: %w", err)
		}
	}
	return &doc, nil
}

func encodeMetadata[M ~map[string]V, V any](m M) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeChunkMetadata(meta sql.NullString) (map[string]any, error) {
	if !meta.Valid || meta.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(meta.String), &m); err != nil {
		return nil, fmt.Errorf("invalid chunk metadata: %w", err)
	}
	return m, nil
}
