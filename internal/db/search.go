package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

var (
	_ search.VectorStore = (*DB)(nil)
	_ search.TextIndex   = (*DB)(nil)
)

// SearchVectors returns the chunks nearest to vec. Scores are cosine
// similarities (1 - cosine distance) clamped to [0, 1].
func (db *DB) SearchVectors(ctx context.Context, vec []float32, opts search.VectorQuery) ([]models.ChunkHit, error) {
	if opts.TopK <= 0 {
		return []models.ChunkHit{}, nil
	}
	if len(vec) != db.dimensions {
		return nil, fmt.Errorf("query embedding has %d dimensions, expected %d", len(vec), db.dimensions)
	}

	serialized, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query embedding: %w", err)
	}

	knn := `SELECT chunk_id, distance FROM chunk_embeddings WHERE embedding MATCH ? AND k = ?`
	args := []any{serialized, opts.TopK}

	if opts.DocumentID != "" {
		ids, err := db.documentChunkIDs(ctx, opts.DocumentID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []models.ChunkHit{}, nil
		}
		placeholders := make([]string, len(ids))
		for i, id := range ids {
			placeholders[i] = "?"
			args = append(args, id)
		}
		knn += fmt.Sprintf(" AND chunk_id IN (%s)", strings.Join(placeholders, ", "))
	}

	rows, err := db.Query(ctx, fmt.Sprintf(`
		WITH knn AS (%s)
		SELECT c.id, c.document_id, d.name, c.chunk_index, c.content, c.metadata, c.created_at, knn.distance
		FROM knn
		JOIN chunks c ON c.id = knn.chunk_id
		JOIN documents d ON d.id = c.document_id
		ORDER BY knn.distance
	`, knn), args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}
	defer rows.Close()

	return scanHits(rows, func(distance float64) (float64, bool) {
		similarity := clampUnit(1 - distance)
		return similarity, similarity >= opts.Threshold
	})
}

// SearchText runs q against the FTS5 index. bm25 is negated so higher is
// better, then mapped into [0, 1) with s/(1+s).
func (db *DB) SearchText(ctx context.Context, q search.KeywordQuery, opts search.TextQuery) ([]models.ChunkHit, error) {
	match := q.FTS5()
	if match == "" || opts.TopK <= 0 {
		return []models.ChunkHit{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := `
		SELECT c.id, c.document_id, d.name, c.chunk_index, c.content, c.metadata, c.created_at, -bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ?`
	args := []any{match}
	if opts.DocumentID != "" {
		query += ` AND c.document_id = ?`
		args = append(args, opts.DocumentID)
	}
	query += ` ORDER BY score DESC LIMIT ?`
	args = append(args, opts.TopK)

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to search FTS: %w", err)
	}
	defer rows.Close()

	return scanHits(rows, func(raw float64) (float64, bool) {
		if raw < 0 {
			raw = 0
		}
		return raw / (1 + raw), true
	})
}

func (db *DB) documentChunkIDs(ctx context.Context, documentID string) ([]string, error) {
	rows, err := db.Query(ctx, `SELECT id FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to filter chunks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk IDs: %w", err)
	}
	return ids, nil
}

// scanHits reads hit rows whose last column is a raw score; score maps it
// and reports whether the row is kept.
func scanHits(rows *sql.Rows, score func(raw float64) (float64, bool)) ([]models.ChunkHit, error) {
	hits := []models.ChunkHit{}
	for rows.Next() {
		var chunk models.Chunk
		var docName string
		var meta sql.NullString
		var raw float64
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &docName, &chunk.ChunkIndex, &chunk.Content, &meta, &chunk.CreatedAt, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		s, keep := score(raw)
		if !keep {
			continue
		}
		m, err := decodeChunkMetadata(meta)
		if err != nil {
			return nil, err
		}
		chunk.Metadata = m
		hits = append(hits, chunk.Hit(docName, s))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return hits, nil
}

func clampUnit(v float64) float64 {
	return max(0, min(1, v))
}
