package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// SearchVectors returns the nearest chunks by cosine distance. Scores are
// 1 - distance; rows below opts.Threshold are dropped in SQL.
func (s *Store) SearchVectors(ctx context.Context, vec []float32, opts search.VectorQuery) ([]models.ChunkHit, error) {
	if opts.TopK <= 0 {
		return []models.ChunkHit{}, nil
	}
	if len(vec) != s.dimensions {
		return nil, fmt.Errorf("query embedding has %d dimensions, expected %d", len(vec), s.dimensions)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.document_id, d.name, c.chunk_index, c.content, c.metadata, c.created_at,
	1 - (c.embedding <=> $1) AS score
FROM rag_chunks c
JOIN rag_documents d ON d.id = c.document_id
WHERE ($2 = '' OR c.document_id = $2)
	AND 1 - (c.embedding <=> $1) >= $3
ORDER BY c.embedding <=> $1
LIMIT $4`,
		pgvector.NewVector(vec), opts.DocumentID, opts.Threshold, opts.TopK,
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// SearchText matches q with to_tsquery. ts_rank normalisation 32 maps the
// rank into [0, 1) as rank/(rank+1).
func (s *Store) SearchText(ctx context.Context, q search.KeywordQuery, opts search.TextQuery) ([]models.ChunkHit, error) {
	tsquery := q.TSQuery()
	if tsquery == "" || opts.TopK <= 0 {
		return []models.ChunkHit{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.document_id, d.name, c.chunk_index, c.content, c.metadata, c.created_at,
	ts_rank(c.content_tsv, to_tsquery('`+TextSearchConfig+`', $1), 32) AS score
FROM rag_chunks c
JOIN rag_documents d ON d.id = c.document_id
WHERE c.content_tsv @@ to_tsquery('`+TextSearchConfig+`', $1)
	AND ($2 = '' OR c.document_id = $2)
ORDER BY score DESC
LIMIT $3`,
		tsquery, opts.DocumentID, opts.TopK,
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("text search: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

func scanHits(rows *sql.Rows) ([]models.ChunkHit, error) {
	hits := []models.ChunkHit{}
	for rows.Next() {
		var chunk models.Chunk
		var docName string
		var meta []byte
		var score float64
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &docName, &chunk.ChunkIndex, &chunk.Content, &meta, &chunk.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("decode chunk metadata: %w", err)
			}
		}
		hits = append(hits, chunk.Hit(docName, max(0, min(1, score))))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	return hits, nil
}
