package db

import (
	"context"
	"fmt"
)

// CreateFTSTable creates the FTS5 keyword index. The porter tokenizer stems
// English words, unicode61 folds case and diacritics.
func (db *DB) CreateFTSTable(ctx context.Context) error {
	_, err := db.Exec(ctx, `
		CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			chunk_id UNINDEXED,
			content,
			document_name,
			tokenize='porter unicode61'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create FTS table: %w", err)
	}
	return nil
}

// PopulateFTSFromChunks rebuilds the keyword index from the chunks table and
// returns the number of entries written.
func (db *DB) PopulateFTSFromChunks(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if _, err := db.Exec(ctx, `DELETE FROM chunks_fts`); err != nil {
		return 0, fmt.Errorf("failed to clear FTS table: %w", err)
	}

	if _, err := db.Exec(ctx, `
		INSERT INTO chunks_fts (chunk_id, content, document_name)
		SELECT c.id, c.content, d.name
		FROM chunks c
		JOIN documents d ON c.document_id = d.id
	`); err != nil {
		return 0, fmt.Errorf("failed to populate FTS table: %w", err)
	}

	n, err := db.FTSCount(ctx)
	return int(n), err
}

// FTSCount returns the number of entries in the keyword index.
func (db *DB) FTSCount(ctx context.Context) (int64, error) {
	var count int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM chunks_fts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count FTS entries: %w", err)
	}
	return count, nil
}
