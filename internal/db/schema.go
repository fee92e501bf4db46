package db

import (
	"context"
	"fmt"
)

const SchemaVersion = 2

// Migrate runs database migrations to ensure schema is up to date.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.createVersionTable(ctx); err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}

	currentVersion, err := db.getSchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion < 1 {
		if err := db.migrateV1(ctx); err != nil {
			return fmt.Errorf("failed to run v1 migration: %w", err)
		}
	}

	if currentVersion < 2 {
		if err := db.migrateV2(ctx); err != nil {
			return fmt.Errorf("failed to run v2 migration: %w", err)
		}
	}

	return nil
}

func (db *DB) createVersionTable(ctx context.Context) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (db *DB) getSchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (db *DB) setSchemaVersion(ctx context.Context, version int) error {
	_, err := db.Exec(ctx, "INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// migrateV1 creates documents, chunks, chunk_embeddings and metadata.
func (db *DB) migrateV1(ctx context.Context) error {
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			source TEXT,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
		)
	`); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	if _, err := db.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id, chunk_index)
	`); err != nil {
		return fmt.Errorf("failed to create chunks document_id index: %w", err)
	}

	// Cosine distance keeps 1-distance a similarity in [0, 1] for
	// normalised embeddings.
	if _, err := db.Exec(ctx, fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunk_embeddings USING vec0(
			chunk_id TEXT PRIMARY KEY,
			embedding FLOAT[%d] distance_metric=cosine
		)
	`, db.dimensions)); err != nil {
		return fmt.Errorf("failed to create chunk_embeddings table: %w", err)
	}

	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}

	if err := db.setSchemaVersion(ctx, 1); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	return nil
}

// migrateV2 adds the FTS5 keyword index.
func (db *DB) migrateV2(ctx context.Context) error {
	if err := db.CreateFTSTable(ctx); err != nil {
		return err
	}

	if _, err := db.PopulateFTSFromChunks(ctx); err != nil {
		return fmt.Errorf("failed to populate FTS table: %w", err)
	}

	if err := db.setSchemaVersion(ctx, 2); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	return nil
}

// GetSchemaVersion returns the current schema version.
func (db *DB) GetSchemaVersion(ctx context.Context) (int, error) {
	return db.getSchemaVersion(ctx)
}

// TableExists checks if a table exists in the database.
func (db *DB) TableExists(ctx context.Context, tableName string) (bool, error) {
	var count int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name=?
	`, tableName).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
