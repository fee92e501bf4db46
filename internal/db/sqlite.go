// Package db is the embedded SQLite store for documents, chunks, their
// embeddings (sqlite-vec) and the FTS5 keyword index.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DatabaseFile = "ragcore.db"

	// DefaultDimensions matches nomic-embed-text, the default Ollama model.
	DefaultDimensions = 768
)

type DB struct {
	conn       *sql.DB
	path       string
	dimensions int
}

// Open creates or opens the database in dataDir. The dimensions must match
// the embedding model; they size the vector table when it is first created.
func Open(dataDir string, dimensions int) (*DB, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("invalid embedding dimensions: %d", dimensions)
	}

	sqlite_vec.Auto()

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: dbPath, dimensions: dimensions}

	if err := db.verifySqliteVec(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if err := db.verifyFTS5(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) verifySqliteVec() error {
	var version string
	err := db.conn.QueryRow("SELECT vec_version()").Scan(&version)
	if err != nil {
		return fmt.Errorf("vec_version() failed: %w", err)
	}
	return nil
}

// verifyFTS5 checks that the SQLite build includes FTS5, which keyword
// search depends on.
func (db *DB) verifyFTS5() error {
	_, err := db.conn.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS _fts5_check USING fts5(content)")
	if err != nil {
		return fmt.Errorf("FTS5 not available: %w\n\nBuild with: go build -tags fts5\nOr run tests with: go test -tags fts5 ./...", err)
	}
	_, _ = db.conn.Exec("DROP TABLE IF EXISTS _fts5_check")
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database file is still usable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Path() string {
	return db.path
}

// Dimensions returns the embedding dimensions configured for this database.
func (db *DB) Dimensions() int {
	return db.dimensions
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

func (db *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}
