package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const (
	metaEmbeddingProvider   = "embedding_provider"
	metaEmbeddingModel      = "embedding_model"
	metaEmbeddingDimensions = "embedding_dimensions"
)

// ProviderInfo records which embedding model produced the stored vectors.
type ProviderInfo struct {
	Provider   string
	Model      string
	Dimensions int
}

// GetMetadata retrieves a metadata value by key.
// Returns empty string if the key doesn't exist.
func (db *DB) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRow(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata '%s': %w", key, err)
	}
	return value, nil
}

// SetMetadata stores or updates a metadata key-value pair.
func (db *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata '%s': %w", key, err)
	}
	return nil
}

// GetProviderInfo returns the stored embedding provider. A fresh database
// yields the zero value.
func (db *DB) GetProviderInfo(ctx context.Context) (ProviderInfo, error) {
	info := ProviderInfo{}

	provider, err := db.GetMetadata(ctx, metaEmbeddingProvider)
	if err != nil {
		return info, err
	}
	info.Provider = provider

	model, err := db.GetMetadata(ctx, metaEmbeddingModel)
	if err != nil {
		return info, err
	}
	info.Model = model

	dimsStr, err := db.GetMetadata(ctx, metaEmbeddingDimensions)
	if err != nil {
		return info, err
	}
	if dimsStr != "" {
		dims, err := strconv.Atoi(dimsStr)
		if err != nil {
			return info, fmt.Errorf("invalid dimensions value '%s': %w", dimsStr, err)
		}
		info.Dimensions = dims
	}

	return info, nil
}

// SetProviderInfo stores the embedding provider information.
func (db *DB) SetProviderInfo(ctx context.Context, info ProviderInfo) error {
	if err := db.SetMetadata(ctx, metaEmbeddingProvider, info.Provider); err != nil {
		return err
	}
	if err := db.SetMetadata(ctx, metaEmbeddingModel, info.Model); err != nil {
		return err
	}
	return db.SetMetadata(ctx, metaEmbeddingDimensions, strconv.Itoa(info.Dimensions))
}

// ProviderChanged reports whether info differs from the stored provider, in
// which case stored vectors are not comparable with new query embeddings.
// A fresh database never counts as changed.
func (db *DB) ProviderChanged(ctx context.Context, info ProviderInfo) (bool, error) {
	stored, err := db.GetProviderInfo(ctx)
	if err != nil {
		return false, err
	}
	if stored.Provider == "" {
		return false, nil
	}
	return stored.Provider != info.Provider ||
		stored.Model != info.Model ||
		stored.Dimensions != info.Dimensions, nil
}
