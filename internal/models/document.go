package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Document is an ingested source text. Its chunks are what searches return.
type Document struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Source     string            `json:"source,omitempty"`
	ChunkCount int               `json:"chunkCount"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// GenerateID derives a stable id from the document source, falling back to
// the name when no source is known. Re-ingesting the same file therefore
// replaces the earlier copy instead of duplicating it.
func (d *Document) GenerateID() string {
	key := d.Source
	if key == "" {
		key = d.Name
	}
	key = filepath.ToSlash(strings.TrimSpace(key))
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:16])
}

// SetDefaults fills in the id and name when they are missing.
func (d *Document) SetDefaults() {
	if d.Name == "" && d.Source != "" {
		d.Name = filepath.Base(d.Source)
	}
	if d.ID == "" {
		d.ID = d.GenerateID()
	}
}

// IsValid checks if the document has required fields.
func (d *Document) IsValid() error {
	if d.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
