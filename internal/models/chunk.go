package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Chunk is a stored passage of a document, the unit of indexing and retrieval.
type Chunk struct {
	ID          string         `json:"id"`
	DocumentID  string         `json:"documentId"`
	ChunkIndex  int            `json:"chunkIndex"`
	Content     string         `json:"content"`
	ContentHash string         `json:"contentHash"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// GenerateID creates a deterministic ID for the chunk
// ID is based on document id + chunk index
func (c *Chunk) GenerateID() string {
	data := fmt.Sprintf("%s:%d", c.DocumentID, c.ChunkIndex)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16]) // 32 hex chars
}

// GenerateContentHash creates a hash of the chunk content
func (c *Chunk) GenerateContentHash() string {
	hash := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(hash[:16])
}

// SetHashes generates and sets both ID and content hash
func (c *Chunk) SetHashes() {
	c.ID = c.GenerateID()
	c.ContentHash = c.GenerateContentHash()
}

// IsValid checks if the chunk has required fields
func (c *Chunk) IsValid() error {
	if c.DocumentID == "" {
		return fmt.Errorf("document id is required")
	}
	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk index must be >= 0")
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

// Hit converts a stored chunk into a scored hit for the given document.
func (c *Chunk) Hit(documentName string, score float64) ChunkHit {
	return ChunkHit{
		ChunkID:      c.ID,
		DocumentID:   c.DocumentID,
		DocumentName: documentName,
		ChunkIndex:   c.ChunkIndex,
		Text:         c.Content,
		Metadata:     c.Metadata,
		CreatedAt:    c.CreatedAt,
		Score:        score,
	}
}
