package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder wraps an Embedder with an LRU cache keyed by model and a
// hash of the text, so repeated queries skip the provider.
type CachedEmbedder struct {
	embedder Embedder
	cache    *lru.Cache[string, []float32]
	hits     atomic.Int64
	misses   atomic.Int64
}

// CacheMetrics provides statistics about cache performance.
type CacheMetrics struct {
	Hits   int64
	Misses int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (m CacheMetrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder creates a CachedEmbedder holding at most capacity
// vectors. A capacity below 1 is raised to 1.
func NewCachedEmbedder(embedder Embedder, capacity int) *CachedEmbedder {
	cache, _ := lru.New[string, []float32](max(capacity, 1))
	return &CachedEmbedder{
		embedder: embedder,
		cache:    cache,
	}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.embedder.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// EmbedSingle generates an embedding for a single text, using the cache if available.
func (c *CachedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if embedding, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return embedding, nil
	}
	c.misses.Add(1)

	embedding, err := c.embedder.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, embedding)
	return embedding, nil
}

// Embed generates embeddings for multiple texts, sending only the uncached
// ones to the provider.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if embedding, ok := c.cache.Get(c.key(text)); ok {
			c.hits.Add(1)
			results[i] = embedding
			continue
		}
		c.misses.Add(1)
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	embeddings, err := c.embedder.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(missTexts) {
		return nil, ErrInvalidResponse.WithCause(errCountMismatch(len(missTexts), len(embeddings)))
	}

	for i, embedding := range embeddings {
		results[missIdx[i]] = embedding
		c.cache.Add(c.key(missTexts[i]), embedding)
	}
	return results, nil
}

// Health delegates to the underlying embedder.
func (c *CachedEmbedder) Health(ctx context.Context) error {
	return c.embedder.Health(ctx)
}

// ModelName delegates to the underlying embedder.
func (c *CachedEmbedder) ModelName() string {
	return c.embedder.ModelName()
}

// Dimensions delegates to the underlying embedder.
func (c *CachedEmbedder) Dimensions() int {
	return c.embedder.Dimensions()
}

// Metrics returns cache hit/miss statistics.
func (c *CachedEmbedder) Metrics() CacheMetrics {
	return CacheMetrics{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// CacheSize returns the current number of entries in the cache.
func (c *CachedEmbedder) CacheSize() int {
	return c.cache.Len()
}

// ClearCache removes all entries from the cache.
func (c *CachedEmbedder) ClearCache() {
	c.cache.Purge()
}
