package embedder

import (
	"context"
	"crypto/sha256"
	"errors"
	"math"
	"sync"
)

// MockEmbedder generates deterministic unit vectors from a SHA256 of the
// text: the same text always maps to the same vector. Tests can inject
// failures per text with FailOn.
type MockEmbedder struct {
	mu         sync.Mutex
	dimensions int
	healthy    bool
	modelName  string
	calls      int

	// FailOn, when set, is consulted before embedding each text.
	FailOn func(text string) error
}

var _ Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a healthy mock producing vectors of the given
// size. A size below 1 uses DefaultDimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &MockEmbedder{
		dimensions: dimensions,
		healthy:    true,
		modelName:  "mock-embedder",
	}
}

// SetHealthy toggles the health state of the mock embedder.
func (m *MockEmbedder) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
}

// Calls returns how many EmbedSingle and Embed calls were made.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// EmbedSingle returns the deterministic vector of text.
func (m *MockEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	if m.FailOn != nil {
		if err := m.FailOn(text); err != nil {
			return nil, err
		}
	}
	return m.Vector(text), nil
}

// Embed returns the deterministic vectors of texts. Any injected failure
// fails the whole batch.
func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if m.FailOn != nil {
			if err := m.FailOn(text); err != nil {
				return nil, err
			}
		}
		embeddings[i] = m.Vector(text)
	}
	return embeddings, nil
}

func (m *MockEmbedder) begin(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return ctx.Err()
}

// Health returns an error after SetHealthy(false).
func (m *MockEmbedder) Health(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.healthy {
		return errors.New("mock embedder is unhealthy")
	}
	return nil
}

// ModelName returns the name of the mock model.
func (m *MockEmbedder) ModelName() string {
	return m.modelName
}

// Dimensions returns the embedding dimension count.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// Vector is the deterministic unit vector for text.
func (m *MockEmbedder) Vector(text string) []float32 {
	embedding := make([]float32, m.dimensions)
	hash := sha256.Sum256([]byte(text))

	for i := range embedding {
		val := float64(hash[i%len(hash)]) / 255.0
		offset := float64(i) / float64(m.dimensions)
		embedding[i] = float32(val*0.5 + offset*0.5)
	}

	var norm float64
	for _, v := range embedding {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range embedding {
		embedding[i] = float32(float64(embedding[i]) / norm)
	}
	return embedding
}
