package daemon

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/embedder"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/llm"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/logging"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/rerank"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	d, err := New(t.Context(), cfg, t.TempDir(), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNew_RejectsNilConfig(t *testing.T) {
	_, err := New(t.Context(), nil, t.TempDir(), nil)
	require.Error(t, err)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Search.TopK = 0
	cfg.Server.Port = 0

	_, err := New(t.Context(), cfg, t.TempDir(), logging.Discard())
	require.Error(t, err)

	var verrs config.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		fields = append(fields, ve.Field)
	}
	assert.Contains(t, fields, "search.topK")
	assert.Contains(t, fields, "server.port")
}

func TestNew_OpensSQLiteStore(t *testing.T) {
	d := newTestDaemon(t, testConfig())

	assert.Equal(t, rerank.ModeSynthetic, d.RescoreMode())
	assert.NotNil(t, d.Pipeline())
	assert.NotNil(t, d.Metrics())
	assert.Equal(t, 500, d.Chunker().ChunkSize())
	assert.Zero(t, d.Indexer().Stats().TotalDocuments)
}

func TestAssemble_RequiresStoreAndEmbedder(t *testing.T) {
	_, err := Assemble(testConfig(), t.TempDir(), Components{}, nil)
	require.Error(t, err)
}

func TestAssemble_UsesLLMWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Rescore.Mode = "llm"

	d, err := Assemble(cfg, t.TempDir(), Components{
		Store:    openTestStore(t),
		Embedder: embedder.NewMockEmbedder(testDimensions),
		LLM:      llm.NewMockClient("[9]"),
	}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, rerank.ModeLLM, d.RescoreMode())

	without, err := Assemble(cfg, t.TempDir(), Components{
		Store:    openTestStore(t),
		Embedder: embedder.NewMockEmbedder(testDimensions),
	}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, rerank.ModeSynthetic, without.RescoreMode())
}

// =============================================================================
// Search Tests
// =============================================================================

func TestDaemon_IngestThenSearch(t *testing.T) {
	d := newTestDaemon(t, testConfig())
	ctx := t.Context()

	target, err := d.Ingest(ctx, IngestRequest{
		Name: "k8s.md",
		Text: "Kubernetes schedules pods across worker nodes",
	})
	require.NoError(t, err)
	_, err = d.Ingest(ctx, IngestRequest{
		Name: "bread.md",
		Text: "Sourdough needs a long cold fermentation",
	})
	require.NoError(t, err)

	resp, err := d.Search(ctx, "Kubernetes schedules pods across worker nodes", d.SearchDefaults())
	require.NoError(t, err)

	assert.Equal(t, search.StatusOK, resp.Status)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, target.ID, resp.Results[0].DocumentID)
	assert.Equal(t, 1, resp.Results[0].RelevanceRank)
	assert.False(t, resp.Rescored)
}

func TestDaemon_SearchWithSyntheticRescore(t *testing.T) {
	d := newTestDaemon(t, testConfig())
	ctx := t.Context()

	_, err := d.Ingest(ctx, IngestRequest{Name: "cache.md", Text: "The embedding cache keeps recent query vectors"})
	require.NoError(t, err)

	cfg := d.SearchDefaults()
	cfg.Rescore = true
	cfg.MinScoreThreshold = 0
	resp, err := d.Search(ctx, "embedding cache", cfg)
	require.NoError(t, err)

	assert.True(t, resp.Rescored)
	require.NotEmpty(t, resp.Results)
	assert.NotNil(t, resp.Results[0].LLMScore)
}

func TestDaemon_SearchRejectsInvalidOverrides(t *testing.T) {
	d := newTestDaemon(t, testConfig())

	cfg := d.SearchDefaults()
	cfg.TopK = -1
	_, err := d.Search(t.Context(), "anything", cfg)
	assert.ErrorIs(t, err, search.ErrInvalidConfiguration)
}

func TestDaemon_SearchEmptyStore(t *testing.T) {
	d := newTestDaemon(t, testConfig())

	resp, err := d.Search(t.Context(), "nothing here", d.SearchDefaults())
	require.NoError(t, err)
	assert.Equal(t, search.StatusEmpty, resp.Status)
	assert.Empty(t, resp.Results)
}

// =============================================================================
// Document Tests
// =============================================================================

func TestDaemon_DocumentLifecycle(t *testing.T) {
	d := newTestDaemon(t, testConfig())
	ctx := t.Context()

	doc, err := d.Ingest(ctx, IngestRequest{Name: "a.md", Text: "alpha"})
	require.NoError(t, err)

	docs, err := d.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	got, err := d.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.md", got.Name)

	require.NoError(t, d.DeleteDocument(ctx, doc.ID))
	docs, err = d.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

// =============================================================================
// Health Tests
// =============================================================================

func TestDaemon_Health(t *testing.T) {
	emb := embedder.NewMockEmbedder(testDimensions)
	d, err := Assemble(testConfig(), t.TempDir(), Components{
		Store:    openTestStore(t),
		Embedder: emb,
	}, logging.Discard())
	require.NoError(t, err)

	report := d.Health(t.Context())
	assert.Equal(t, HealthOK, report.Status)
	assert.Equal(t, HealthOK, report.Store)
	assert.Equal(t, "mock-embedder", report.Model)
	assert.Equal(t, "synthetic", report.RescoreMode)

	emb.SetHealthy(false)
	report = d.Health(t.Context())
	assert.Equal(t, HealthDegraded, report.Status)
	assert.Contains(t, report.Embedder, "unhealthy")
	assert.Equal(t, HealthOK, report.Store)
}

// =============================================================================
// Server Tests
// =============================================================================

func TestDaemon_ServeUntilCancelled(t *testing.T) {
	d := newTestDaemon(t, testConfig())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx, ln, handler) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestDaemon_RunFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port
	d := newTestDaemon(t, cfg)

	err = d.Run(t.Context(), http.NotFoundHandler())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
