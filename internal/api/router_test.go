package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/logging"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/metrics"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// =============================================================================
// Route Registration Tests
// =============================================================================

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter(newFakeService())

	testCases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/search", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/chunk", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/documents", http.StatusOK},
		{http.MethodPut, "/api/v1/documents/abc", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nonexistent", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := do(t, router, tc.method, tc.path, "")
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRouterImplementsHTTPHandler(t *testing.T) {
	var _ http.Handler = newTestRouter(newFakeService())
}

// =============================================================================
// Middleware Tests
// =============================================================================

func TestRouterAssignsRequestID(t *testing.T) {
	router := newTestRouter(newFakeService())

	rec := do(t, router, http.MethodGet, "/health", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "caller-id-42")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "caller-id-42", rec.Header().Get(RequestIDHeader))
}

func TestRouterRecoversFromPanics(t *testing.T) {
	svc := &panickingService{fakeService: newFakeService()}

	rec := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/documents", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panickingService struct {
	*fakeService
}

func (p *panickingService) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	panic("boom")
}

func TestRouterExposesMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	router := NewRouter(newFakeService(), Options{Metrics: collector, Logger: logging.Discard()})

	do(t, router, http.MethodPost, "/api/v1/search", `{"query":"x"}`)
	do(t, router, http.MethodGet, "/api/v1/documents/missing", "")

	rec := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `ragcore_http_requests_total{method="POST",route="/api/v1/search",status="200"} 1`)
	assert.Contains(t, out, `ragcore_http_requests_total{method="GET",route="/api/v1/documents/{id}",status="404"} 1`)
}

// =============================================================================
// End-to-End Tests
// =============================================================================

func newDaemonRouter(t *testing.T) (*daemon.Daemon, *Router) {
	t.Helper()
	cfg := config.Default()
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Model = "mock-embedder"
	cfg.Embedding.Dimensions = 8
	cfg.Rescore.Mode = "synthetic"

	d, err := daemon.New(t.Context(), cfg, t.TempDir(), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	return d, NewRouter(d, Options{Metrics: d.Metrics(), Logger: logging.Discard(), Timeout: 10 * time.Second})
}

func TestRouterFullIngestAndSearchFlow(t *testing.T) {
	_, router := newDaemonRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	ingest := do(t, router, http.MethodPost, "/api/v1/documents",
		`{"name":"raft.md","text":"Raft elects a leader that replicates the log to followers"}`)
	require.Equal(t, http.StatusCreated, ingest.Code, ingest.Body.String())

	rec := do(t, router, http.MethodPost, "/api/v1/search",
		`{"query":"Raft elects a leader that replicates the log to followers","rescore":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp search.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, search.StatusOK, resp.Status)
	assert.True(t, resp.Rescored)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "raft.md", resp.Results[0].DocumentName)

	health, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	var report daemon.HealthReport
	require.NoError(t, json.NewDecoder(health.Body).Decode(&report))
	assert.Equal(t, daemon.HealthOK, report.Status)
	assert.Equal(t, int64(1), report.Index.TotalDocuments)

	metricsResp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ragcore_search_requests_total{status="ok"} 1`)
	assert.Contains(t, string(body), `ragcore_ingest_documents_total{status="success"} 1`)
}
