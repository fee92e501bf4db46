package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/chunker"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/logging"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// =============================================================================
// Test Helpers
// =============================================================================

// fakeService records calls and returns canned values.
type fakeService struct {
	mu sync.Mutex

	lastQuery  string
	lastConfig search.Config
	searchResp *search.Response
	searchErr  error

	ingested  []daemon.IngestRequest
	ingestErr error

	docs      map[string]*models.Document
	listErr   error
	deleteErr error

	health daemon.HealthReport
}

func newFakeService() *fakeService {
	return &fakeService{
		docs:   map[string]*models.Document{},
		health: daemon.HealthReport{Status: daemon.HealthOK, Store: daemon.HealthOK, Embedder: daemon.HealthOK},
	}
}

func (f *fakeService) SearchDefaults() search.Config {
	return search.DefaultConfig()
}

func (f *fakeService) Search(ctx context.Context, query string, cfg search.Config) (*search.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = query
	f.lastConfig = cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResp != nil {
		return f.searchResp, nil
	}
	return &search.Response{Query: query, Status: search.StatusEmpty, Results: []models.FinalResult{}}, nil
}

func (f *fakeService) Chunker() *chunker.TextChunker {
	return chunker.New(chunker.Config{ChunkSize: 20, Overlap: 5}, logging.Discard())
}

func (f *fakeService) Ingest(ctx context.Context, req daemon.IngestRequest) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	f.ingested = append(f.ingested, req)
	doc := &models.Document{Name: req.Name, Source: req.Source, Metadata: req.Metadata, ChunkCount: 1}
	doc.SetDefaults()
	f.docs[doc.ID] = doc
	return doc, nil
}

func (f *fakeService) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	docs := []*models.Document{}
	for _, d := range f.docs {
		docs = append(docs, d)
	}
	return docs, nil
}

func (f *fakeService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeService) DeleteDocument(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.docs[id]; !ok {
		return models.ErrDocumentNotFound
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeService) Health(ctx context.Context) daemon.HealthReport {
	return f.health
}

func newTestRouter(svc Service) *Router {
	return NewRouter(svc, Options{Logger: logging.Discard(), Timeout: 5 * time.Second})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
	return apiErr
}

func score(v float64) *float64 { return &v }

// =============================================================================
// Health Endpoint Tests
// =============================================================================

func TestHealthEndpoint(t *testing.T) {
	svc := newFakeService()
	svc.health.Status = daemon.HealthDegraded
	svc.health.Embedder = "connection refused"

	rec := do(t, newTestRouter(svc), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report daemon.HealthReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, daemon.HealthDegraded, report.Status)
	assert.Equal(t, "connection refused", report.Embedder)
}

// =============================================================================
// Search Endpoint Tests
// =============================================================================

func TestSearchEndpointAppliesOverrides(t *testing.T) {
	svc := newFakeService()
	router := newTestRouter(svc)

	rec := do(t, router, http.MethodPost, "/api/v1/search", `{
		"query": "vector databases",
		"topK": 3,
		"semanticWeight": 0.7,
		"keywordWeight": 0.3,
		"rerankStrategy": "rrf",
		"relevanceFilter": "threshold",
		"relevanceThreshold": 0.4,
		"rescore": true,
		"documentId": "doc-1"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "vector databases", svc.lastQuery)
	cfg := svc.lastConfig
	assert.Equal(t, 3, cfg.TopK)
	assert.InDelta(t, 0.7, cfg.SemanticWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.KeywordWeight, 1e-9)
	assert.Equal(t, search.StrategyRRF, cfg.RerankStrategy)
	assert.Equal(t, search.FilterThreshold, cfg.RelevanceFilter)
	assert.InDelta(t, 0.4, cfg.RelevanceThreshold, 1e-9)
	assert.True(t, cfg.Rescore)
	assert.Equal(t, "doc-1", cfg.DocumentID)
	assert.Equal(t, search.DefaultMaxChunksPerDocument, cfg.MaxChunksPerDocument)
}

func TestSearchEndpointReturnsResponse(t *testing.T) {
	svc := newFakeService()
	svc.searchResp = &search.Response{
		Query:  "cache",
		Status: search.StatusOK,
		Results: []models.FinalResult{{
			MergedRecord: models.MergedRecord{
				ChunkID:       "c1",
				DocumentID:    "d1",
				Text:          "the cache keeps vectors",
				SemanticScore: score(0.9),
				CombinedScore: score(0.8),
			},
			RelevanceRank:       1,
			RelevancePercentile: 100,
		}},
		TotalResults: 1,
		Strategy:     search.StrategyWeightedSum,
	}

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/v1/search", `{"query":"cache"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp search.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, search.StatusOK, resp.Status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "c1", resp.Results[0].ChunkID)
	assert.Equal(t, 1, resp.Results[0].RelevanceRank)
	require.NotNil(t, resp.Results[0].CombinedScore)
	assert.InDelta(t, 0.8, *resp.Results[0].CombinedScore, 1e-9)
}

func TestSearchEndpointRejectsBadInput(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "invalid JSON", body: `{"query":`, status: http.StatusBadRequest, code: CodeInvalidRequest},
		{name: "empty body", body: "", status: http.StatusBadRequest, code: CodeInvalidRequest},
		{name: "unknown field", body: `{"query":"x","limit":5}`, status: http.StatusBadRequest, code: CodeInvalidRequest},
		{name: "unknown strategy", body: `{"query":"x","rerankStrategy":"bogus"}`, status: http.StatusBadRequest, code: CodeInvalidConfiguration},
		{name: "unknown filter", body: `{"query":"x","relevanceFilter":"bogus"}`, status: http.StatusBadRequest, code: CodeInvalidConfiguration},
		{name: "weight out of range", body: `{"query":"x","semanticWeight":1.5}`, status: http.StatusBadRequest, code: CodeInvalidConfiguration},
		{name: "zero topK", body: `{"query":"x","topK":0}`, status: http.StatusBadRequest, code: CodeInvalidConfiguration},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, newTestRouter(newFakeService()), http.MethodPost, "/api/v1/search", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}
}

func TestSearchEndpointBlankQueryIsNotAnError(t *testing.T) {
	svc := newFakeService()

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/v1/search", `{"query":"   "}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "   ", svc.lastQuery)
}

func TestSearchEndpointInternalError(t *testing.T) {
	svc := newFakeService()
	svc.searchErr = errors.New("database is locked")

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/v1/search", `{"query":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, CodeInternalError, apiErr.Code)
	assert.Contains(t, apiErr.Details, "database is locked")
}

// =============================================================================
// Chunk Endpoint Tests
// =============================================================================

func TestChunkEndpointUsesServiceDefaults(t *testing.T) {
	text := strings.Repeat("word ", 20)

	rec := do(t, newTestRouter(newFakeService()), http.MethodPost, "/api/v1/chunk",
		`{"text":"`+text+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ChunkResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 20, resp.ChunkSize)
	assert.Equal(t, 5, resp.Overlap)
	assert.Equal(t, len(resp.Chunks), resp.Count)
	assert.Equal(t, chunker.ChunkText(text, 20, 5), resp.Chunks)
}

func TestChunkEndpointOverrides(t *testing.T) {
	rec := do(t, newTestRouter(newFakeService()), http.MethodPost, "/api/v1/chunk",
		`{"text":"alpha beta gamma delta","chunkSize":100,"overlap":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChunkResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"alpha beta gamma delta"}, resp.Chunks)
	assert.Equal(t, 100, resp.ChunkSize)
	assert.Zero(t, resp.Overlap)
}

func TestChunkEndpointRejectsBadInput(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "empty text", body: `{"text":"  "}`},
		{name: "negative size", body: `{"text":"abc","chunkSize":-1}`},
		{name: "overlap not below size", body: `{"text":"abc","chunkSize":10,"overlap":10}`},
		{name: "negative overlap", body: `{"text":"abc","overlap":-2}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, newTestRouter(newFakeService()), http.MethodPost, "/api/v1/chunk", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, CodeInvalidRequest, decodeError(t, rec).Code)
		})
	}
}

// =============================================================================
// Document Endpoint Tests
// =============================================================================

func TestIngestEndpoint(t *testing.T) {
	svc := newFakeService()

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/v1/documents",
		`{"name":"faq.md","text":"Questions and answers","metadata":{"lang":"en"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var doc models.Document
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "faq.md", doc.Name)

	require.Len(t, svc.ingested, 1)
	assert.Equal(t, "Questions and answers", svc.ingested[0].Text)
	assert.Equal(t, "en", svc.ingested[0].Metadata["lang"])
}

func TestIngestEndpointErrors(t *testing.T) {
	testCases := []struct {
		name      string
		body      string
		ingestErr error
		status    int
		code      string
	}{
		{name: "missing text", body: `{"name":"a.md"}`, status: http.StatusBadRequest, code: CodeInvalidRequest},
		{name: "missing name and source", body: `{"text":"hello"}`, status: http.StatusBadRequest, code: CodeInvalidRequest},
		{
			name:      "provider changed",
			body:      `{"name":"a.md","text":"hello"}`,
			ingestErr: daemon.ErrProviderChanged,
			status:    http.StatusConflict,
			code:      CodeInvalidConfiguration,
		},
		{
			name:      "embedding failure",
			body:      `{"name":"a.md","text":"hello"}`,
			ingestErr: errors.New("embedding service unavailable"),
			status:    http.StatusInternalServerError,
			code:      CodeInternalError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newFakeService()
			svc.ingestErr = tc.ingestErr

			rec := do(t, newTestRouter(svc), http.MethodPost, "/api/v1/documents", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}
}

func TestDocumentEndpoints(t *testing.T) {
	svc := newFakeService()
	router := newTestRouter(svc)
	doc, err := svc.Ingest(t.Context(), daemon.IngestRequest{Name: "a.md", Text: "alpha"})
	require.NoError(t, err)

	rec := do(t, router, http.MethodGet, "/api/v1/documents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list DocumentListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 1, list.Total)

	rec = do(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/v1/documents/"+doc.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/documents/"+doc.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rec).Code)

	rec = do(t, router, http.MethodDelete, "/api/v1/documents/"+doc.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDocumentsError(t *testing.T) {
	svc := newFakeService()
	svc.listErr = errors.New("no such table: documents")

	rec := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/documents", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternalError, decodeError(t, rec).Code)
}
