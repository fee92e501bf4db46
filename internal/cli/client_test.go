package cli

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/api"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/config"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/logging"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// newTestServer serves the API of a daemon backed by the mock embedder.
func newTestServer(t *testing.T) (*daemon.Daemon, *httptest.Server) {
	t.Helper()
	dataDir := writeTestConfig(t)
	cfg, err := config.NewLoader(dataDir).Load()
	require.NoError(t, err)

	d, err := daemon.New(t.Context(), cfg, dataDir, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	server := httptest.NewServer(api.NewRouter(d, api.Options{Logger: logging.Discard()}))
	t.Cleanup(server.Close)
	return d, server
}

// =============================================================================
// Client Tests
// =============================================================================

func TestNewClient_AddsScheme(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost:8420", "http://localhost:8420"},
		{"http://localhost:8420/", "http://localhost:8420"},
		{"https://rag.example.com", "https://rag.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NewClient(tt.in, time.Second).baseURL)
		})
	}
}

func TestClient_IngestAndSearch(t *testing.T) {
	_, server := newTestServer(t)
	client := NewClient(server.URL, 10*time.Second)
	ctx := t.Context()

	doc, err := client.Ingest(ctx, api.IngestRequest{
		Name: "k8s.md",
		Text: "Kubernetes schedules pods onto nodes and restarts failed containers.",
	})
	require.NoError(t, err)
	assert.Equal(t, "k8s.md", doc.Name)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, 1, doc.ChunkCount)

	_, err = client.Ingest(ctx, api.IngestRequest{
		Name: "cooking.md",
		Text: "Simmer the tomato sauce slowly with garlic and basil.",
	})
	require.NoError(t, err)

	query := "Kubernetes schedules pods onto nodes and restarts failed containers."
	resp, err := client.Search(ctx, api.SearchRequest{Query: query})
	require.NoError(t, err)
	assert.Equal(t, query, resp.Query)
	assert.Equal(t, search.StatusOK, resp.Status)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "k8s.md", resp.Results[0].DocumentName)
	assert.Empty(t, resp.Failures)
}

func TestClient_Health(t *testing.T) {
	_, server := newTestServer(t)

	report, err := NewClient(server.URL, 5*time.Second).Health(t.Context())
	require.NoError(t, err)
	assert.Equal(t, daemon.HealthOK, report.Status)
	assert.Equal(t, "synthetic", report.RescoreMode)
}

func TestClient_DecodesAPIError(t *testing.T) {
	_, server := newTestServer(t)

	_, err := NewClient(server.URL, 5*time.Second).Ingest(t.Context(), api.IngestRequest{Name: "empty.md"})
	require.Error(t, err)

	var apiErr api.APIError
	require.True(t, errors.As(err, &apiErr), "got %T: %v", err, err)
	assert.Equal(t, api.CodeInvalidRequest, apiErr.Code)
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).Health(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "bad gateway")
}

func TestClient_ConnectionFailed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewClient(addr, time.Second).Health(t.Context())
	require.Error(t, err)

	var cliErr *CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.True(t, strings.HasPrefix(cliErr.Message, "Cannot connect to server"))
}
