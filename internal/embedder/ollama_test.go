package embedder

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
)

// ============================================================================
// Test Helpers
// ============================================================================

func fakeVector(seed float32, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = seed + float32(i)*0.001
	}
	return v
}

// ollamaServer answers /api/embed with one vector per input.
func ollamaServer(t *testing.T, got *ollamaEmbedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			_, _ = w.Write([]byte(`{"version":"0.5.0"}`))
		case "/api/embed":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if got != nil {
				*got = req
			}
			resp := ollamaEmbedResponse{}
			for i := range req.Input {
				resp.Embeddings = append(resp.Embeddings, fakeVector(float32(i), 768))
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
}

// ============================================================================
// Happy Path
// ============================================================================

func TestOllamaClient_Health(t *testing.T) {
	server := ollamaServer(t, nil)
	defer server.Close()

	assert.NoError(t, NewOllamaClient(OllamaConfig{BaseURL: server.URL}).Health(context.Background()))
}

func TestOllamaClient_EmbedSingle(t *testing.T) {
	var req ollamaEmbedRequest
	server := ollamaServer(t, &req)
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "nomic-embed-text"})
	vec, err := client.EmbedSingle(context.Background(), "what is reciprocal rank fusion")
	require.NoError(t, err)

	assert.Len(t, vec, 768)
	assert.Equal(t, "nomic-embed-text", req.Model)
	assert.Equal(t, []string{"what is reciprocal rank fusion"}, req.Input)
	assert.Equal(t, float64(8192), req.Options["num_ctx"])
}

func TestOllamaClient_Embed(t *testing.T) {
	server := ollamaServer(t, nil)
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL})
	vecs, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	require.Len(t, vecs, 3)
	assert.Equal(t, float32(2), vecs[2][0])
}

func TestOllamaClient_EmbedEmpty(t *testing.T) {
	client := NewOllamaClient(OllamaConfig{BaseURL: "http://127.0.0.1:1"})
	vecs, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestOllamaClient_UnknownModelSendsNoOptions(t *testing.T) {
	var req ollamaEmbedRequest
	server := ollamaServer(t, &req)
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "custom", Dimensions: 768})
	_, err := client.EmbedSingle(context.Background(), "x")
	require.NoError(t, err)

	assert.Nil(t, req.Options)
	assert.Equal(t, 768, client.Dimensions())
}

// ============================================================================
// Error Cases
// ============================================================================

func TestOllamaClient_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model \"nope\" not found, try pulling it first"}`, http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "nope"}).EmbedSingle(context.Background(), "x")
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.False(t, IsRetryableError(err))
}

func TestOllamaClient_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewOllamaClient(OllamaConfig{BaseURL: server.URL}).EmbedSingle(context.Background(), "x")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.True(t, IsRetryableError(err))
}

func TestOllamaClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: url, Timeout: time.Second})
	_, err := client.EmbedSingle(context.Background(), "x")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, client.Health(context.Background()), ErrProviderUnavailable)
}

func TestOllamaClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := NewOllamaClient(OllamaConfig{BaseURL: server.URL}).EmbedSingle(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestOllamaClient_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{0.1}}})
	}))
	defer server.Close()

	_, err := NewOllamaClient(OllamaConfig{BaseURL: server.URL}).Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestOllamaClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewOllamaClient(OllamaConfig{BaseURL: server.URL}).EmbedSingle(ctx, "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ============================================================================
// Configuration
// ============================================================================

func TestNewOllamaClient_Defaults(t *testing.T) {
	client := NewOllamaClient(OllamaConfig{})

	assert.Equal(t, "http://localhost:11434", client.baseURL)
	assert.Equal(t, "nomic-embed-text", client.ModelName())
	assert.Equal(t, 768, client.Dimensions())
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestNewOllamaClient_TrimsTrailingSlash(t *testing.T) {
	client := NewOllamaClient(OllamaConfig{BaseURL: "http://gpu-box:11434/"})
	assert.Equal(t, "http://gpu-box:11434", client.baseURL)
}
