package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openAIServer answers /v1/embeddings, listing vectors in reverse order to
// check that the client sorts them by index.
func openAIServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Object: "embedding", Index: i, Embedding: []float32{float32(i), 0.5}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
		})
	}))
}

func TestOpenAIClient_Embed(t *testing.T) {
	server := openAIServer(t, http.StatusOK)
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	vecs, err := client.Embed(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)

	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Equal(t, float32(i), v[0])
	}
}

func TestOpenAIClient_EmbedSingle(t *testing.T) {
	server := openAIServer(t, http.StatusOK)
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	vec, err := client.EmbedSingle(context.Background(), "only")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5}, vec)
}

func TestOpenAIClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   *EmbeddingError
	}{
		{http.StatusUnauthorized, ErrAuthFailed},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusServiceUnavailable, ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := openAIServer(t, tt.status)
			defer server.Close()

			client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.EmbedSingle(context.Background(), "x")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewOpenAIClient(t *testing.T) {
	t.Run("requires a key for the public API", func(t *testing.T) {
		_, err := NewOpenAIClient(OpenAIConfig{})
		assert.ErrorIs(t, err, ErrAuthFailed)
	})

	t.Run("infers dimensions from the model", func(t *testing.T) {
		client, err := NewOpenAIClient(OpenAIConfig{APIKey: "k", Model: "text-embedding-3-large"})
		require.NoError(t, err)
		assert.Equal(t, 3072, client.Dimensions())
	})

	t.Run("defaults to text-embedding-3-small", func(t *testing.T) {
		client, err := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, "text-embedding-3-small", client.ModelName())
		assert.Equal(t, 1536, client.Dimensions())
	})
}
