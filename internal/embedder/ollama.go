package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig holds configuration options for the Ollama client.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	// Dimensions overrides the size inferred from the model name.
	Dimensions int
}

// DefaultOllamaConfig returns the default configuration for Ollama.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL: "http://localhost:11434",
		Model:   "nomic-embed-text",
		Timeout: 30 * time.Second,
	}
}

// OllamaClient provides embedding generation via Ollama's local API.
type OllamaClient struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

// ollamaEmbedRequest represents the request to Ollama's /api/embed endpoint.
type ollamaEmbedRequest struct {
	Model   string         `json:"model"`
	Input   []string       `json:"input"`
	Options map[string]any `json:"options,omitempty"`
}

// ollamaEmbedResponse represents the response from Ollama's /api/embed endpoint.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaClient creates a new Ollama client with the given configuration.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	def := DefaultOllamaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	return &OllamaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: DimensionsFor(cfg.Model, cfg.Dimensions),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Health checks if Ollama is running and accessible.
func (c *OllamaClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrProviderUnavailable.WithCause(fmt.Errorf("ollama at %s: %w", c.baseURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrProviderUnavailable.WithCause(fmt.Errorf("ollama health check returned status %d", resp.StatusCode))
	}
	return nil
}

// EmbedSingle generates an embedding for a single text input.
func (c *OllamaClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, ErrInvalidResponse.WithCause(fmt.Errorf("ollama returned no embedding"))
	}
	return embeddings[0], nil
}

// Embed generates embeddings for multiple texts in a single request.
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	embeddings, err := c.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, ErrInvalidResponse.WithCause(errCountMismatch(len(texts), len(embeddings)))
	}
	return embeddings, nil
}

func (c *OllamaClient) embed(ctx context.Context, input []string) ([][]float32, error) {
	reqBody := ollamaEmbedRequest{
		Model: c.model,
		Input: input,
	}
	if m, ok := LookupModel(c.model); ok {
		reqBody.Options = map[string]any{"num_ctx": m.ContextSize}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrProviderUnavailable.WithCause(fmt.Errorf("ollama at %s: %w", c.baseURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, errorForStatus(resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, ErrInvalidResponse.WithCause(err)
	}
	return embedResp.Embeddings, nil
}

// ModelName returns the configured model name.
func (c *OllamaClient) ModelName() string {
	return c.model
}

// Dimensions returns the embedding vector size.
func (c *OllamaClient) Dimensions() int {
	return c.dimensions
}
