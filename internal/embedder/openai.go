package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI embedding client. BaseURL
// may point at any OpenAI-compatible embeddings API.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
}

// DefaultOpenAIConfig returns the default configuration for OpenAI.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model: string(openai.SmallEmbedding3),
	}
}

// OpenAIClient provides embedding generation via the OpenAI embeddings API.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIClient creates a new OpenAI embedding client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, ErrAuthFailed.WithCause(errors.New("openai api key is required"))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIConfig().Model
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "dummy-key"
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		if !strings.HasSuffix(clientConfig.BaseURL, "/v1") {
			clientConfig.BaseURL += "/v1"
		}
	}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: DimensionsFor(cfg.Model, cfg.Dimensions),
	}, nil
}

// Health verifies the credentials by embedding a short probe text.
func (c *OpenAIClient) Health(ctx context.Context) error {
	_, err := c.EmbedSingle(ctx, "health")
	return err
}

// EmbedSingle generates an embedding for a single text input.
func (c *OpenAIClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Embed generates embeddings for multiple texts in one request. Vectors are
// returned in input order whatever order the API lists them in.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.mapError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, ErrInvalidResponse.WithCause(errCountMismatch(len(texts), len(resp.Data)))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, ErrInvalidResponse.WithCause(fmt.Errorf("embedding index %d out of range", d.Index))
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return errorForStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return errorForStatus(reqErr.HTTPStatusCode, reqErr.Error())
	}
	return ErrProviderUnavailable.WithCause(err)
}

// ModelName returns the configured model name.
func (c *OpenAIClient) ModelName() string {
	return c.model
}

// Dimensions returns the embedding vector size.
func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}
