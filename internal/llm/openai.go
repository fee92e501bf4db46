package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI-compatible chat client. BaseURL points
// at any compatible service (OpenRouter, vLLM, LM Studio); empty means the
// OpenAI API.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClient implements ChatCompleter with go-openai.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	baseURL string
}

// NewOpenAIClient creates a client. A custom base URL without an API path
// gets "/v1" appended.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	var client *openai.Client

	if cfg.BaseURL != "" {
		if err := validateBaseURL(cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}

		apiKey := cfg.APIKey
		// Some compatible services don't require authentication
		if apiKey == "" {
			apiKey = "dummy-key"
		}

		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		if !hasAPIPath(clientConfig.BaseURL) {
			clientConfig.BaseURL += "/v1"
		}
		client = openai.NewClientWithConfig(clientConfig)
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai api key is required")
		}
		client = openai.NewClient(cfg.APIKey)
	}

	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	return &OpenAIClient{client: client, model: cfg.Model, baseURL: cfg.BaseURL}, nil
}

// ModelName returns the configured model name.
func (c *OpenAIClient) ModelName() string {
	return c.model
}

// Complete sends a chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if c.baseURL != "" {
			return "", fmt.Errorf("openai-compatible chat completion failed: %w", err)
		}
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func validateBaseURL(baseURL string) error {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL format: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("baseURL must include scheme and host, got %q", baseURL)
	}
	return nil
}

func hasAPIPath(baseURL string) bool {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	path := strings.Trim(parsed.Path, "/")
	return path != ""
}
