// Package llm provides chat-completion clients used for relevance rescoring.
package llm

import (
	"context"
	"errors"
)

// ChatCompleter sends one prompt and returns the model's text reply.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Options tunes a single completion.
type Options struct {
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// DefaultOptions returns the low-temperature settings used for scoring.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.1,
		MaxTokens:   1024,
	}
}

// ErrEmptyResponse is returned when the provider answers without content.
var ErrEmptyResponse = errors.New("llm returned an empty response")
