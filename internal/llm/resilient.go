package llm

import (
	"context"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/resilience"
)

// ResilientClient retries a ChatCompleter and guards it with a circuit
// breaker.
type ResilientClient struct {
	next      ChatCompleter
	executor  *resilience.Executor
	operation string
}

// NewResilientClient wraps next. operation names the breaker, e.g.
// "llm.rescore".
func NewResilientClient(next ChatCompleter, executor *resilience.Executor, operation string) *ResilientClient {
	return &ResilientClient{next: next, executor: executor, operation: operation}
}

// Complete runs the wrapped client through the executor.
func (c *ResilientClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	var out string
	err := c.executor.Execute(ctx, c.operation, func(ctx context.Context) error {
		text, err := c.next.Complete(ctx, prompt, opts)
		if err != nil {
			return err
		}
		out = text
		return nil
	}, Classify)
	if err != nil {
		return "", err
	}
	return out, nil
}
