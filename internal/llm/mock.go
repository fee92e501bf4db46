package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted ChatCompleter for tests.
type MockClient struct {
	mu sync.Mutex

	// Respond computes the reply; when nil, Response and Err are returned.
	Respond  func(prompt string) (string, error)
	Response string
	Err      error

	prompts []string
	options []Options
}

// NewMockClient returns a mock that always answers response.
func NewMockClient(response string) *MockClient {
	return &MockClient{Response: response}
}

// Complete records the call and returns the scripted answer.
func (m *MockClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	respond, response, err := m.Respond, m.Response, m.Err
	m.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if respond != nil {
		return respond(prompt)
	}
	return response, err
}

// Calls returns the number of Complete calls.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns the prompts seen so far.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastOptions returns the options of the most recent call.
func (m *MockClient) LastOptions() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return Options{}
	}
	return m.options[len(m.options)-1]
}
