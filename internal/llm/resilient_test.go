package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/resilience"
)

func fastExecutor() *resilience.Executor {
	cfg := resilience.DefaultConfig()
	cfg.RetryInitialBackoff = time.Millisecond
	cfg.RetryMaxBackoff = 2 * time.Millisecond
	cfg.BreakerEnabled = false
	return resilience.NewExecutor(cfg, nil)
}

func TestResilientClient_RetriesTransientFailures(t *testing.T) {
	calls := 0
	mock := &MockClient{Respond: func(string) (string, error) {
		calls++
		if calls < 3 {
			return "", &HTTPStatusError{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}
		}
		return "[0.5]", nil
	}}

	reply, err := NewResilientClient(mock, fastExecutor(), "llm.test").Complete(context.Background(), "q", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "[0.5]", reply)
	assert.Equal(t, 3, calls)
}

func TestResilientClient_DoesNotRetryPermanentFailures(t *testing.T) {
	mock := &MockClient{Err: &HTTPStatusError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"}}

	_, err := NewResilientClient(mock, fastExecutor(), "llm.test").Complete(context.Background(), "q", DefaultOptions())
	require.Error(t, err)
	assert.Equal(t, 1, mock.Calls())
}

func TestResilientClient_GivesUpAfterMaxAttempts(t *testing.T) {
	mock := &MockClient{Err: &HTTPStatusError{StatusCode: http.StatusServiceUnavailable, Status: "503"}}

	_, err := NewResilientClient(mock, fastExecutor(), "llm.test").Complete(context.Background(), "q", DefaultOptions())

	var statusErr *HTTPStatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 3, mock.Calls())
}
