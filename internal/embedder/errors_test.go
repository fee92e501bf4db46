package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// EmbeddingError Tests
// ============================================================================

func TestEmbeddingError_Error(t *testing.T) {
	err := ErrRateLimited.WithCause(errors.New("status 429"))
	assert.Equal(t,
		"embedding API rate limit exceeded: status 429. Lower embedding.requests_per_second or wait and retry",
		err.Error())

	assert.Equal(t, "invalid embedding request", ErrInvalidRequest.Error())
}

func TestEmbeddingError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("embed: %w", ErrProviderUnavailable.WithCause(errors.New("dial tcp")))

	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestEmbeddingError_CopiesDoNotMutateOriginal(t *testing.T) {
	cp := ErrRateLimited.WithRetryAfter(5 * time.Second)

	assert.Equal(t, 5*time.Second, cp.RetryAfter)
	assert.Zero(t, ErrRateLimited.RetryAfter)
	assert.Equal(t, 5*time.Second, GetRetryAfter(fmt.Errorf("x: %w", cp)))
}

func TestErrorForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   *EmbeddingError
	}{
		{http.StatusUnauthorized, ErrAuthFailed},
		{http.StatusForbidden, ErrAuthFailed},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusPaymentRequired, ErrQuotaExceeded},
		{http.StatusNotFound, ErrModelNotFound},
		{http.StatusRequestTimeout, ErrProviderUnavailable},
		{http.StatusBadGateway, ErrProviderUnavailable},
		{http.StatusBadRequest, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := errorForStatus(tt.status, "body")
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "body")
		})
	}
}

// ============================================================================
// Classify Tests
// ============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"nil", nil, false, false},
		{"canceled", context.Canceled, false, false},
		{"deadline", context.DeadlineExceeded, true, true},
		{"rate limited", ErrRateLimited, true, true},
		{"unavailable wrapped", fmt.Errorf("x: %w", ErrProviderUnavailable.WithCause(errors.New("eof"))), true, true},
		{"auth", ErrAuthFailed, false, false},
		{"plain error", errors.New("boom"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.record, got.RecordFailure)
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(ErrRateLimited))
	assert.True(t, IsRetryableError(fmt.Errorf("wrapped: %w", ErrProviderUnavailable)))
	assert.False(t, IsRetryableError(ErrAuthFailed))
	assert.False(t, IsRetryableError(errors.New("plain")))
	assert.False(t, IsRetryableError(nil))
}
