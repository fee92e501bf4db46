package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/resilience"
)

// EmbeddingError represents an error from embedding operations with helpful context.
type EmbeddingError struct {
	Code       string
	Message    string
	Suggestion string
	Retryable  bool
	RetryAfter time.Duration
	Cause      error
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Suggestion != "" {
		msg += ". " + e.Suggestion
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *EmbeddingError) Unwrap() error {
	return e.Cause
}

// Is matches predefined errors by code, so a copy made with WithCause still
// satisfies errors.Is(err, ErrRateLimited).
func (e *EmbeddingError) Is(target error) bool {
	var other *EmbeddingError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code != "" && other.Code == e.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *EmbeddingError) WithCause(cause error) *EmbeddingError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// WithRetryAfter returns a copy of the error with the given retry duration.
func (e *EmbeddingError) WithRetryAfter(d time.Duration) *EmbeddingError {
	cp := *e
	cp.RetryAfter = d
	return &cp
}

// Predefined embedding errors
var (
	ErrRateLimited = &EmbeddingError{
		Code:       "RATE_LIMITED",
		Message:    "embedding API rate limit exceeded",
		Suggestion: "Lower embedding.requests_per_second or wait and retry",
		Retryable:  true,
	}

	ErrAuthFailed = &EmbeddingError{
		Code:       "AUTH_FAILED",
		Message:    "embedding API rejected the credentials",
		Suggestion: "Set embedding.openai.api_key in ragcore.yaml or RAGCORE_EMBEDDING_OPENAI_API_KEY",
	}

	ErrQuotaExceeded = &EmbeddingError{
		Code:       "QUOTA_EXCEEDED",
		Message:    "embedding API quota exhausted",
		Suggestion: "Check your billing at the provider's dashboard",
	}

	ErrProviderUnavailable = &EmbeddingError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "embedding provider is not responding",
		Suggestion: "Check that the provider is running and reachable at the configured URL",
		Retryable:  true,
	}

	ErrModelNotFound = &EmbeddingError{
		Code:       "MODEL_NOT_FOUND",
		Message:    "embedding model not found",
		Suggestion: "Pull the model (e.g. 'ollama pull nomic-embed-text') or fix embedding.model",
	}

	ErrInvalidRequest = &EmbeddingError{
		Code:    "INVALID_REQUEST",
		Message: "invalid embedding request",
	}

	ErrInvalidResponse = &EmbeddingError{
		Code:    "INVALID_RESPONSE",
		Message: "embedding provider returned an unexpected response",
	}

	ErrProviderNotConfigured = &EmbeddingError{
		Code:       "PROVIDER_NOT_CONFIGURED",
		Message:    "no embedding provider configured",
		Suggestion: "Run 'ragctl init' or set embedding.provider in ragcore.yaml",
	}
)

func errCountMismatch(want, got int) error {
	return fmt.Errorf("expected %d embeddings, got %d", want, got)
}

// errorForStatus maps an HTTP status from a provider to a predefined error.
func errorForStatus(status int, body string) *EmbeddingError {
	cause := fmt.Errorf("status %d: %s", status, body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthFailed.WithCause(cause)
	case status == http.StatusTooManyRequests:
		return ErrRateLimited.WithCause(cause)
	case status == http.StatusPaymentRequired:
		return ErrQuotaExceeded.WithCause(cause)
	case status == http.StatusNotFound:
		return ErrModelNotFound.WithCause(cause)
	case status == http.StatusRequestTimeout || status >= 500:
		return ErrProviderUnavailable.WithCause(cause)
	default:
		return ErrInvalidRequest.WithCause(cause)
	}
}

// IsRetryableError returns true if the error is retryable.
func IsRetryableError(err error) bool {
	var embErr *EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.Retryable
	}
	return false
}

// GetRetryAfter returns the retry-after duration from an error, or 0 if not available.
func GetRetryAfter(err error) time.Duration {
	var embErr *EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.RetryAfter
	}
	return 0
}

// Classify tells the resilience executor which embedding failures to retry.
// Only retryable EmbeddingErrors and attempt timeouts count against the
// breaker; bad requests and credentials are the caller's problem.
func Classify(err error) resilience.ErrorClassification {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return resilience.ErrorClassification{}
	case errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case IsRetryableError(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{}
	}
}
