package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/resilience"
	"github.com/sashabaranov/go-openai"
)

// HTTPStatusError is a non-2xx answer from a provider.
type HTTPStatusError struct {
	Provider   string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s chat status: %s", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s chat status: %s: %s", e.Provider, e.Status, strings.TrimSpace(e.Body))
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPStatusError) Retryable() bool {
	return isRetryableHTTPStatus(e.StatusCode)
}

// Classify maps provider errors to retry decisions. Timeouts, network
// errors, 408, 429 and 5xx are retried; caller cancellation is not recorded
// as a provider failure.
func Classify(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.ErrorClassification{
			Retryable:     statusErr.Retryable(),
			RecordFailure: statusErr.Retryable(),
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		retryable := isRetryableHTTPStatus(apiErr.HTTPStatusCode)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		retryable := isRetryableHTTPStatus(reqErr.HTTPStatusCode)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
