package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// APIError represents a structured error response. It says what went wrong
// and, where possible, how to fix it.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Details    string `json:"details,omitempty"`
}

// Error implements the error interface for APIError.
func (e APIError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s: %s. %s", e.Code, e.Message, e.Suggestion)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails returns a copy of the error with additional details.
func (e APIError) WithDetails(details string) APIError {
	e.Details = details
	return e
}

// Error codes.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeNotFound             = "NOT_FOUND"
	CodeInternalError        = "INTERNAL_ERROR"
)

// =============================================================================
// Request Errors
// =============================================================================

var (
	// ErrInvalidJSON is returned when the request body is not valid JSON.
	ErrInvalidJSON = APIError{
		Code:       CodeInvalidRequest,
		Message:    "Request body contains invalid JSON",
		Suggestion: "Check your JSON syntax and ensure all strings are properly quoted",
	}

	// ErrTextRequired is returned when a chunk or ingest request has no text.
	ErrTextRequired = APIError{
		Code:       CodeInvalidRequest,
		Message:    "Text cannot be empty",
		Suggestion: "Send the document content in the text field",
	}

	// ErrNameRequired is returned when an ingest request names no document.
	ErrNameRequired = APIError{
		Code:       CodeInvalidRequest,
		Message:    "Document name or source is required",
		Suggestion: "Set name (or source) so the document can be replaced on re-ingest",
	}

	// ErrInvalidSearchConfig is returned when search overrides fail validation.
	ErrInvalidSearchConfig = APIError{
		Code:       CodeInvalidConfiguration,
		Message:    "Search parameters are invalid",
		Suggestion: "Weights and thresholds must be within [0, 1] and topK at least 1",
	}

	// ErrProviderChanged is returned when ingesting into an index built with
	// another embedding model.
	ErrProviderChanged = APIError{
		Code:       CodeInvalidConfiguration,
		Message:    "The index was built with a different embedding model",
		Suggestion: "Delete the data directory and re-index, or restore the previous embedding settings",
	}
)

// =============================================================================
// Server Errors
// =============================================================================

var (
	// ErrDocumentNotFound is returned for unknown document ids.
	ErrDocumentNotFound = APIError{
		Code:    CodeNotFound,
		Message: "Document not found",
	}

	// ErrSearchFailed is returned when a search fails for reasons other than
	// its parameters.
	ErrSearchFailed = APIError{
		Code:       CodeInternalError,
		Message:    "Search operation failed",
		Suggestion: "Check the server logs; the store may be unavailable",
	}

	// ErrIngestFailed is returned when a document could not be stored.
	ErrIngestFailed = APIError{
		Code:       CodeInternalError,
		Message:    "Failed to ingest document",
		Suggestion: "Check that the embedding provider is reachable and try again",
	}

	// ErrStoreFailed is returned when a store read or delete fails.
	ErrStoreFailed = APIError{
		Code:    CodeInternalError,
		Message: "Document store operation failed",
	}
)

// =============================================================================
// HTTP Response Helpers
// =============================================================================

// WriteError writes an APIError as a JSON response with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, err APIError) {
	writeJSON(w, statusCode, err)
}

// WriteBadRequest writes a 400 Bad Request response with the given error.
func WriteBadRequest(w http.ResponseWriter, err APIError) {
	WriteError(w, http.StatusBadRequest, err)
}

// WriteInternalError writes a 500 Internal Server Error response with the given error.
func WriteInternalError(w http.ResponseWriter, err APIError) {
	WriteError(w, http.StatusInternalServerError, err)
}

// NewError creates a custom APIError with the given code, message, and suggestion.
func NewError(code, message, suggestion string) APIError {
	return APIError{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// statusFor maps domain errors onto an HTTP status and APIError. fallback is
// used for anything unrecognised.
func statusFor(err error, fallback APIError) (int, APIError) {
	switch {
	case errors.Is(err, search.ErrInvalidConfiguration):
		return http.StatusBadRequest, ErrInvalidSearchConfig.WithDetails(err.Error())
	case errors.Is(err, daemon.ErrEmptyDocument):
		return http.StatusBadRequest, ErrTextRequired
	case errors.Is(err, daemon.ErrProviderChanged):
		return http.StatusConflict, ErrProviderChanged.WithDetails(err.Error())
	case errors.Is(err, models.ErrDocumentNotFound):
		return http.StatusNotFound, ErrDocumentNotFound
	default:
		return http.StatusInternalServerError, fallback.WithDetails(err.Error())
	}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
