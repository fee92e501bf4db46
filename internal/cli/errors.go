package cli

import (
	"fmt"
	"strings"
)

// CLIError represents a user-friendly error with context and suggestions.
type CLIError struct {
	Message    string
	Suggestion string
	Cause      error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	if e.Suggestion != "" {
		sb.WriteString("\n\nSuggestion: ")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// NewCLIError creates a new CLIError with a message and suggestion.
func NewCLIError(message, suggestion string) *CLIError {
	return &CLIError{
		Message:    message,
		Suggestion: suggestion,
	}
}

// WrapError wraps an existing error with additional context.
func WrapError(cause error, message, suggestion string) *CLIError {
	return &CLIError{
		Message:    message,
		Suggestion: suggestion,
		Cause:      cause,
	}
}

// =============================================================================
// Common CLI Errors
// =============================================================================

// ErrNotInitialized returns an error for a data directory without a config.
func ErrNotInitialized(dataDir string) *CLIError {
	return &CLIError{
		Message:    fmt.Sprintf("No configuration found in %s", dataDir),
		Suggestion: "Run 'ragctl init' to create one, or pass --data-dir",
	}
}

// ErrAlreadyInitialized returns an error when init finds an existing config.
func ErrAlreadyInitialized(path string) *CLIError {
	return &CLIError{
		Message:    fmt.Sprintf("Configuration already exists at %s", path),
		Suggestion: "Use 'ragctl config set <key> <value>' to change it",
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(cause error) *CLIError {
	return &CLIError{
		Message:    "Configuration is invalid",
		Suggestion: "Fix the listed keys with 'ragctl config set', or delete ragcore.yaml and run 'ragctl init'",
		Cause:      cause,
	}
}

// ErrServerConnectionFailed returns an error when the server cannot be reached.
func ErrServerConnectionFailed(url string, cause error) *CLIError {
	return &CLIError{
		Message:    fmt.Sprintf("Cannot connect to server at %s", url),
		Suggestion: "Start it with 'ragctl serve' or 'ragd', or drop --server to search the local index",
		Cause:      cause,
	}
}

// ErrEmptyQuery returns an error for empty search queries.
func ErrEmptyQuery() *CLIError {
	return &CLIError{
		Message:    "Search query cannot be empty",
		Suggestion: "Provide a search query, e.g., 'ragctl search \"refund policy\"'",
	}
}

// ErrInvalidChunking returns an error for unusable chunk size and overlap.
func ErrInvalidChunking(size, overlap int) *CLIError {
	return &CLIError{
		Message:    fmt.Sprintf("Invalid chunking: size %d, overlap %d", size, overlap),
		Suggestion: "Chunk size must be at least 1 and overlap must be between 0 and size-1",
	}
}

// ErrIndexFailed returns an error when indexing fails.
func ErrIndexFailed(cause error) *CLIError {
	return &CLIError{
		Message:    "Failed to index",
		Suggestion: "Check that the path exists and that the embedding provider is reachable with 'ragctl status'",
		Cause:      cause,
	}
}

// ErrNoSearchResults returns a message for empty search results.
func ErrNoSearchResults(query string) *CLIError {
	return &CLIError{
		Message:    fmt.Sprintf("No results found for query: %s", query),
		Suggestion: "Try a different query or lower --min-score, or check that documents were indexed with 'ragctl status'",
	}
}
