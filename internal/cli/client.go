package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/api"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// remoteFailure matches how the server encodes a search.SourceError.
type remoteFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// remoteSearchResponse matches the server's search response format
type remoteSearchResponse struct {
	Query        string               `json:"query"`
	Status       search.Status        `json:"status"`
	Results      []models.FinalResult `json:"results"`
	TotalResults int                  `json:"totalResults"`
	Failures     []remoteFailure      `json:"failures"`
	Strategy     search.StrategyKind  `json:"strategy"`
	Filter       string               `json:"filter"`
	Rescored     bool                 `json:"rescored"`
	TimingsMs    map[string]float64   `json:"timingsMs"`
	SearchTimeMs int64                `json:"searchTimeMs"`
}

// Client provides methods to communicate with a running ragd server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. A bare host:port is
// treated as http.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Health checks if the server is healthy
func (c *Client) Health(ctx context.Context) (*daemon.HealthReport, error) {
	var health daemon.HealthReport
	if err := c.do(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Search runs a search on the server.
func (c *Client) Search(ctx context.Context, req api.SearchRequest) (*search.Response, error) {
	var remote remoteSearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", req, &remote); err != nil {
		return nil, err
	}

	resp := &search.Response{
		Query:        remote.Query,
		Status:       remote.Status,
		Results:      remote.Results,
		TotalResults: remote.TotalResults,
		Strategy:     remote.Strategy,
		Filter:       remote.Filter,
		Rescored:     remote.Rescored,
		TimingsMs:    remote.TimingsMs,
		SearchTimeMs: remote.SearchTimeMs,
	}
	for _, f := range remote.Failures {
		resp.Failures = append(resp.Failures, &search.SourceError{Source: f.Source, Err: errors.New(f.Error)})
	}
	return resp, nil
}

// Ingest sends one document to the server.
func (c *Client) Ingest(ctx context.Context, req api.IngestRequest) (*models.Document, error) {
	var doc models.Document
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents", req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// do sends body as JSON and decodes a 2xx response into out. Error bodies
// are decoded as api.APIError when possible.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrServerConnectionFailed(c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var apiErr api.APIError
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Code != "" {
			return apiErr
		}
		return fmt.Errorf("%s %s failed: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
