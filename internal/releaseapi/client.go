// Package releaseapi pushes prepared batches to the release API server.
package releaseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/releaseboard/internal/core"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 2048

// IngestResponse is the server's reply to a successful push.
type IngestResponse struct {
	Message string `json:"message"`
	Rows    int    `json:"rows"`
	BatchID string `json:"batch_id"`
}

// Client posts batches to the ingest endpoint.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewClient creates a client for the ingest URL. timeout bounds each push.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// Push replaces the server's batch with rows.
func (c *Client) Push(ctx context.Context, rows []*core.Row) (*IngestResponse, error) {
	if rows == nil {
		rows = []*core.Row{}
	}
	body, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &PushError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ingest response: %w", err)
	}
	return &out, nil
}

// PushError is a non-2xx reply from the ingest endpoint.
type PushError struct {
	Status int
	Body   string
}

func (e *PushError) Error() string {
	return fmt.Sprintf("ingest rejected: %d - %s", e.Status, e.Body)
}

// Unauthorized reports whether the server rejected the API key.
// These are never retried.
func (e *PushError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}
