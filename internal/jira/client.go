// Package jira is a read-only client for the Jira Cloud REST API, used by
// the sync job to cross-reference recently updated issues.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/releaseboard/internal/core"
)

const (
	projectSearchPath = "/rest/api/3/project/search"
	issueSearchPath   = "/rest/api/3/search/jql"

	// maxErrorBody caps how much of a failed response is kept.
	maxErrorBody = 2048
)

// searchFields are requested for every issue.
var searchFields = []string{"summary", "status", "assignee", "created", "updated"}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Email      string
	APIToken   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to one Jira site with basic auth.
type Client struct {
	baseURL  string
	email    string
	apiToken string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a Client. A nil HTTPClient gets one bounded by Timeout.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		email:    opts.Email,
		apiToken: opts.APIToken,
		http:     hc,
		logger:   logger.With("component", "jira"),
	}
}

// ListProjectKeys returns the keys of every project the account can see.
func (c *Client) ListProjectKeys(ctx context.Context) ([]string, error) {
	var page struct {
		Values []struct {
			Key string `json:"key"`
		} `json:"values"`
	}

	u := c.baseURL + projectSearchPath
	status, body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &core.UpstreamError{Service: "jira", Op: "list projects", Failures: []core.UpstreamFailure{
			{Method: http.MethodGet, URL: u, Err: err},
		}}
	}
	if status != http.StatusOK {
		return nil, &core.UpstreamError{Service: "jira", Op: "list projects", Failures: []core.UpstreamFailure{
			{Method: http.MethodGet, URL: u, Status: status, Body: body},
		}}
	}
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		return nil, fmt.Errorf("decode project search: %w", err)
	}

	keys := make([]string, 0, len(page.Values))
	for _, p := range page.Values {
		if p.Key != "" {
			keys = append(keys, p.Key)
		}
	}
	return keys, nil
}

// ResolveProjectKey picks preferred when it is accessible, otherwise the
// first accessible project.
func (c *Client) ResolveProjectKey(ctx context.Context, preferred string) (string, error) {
	keys, err := c.ListProjectKeys(ctx)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("no accessible jira project (check account permissions)")
	}

	if preferred != "" {
		for _, k := range keys {
			if k == preferred {
				c.logger.Info("using preferred project", "project", preferred)
				return preferred, nil
			}
		}
		c.logger.Warn("preferred project not accessible", "project", preferred, "available", strings.Join(keys, ", "))
	}

	c.logger.Info("using project", "project", keys[0])
	return keys[0], nil
}

// BuildBoundedJQL returns a query over standard issues of project updated in
// the last days days, newest first. Jira Cloud rejects unbounded queries.
func BuildBoundedJQL(projectKey string, days int) string {
	return fmt.Sprintf(
		"project = %s AND issuetype in standardIssueTypes() AND updated >= -%dd ORDER BY created DESC",
		projectKey, days,
	)
}

// do sends a request and returns status and a capped body. err is set only
// for transport failures.
func (c *Client) do(ctx context.Context, method, u string, payload any) (int, string, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, "", fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, "", err
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, "", fmt.Errorf("read response: %w", err)
		}
		return resp.StatusCode, string(b), nil
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, strings.TrimSpace(string(b)), nil
}

// searchURL encodes a GET search.
func (c *Client) searchURL(jql string, maxResults int) string {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("maxResults", fmt.Sprint(maxResults))
	q.Set("fields", strings.Join(searchFields, ","))
	return c.baseURL + issueSearchPath + "?" + q.Encode()
}
