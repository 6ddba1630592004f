package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/releaseboard/internal/core"
)

// placeholder stands in for missing issue fields in report lines.
const placeholder = "-"

// SearchOptions bounds an issue search.
type SearchOptions struct {
	// Project is the preferred project key; empty picks the first accessible one.
	Project string

	// JQL overrides the generated bounded query.
	JQL string

	// Days is the update window of the generated query.
	Days int

	// RetryDays is the narrower window used after an "unbound query" rejection.
	RetryDays int

	MaxResults int
}

// Issue is the subset of issue fields the sync job reports.
type Issue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  *struct {
			Name string `json:"name"`
		} `json:"status"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Created string `json:"created"`
		Updated string `json:"updated"`
	} `json:"fields"`
}

// StatusName returns the status name or the placeholder.
func (i Issue) StatusName() string {
	if i.Fields.Status == nil || i.Fields.Status.Name == "" {
		return placeholder
	}
	return i.Fields.Status.Name
}

// AssigneeName returns the assignee display name or the placeholder.
func (i Issue) AssigneeName() string {
	if i.Fields.Assignee == nil || i.Fields.Assignee.DisplayName == "" {
		return placeholder
	}
	return i.Fields.Assignee.DisplayName
}

// Line renders "key | summary | status | assignee".
func (i Issue) Line() string {
	key, summary := i.Key, i.Fields.Summary
	if key == "" {
		key = placeholder
	}
	if summary == "" {
		summary = placeholder
	}
	return strings.Join([]string{key, summary, i.StatusName(), i.AssigneeName()}, " | ")
}

// searchResponse accepts both the flat and the grouped result shape.
type searchResponse struct {
	Issues  []Issue `json:"issues"`
	Results []struct {
		Issues []Issue `json:"issues"`
	} `json:"results"`
}

// ParseSearchResponse extracts issues from a search reply.
func ParseSearchResponse(body []byte) ([]Issue, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if _, grouped := raw["results"]; grouped {
		if len(resp.Results) == 0 {
			return nil, nil
		}
		return resp.Results[0].Issues, nil
	}
	return resp.Issues, nil
}

// isUnboundRejection reports whether a 400 body complains about an
// unbounded query. Jira localizes the message.
func isUnboundRejection(status int, body string) bool {
	if status != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(body), "unbound") || strings.Contains(body, "non liée")
}

// Search resolves the project and runs a bounded issue search:
//  1. GET with the configured window
//  2. on an "unbound query" 400, GET again with min(RetryDays, Days)
//  3. otherwise, or if the retry fails, POST the same query
//
// When every attempt fails the returned *core.UpstreamError lists the first
// GET failure and the POST failure.
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]Issue, error) {
	project, err := c.ResolveProjectKey(ctx, opts.Project)
	if err != nil {
		return nil, err
	}

	jql := opts.JQL
	if jql == "" {
		jql = BuildBoundedJQL(project, opts.Days)
	}

	getURL := c.searchURL(jql, opts.MaxResults)
	c.logger.Info("searching issues", "jql", jql)
	c.logger.Debug("search request", "method", http.MethodGet, "url", getURL)

	issues, first, ok := c.attempt(ctx, http.MethodGet, getURL, nil)
	if ok {
		return c.report(issues), nil
	}

	if first.Err == nil && isUnboundRejection(first.Status, first.Body) {
		days := opts.Days
		if opts.RetryDays < days {
			days = opts.RetryDays
		}
		jql = BuildBoundedJQL(project, days)
		retryURL := c.searchURL(jql, opts.MaxResults)
		c.logger.Info("retrying with narrower window", "days", days, "jql", jql)

		issues, retry, ok := c.attempt(ctx, http.MethodGet, retryURL, nil)
		if ok {
			return c.report(issues), nil
		}
		c.logger.Warn("narrowed search failed", "failure", retry.String())
	}

	postURL := c.baseURL + issueSearchPath
	payload := map[string]any{
		"jql":        jql,
		"startAt":    0,
		"maxResults": opts.MaxResults,
		"fields":     searchFields,
	}
	c.logger.Info("falling back to POST search", "url", postURL, "jql", jql)

	issues, post, ok := c.attempt(ctx, http.MethodPost, postURL, payload)
	if ok {
		return c.report(issues), nil
	}

	return nil, &core.UpstreamError{
		Service:  "jira",
		Op:       "search",
		Failures: []core.UpstreamFailure{first, post},
	}
}

// attempt runs one search request. ok is false with the failure filled in
// when the request fails or returns anything but 200.
func (c *Client) attempt(ctx context.Context, method, u string, payload any) ([]Issue, core.UpstreamFailure, bool) {
	failure := core.UpstreamFailure{Method: method, URL: u}

	status, body, err := c.do(ctx, method, u, payload)
	if err != nil {
		failure.Err = err
		return nil, failure, false
	}
	if status != http.StatusOK {
		failure.Status, failure.Body = status, body
		return nil, failure, false
	}

	issues, err := ParseSearchResponse([]byte(body))
	if err != nil {
		failure.Status, failure.Err = status, err
		return nil, failure, false
	}
	return issues, failure, true
}

// report logs one line per issue.
func (c *Client) report(issues []Issue) []Issue {
	if len(issues) == 0 {
		c.logger.Warn("no issues found")
		return issues
	}
	for _, it := range issues {
		c.logger.Info(it.Line())
	}
	return issues
}
