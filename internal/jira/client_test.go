package jira

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/releaseboard/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatIssues = `{"issues":[{"key":"REL-1","fields":{"summary":"Ship billing","status":{"name":"Done"},"assignee":{"displayName":"Ana"}}}]}`

// fakeJira serves project listing and scripted search replies.
type fakeJira struct {
	t        *testing.T
	projects string
	get      []reply
	post     reply

	mu       sync.Mutex
	gets     []string // jql of each GET search
	postBody map[string]any
	auth     []string
}

type reply struct {
	status int
	body   string
}

func (f *fakeJira) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(projectSearchPath, func(w http.ResponseWriter, r *http.Request) {
		f.recordAuth(r)
		_, _ = w.Write([]byte(f.projects))
	})
	mux.HandleFunc(issueSearchPath, func(w http.ResponseWriter, r *http.Request) {
		f.recordAuth(r)
		f.mu.Lock()
		defer f.mu.Unlock()

		var rep reply
		switch r.Method {
		case http.MethodGet:
			assert.Equal(f.t, "summary,status,assignee,created,updated", r.URL.Query().Get("fields"))
			f.gets = append(f.gets, r.URL.Query().Get("jql"))
			i := len(f.gets) - 1
			if i >= len(f.get) {
				i = len(f.get) - 1
			}
			rep = f.get[i]
		case http.MethodPost:
			b, _ := io.ReadAll(r.Body)
			assert.NoError(f.t, json.Unmarshal(b, &f.postBody))
			assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))
			rep = f.post
		}
		w.WriteHeader(rep.status)
		_, _ = w.Write([]byte(rep.body))
	})
	return mux
}

func (f *fakeJira) recordAuth(r *http.Request) {
	user, pass, _ := r.BasicAuth()
	f.mu.Lock()
	f.auth = append(f.auth, user+":"+pass)
	f.mu.Unlock()
}

func newFake(t *testing.T, f *fakeJira) *Client {
	t.Helper()
	f.t = t
	if f.projects == "" {
		f.projects = `{"values":[{"key":"REL"},{"key":"OPS"}]}`
	}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/", Email: "ops@example.com", APIToken: "tok", Timeout: time.Second})
}

func defaultSearch() SearchOptions {
	return SearchOptions{Days: 30, RetryDays: 7, MaxResults: 25}
}

func TestBuildBoundedJQL(t *testing.T) {
	assert.Equal(t,
		"project = REL AND issuetype in standardIssueTypes() AND updated >= -30d ORDER BY created DESC",
		BuildBoundedJQL("REL", 30))
}

func TestResolveProjectKey(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		want      string
	}{
		{"no preference", "", "REL"},
		{"preferred accessible", "OPS", "OPS"},
		{"preferred missing", "NOPE", "REL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFake(t, &fakeJira{})
			got, err := c.ResolveProjectKey(context.Background(), tt.preferred)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveProjectKey_NoProjects(t *testing.T) {
	c := newFake(t, &fakeJira{projects: `{"values":[]}`})
	_, err := c.ResolveProjectKey(context.Background(), "")
	assert.ErrorContains(t, err, "no accessible jira project")
}

func TestListProjectKeys_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("forbidden"))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second})
	_, err := c.ListProjectKeys(context.Background())

	var upstream *core.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Len(t, upstream.Failures, 1)
	assert.Equal(t, http.StatusForbidden, upstream.Failures[0].Status)
	assert.Equal(t, "forbidden", upstream.Failures[0].Body)
}

func TestSearch_GetSucceeds(t *testing.T) {
	f := &fakeJira{get: []reply{{http.StatusOK, flatIssues}}}
	c := newFake(t, f)

	issues, err := c.Search(context.Background(), defaultSearch())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "REL-1 | Ship billing | Done | Ana", issues[0].Line())

	require.Len(t, f.gets, 1)
	assert.Contains(t, f.gets[0], "updated >= -30d")
	assert.Nil(t, f.postBody)
	for _, a := range f.auth {
		assert.Equal(t, "ops@example.com:tok", a)
	}
}

func TestSearch_RetriesNarrowerWindowOnUnbound(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		days     int
		wantDays string
	}{
		{"english", `{"errorMessages":["Unbounded JQL queries are not allowed"]}`, 30, "-7d"},
		{"french", `{"errorMessages":["Requête JQL non liée"]}`, 30, "-7d"},
		{"window already narrow", `unbound`, 3, "-3d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeJira{get: []reply{{http.StatusBadRequest, tt.body}, {http.StatusOK, flatIssues}}}
			c := newFake(t, f)

			opts := defaultSearch()
			opts.Days = tt.days
			issues, err := c.Search(context.Background(), opts)
			require.NoError(t, err)
			assert.Len(t, issues, 1)

			require.Len(t, f.gets, 2)
			assert.Contains(t, f.gets[1], "updated >= "+tt.wantDays)
			assert.Nil(t, f.postBody)
		})
	}
}

func TestSearch_FallsBackToPost(t *testing.T) {
	f := &fakeJira{
		get:  []reply{{http.StatusGone, "endpoint moved"}},
		post: reply{http.StatusOK, `{"results":[{"issues":[{"key":"REL-9","fields":{"summary":"Grouped"}}]}]}`},
	}
	c := newFake(t, f)

	issues, err := c.Search(context.Background(), defaultSearch())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "REL-9 | Grouped | - | -", issues[0].Line())

	require.Len(t, f.gets, 1, "no narrowed retry without an unbound rejection")
	require.NotNil(t, f.postBody)
	assert.Equal(t, f.gets[0], f.postBody["jql"])
	assert.EqualValues(t, 0, f.postBody["startAt"])
	assert.EqualValues(t, 25, f.postBody["maxResults"])
	assert.Equal(t, []any{"summary", "status", "assignee", "created", "updated"}, f.postBody["fields"])
}

func TestSearch_PostUsesNarrowedQueryAfterFailedRetry(t *testing.T) {
	f := &fakeJira{
		get:  []reply{{http.StatusBadRequest, "unbound"}, {http.StatusBadRequest, "still bad"}},
		post: reply{http.StatusOK, flatIssues},
	}
	c := newFake(t, f)

	_, err := c.Search(context.Background(), defaultSearch())
	require.NoError(t, err)
	require.Len(t, f.gets, 2)
	assert.Contains(t, f.postBody["jql"], "-7d")
}

func TestSearch_AllAttemptsFail(t *testing.T) {
	f := &fakeJira{
		get:  []reply{{http.StatusBadRequest, "unbound query"}, {http.StatusBadRequest, "retry failed"}},
		post: reply{http.StatusInternalServerError, "post failed"},
	}
	c := newFake(t, f)

	_, err := c.Search(context.Background(), defaultSearch())
	require.Error(t, err)

	var upstream *core.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Len(t, upstream.Failures, 2)
	assert.Equal(t, http.MethodGet, upstream.Failures[0].Method)
	assert.Equal(t, "unbound query", upstream.Failures[0].Body)
	assert.Equal(t, http.MethodPost, upstream.Failures[1].Method)
	assert.Equal(t, http.StatusInternalServerError, upstream.Failures[1].Status)
	assert.Equal(t, "UPS001", core.MapError(err).Code)
}

func TestSearch_CustomJQL(t *testing.T) {
	f := &fakeJira{get: []reply{{http.StatusOK, `{"issues":[]}`}}}
	c := newFake(t, f)

	opts := defaultSearch()
	opts.JQL = "project = OPS ORDER BY key"
	issues, err := c.Search(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, []string{"project = OPS ORDER BY key"}, f.gets)
}

func TestParseSearchResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		keys []string
	}{
		{"flat", flatIssues, []string{"REL-1"}},
		{"grouped", `{"results":[{"issues":[{"key":"A-1"},{"key":"A-2"}]},{"issues":[{"key":"B-1"}]}]}`, []string{"A-1", "A-2"}},
		{"grouped empty", `{"results":[]}`, nil},
		{"nothing", `{}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := ParseSearchResponse([]byte(tt.body))
			require.NoError(t, err)
			var keys []string
			for _, it := range issues {
				keys = append(keys, it.Key)
			}
			assert.Equal(t, tt.keys, keys)
		})
	}

	_, err := ParseSearchResponse([]byte("not json"))
	assert.Error(t, err)
}

func TestIssueLine_Placeholders(t *testing.T) {
	var it Issue
	assert.Equal(t, "- | - | - | -", it.Line())
	assert.True(t, strings.Count(it.Line(), "|") == 3)
}
