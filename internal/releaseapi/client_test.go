package releaseapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/releaseboard/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush_Success(t *testing.T) {
	var gotAuth, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"2 rows received.","rows":2,"batch_id":"b-1"}`))
	}))
	defer srv.Close()

	rows := []*core.Row{
		core.NewRow("Application", "A", core.IDField, "a"),
		core.NewRow("Application", "B", core.IDField, "b"),
	}
	resp, err := NewClient(srv.URL, "k", time.Second).Push(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `[{"Application":"A","__id":"a"},{"Application":"B","__id":"b"}]`, gotBody)
	assert.Equal(t, 2, resp.Rows)
	assert.Equal(t, "b-1", resp.BatchID)
}

func TestPush_EmptyBatchSendsList(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"message":"0 rows received.","rows":0}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", time.Second).Push(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", gotBody)
}

func TestPush_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad", time.Second).Push(context.Background(), []*core.Row{})
	require.Error(t, err)

	var pushErr *PushError
	require.True(t, errors.As(err, &pushErr))
	assert.Equal(t, http.StatusUnauthorized, pushErr.Status)
	assert.True(t, pushErr.Unauthorized())
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestPush_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, "k", 50*time.Millisecond).Push(context.Background(), []*core.Row{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push batch")
}
