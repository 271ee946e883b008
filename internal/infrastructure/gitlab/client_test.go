package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linebyline/covgate/internal/application"
)

func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, string) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := NewClient("test-token", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return c, server.URL
}

func TestFindCoverageComment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/projects/42/merge_requests/5/notes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("PRIVATE-TOKEN"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprintf(w, `[{"id": 8, "body": "%s\nreport"}]`, application.CommentMarker)
			return
		}
		w.Header().Set("X-Next-Page", "2")
		fmt.Fprint(w, `[{"id": 7, "body": "lgtm"}]`)
	})

	c, _ := newTestClient(t, mux)
	id, err := c.FindCoverageComment(context.Background(), "", "42", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
}

func TestFindCoverageCommentNone(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/projects/42/merge_requests/5/notes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	})

	c, _ := newTestClient(t, mux)
	id, err := c.FindCoverageComment(context.Background(), "", "42", 5)
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestFindCoverageCommentAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/projects/42/merge_requests/5/notes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "403 Forbidden"}`)
	})

	c, _ := newTestClient(t, mux)
	_, err := c.FindCoverageComment(context.Background(), "", "42", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "42!5")
}

func TestCreateComment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/projects/{pid}/merge_requests/5/notes", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "body text", payload["body"])
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 31, "body": "body text"}`)
	})

	c, baseURL := newTestClient(t, mux)

	id, url, err := c.CreateComment(context.Background(), "", "42", 5, "body text")
	require.NoError(t, err)
	assert.Equal(t, int64(31), id)
	assert.Empty(t, url)

	id, url, err = c.CreateComment(context.Background(), "acme", "shop", 5, "body text")
	require.NoError(t, err)
	assert.Equal(t, int64(31), id)
	assert.Equal(t, baseURL+"/acme/shop/-/merge_requests/5#note_31", url)
}

func TestUpdateComment(t *testing.T) {
	var called bool
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v4/projects/42/merge_requests/5/notes/31", func(w http.ResponseWriter, r *http.Request) {
		called = true
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "new body", payload["body"])
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 31, "body": "new body"}`)
	})

	c, _ := newTestClient(t, mux)
	require.NoError(t, c.UpdateComment(context.Background(), "", "42", 5, 31, "new body"))
	assert.True(t, called)
}

func TestProjectID(t *testing.T) {
	assert.Equal(t, "42", projectID("", "42"))
	assert.Equal(t, "acme/shop", projectID("acme", "shop"))
}

func TestProvider(t *testing.T) {
	c, err := NewClient("token", WithBaseURL("https://gitlab.example.com"))
	require.NoError(t, err)
	assert.Equal(t, application.ProviderGitLab, c.Provider())
}
