// Package gitlab posts coverage reports as GitLab merge request notes.
package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"gitlab.com/gitlab-org/api/client-go"

	"github.com/linebyline/covgate/internal/application"
)

// DefaultBaseURL is used when neither an option nor CI_SERVER_URL is set.
const DefaultBaseURL = "https://gitlab.com"

// Client implements the PRClient interface for the GitLab API.
type Client struct {
	api     *gitlab.Client
	baseURL string
}

var _ application.PRClient = (*Client)(nil)

// Option configures the client.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the client at a self-hosted GitLab or a test server.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithHTTPClient sets the transport used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// NewClient creates a new GitLab client.
// Token is read from GITLAB_TOKEN or CI_JOB_TOKEN environment variable if not provided.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		token = os.Getenv("GITLAB_TOKEN")
		if token == "" {
			token = os.Getenv("CI_JOB_TOKEN")
		}
	}
	o := options{baseURL: os.Getenv("CI_SERVER_URL")}
	for _, opt := range opts {
		opt(&o)
	}
	if o.baseURL == "" {
		o.baseURL = DefaultBaseURL
	}

	clientOpts := []gitlab.ClientOptionFunc{gitlab.WithBaseURL(o.baseURL)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, gitlab.WithHTTPClient(o.httpClient))
	}
	api, err := gitlab.NewClient(token, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}
	return &Client{api: api, baseURL: strings.TrimSuffix(o.baseURL, "/")}, nil
}

// Provider returns the provider type.
func (c *Client) Provider() application.PRProvider {
	return application.ProviderGitLab
}

// projectID accepts either owner and repo, or an empty owner with a numeric
// or full-path project ID in repo.
func projectID(owner, repo string) string {
	if owner == "" {
		return repo
	}
	return owner + "/" + repo
}

// FindCoverageComment returns the ID of the first MR note carrying the
// covgate marker, or 0 if there is none.
func (c *Client) FindCoverageComment(ctx context.Context, owner, repo string, mrNumber int) (int64, error) {
	pid := projectID(owner, repo)
	opts := &gitlab.ListMergeRequestNotesOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100, Page: 1},
	}
	for {
		notes, resp, err := c.api.Notes.ListMergeRequestNotes(pid, int64(mrNumber), opts, gitlab.WithContext(ctx))
		if err != nil {
			return 0, fmt.Errorf("list notes on %s!%d: %w", pid, mrNumber, err)
		}
		for _, n := range notes {
			if strings.Contains(n.Body, application.CommentMarker) {
				slog.Debug("Found existing coverage note", "id", n.ID, "mr", mrNumber)
				return int64(n.ID), nil
			}
		}
		if resp.NextPage == 0 {
			return 0, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateComment creates a new note on a MR and returns its ID and URL.
func (c *Client) CreateComment(ctx context.Context, owner, repo string, mrNumber int, body string) (int64, string, error) {
	pid := projectID(owner, repo)
	n, _, err := c.api.Notes.CreateMergeRequestNote(pid, int64(mrNumber), &gitlab.CreateMergeRequestNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return 0, "", fmt.Errorf("create note on %s!%d: %w", pid, mrNumber, err)
	}
	return int64(n.ID), c.noteURL(pid, mrNumber, int64(n.ID)), nil
}

// UpdateComment replaces the body of an existing note.
func (c *Client) UpdateComment(ctx context.Context, owner, repo string, mrNumber int, commentID int64, body string) error {
	pid := projectID(owner, repo)
	_, _, err := c.api.Notes.UpdateMergeRequestNote(pid, int64(mrNumber), commentID, &gitlab.UpdateMergeRequestNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("update note %d on %s!%d: %w", commentID, pid, mrNumber, err)
	}
	return nil
}

// noteURL builds the web link of a note. Numeric project IDs have no
// web path, so no URL is returned for them.
func (c *Client) noteURL(pid string, mrNumber int, noteID int64) string {
	if !strings.Contains(pid, "/") {
		return ""
	}
	return fmt.Sprintf("%s/%s/-/merge_requests/%d#note_%d", c.baseURL, pid, mrNumber, noteID)
}
