// Package github posts coverage reports as GitHub pull request comments.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/linebyline/covgate/internal/application"
)

// Client implements the PRClient interface for the GitHub REST API.
type Client struct {
	api *github.Client
}

var _ application.PRClient = (*Client)(nil)

// Option configures the client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	apiURL     string
}

// WithHTTPClient sets the transport used for API calls. The token is not
// attached to a custom client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithAPIURL points the client at a GitHub Enterprise or test server.
func WithAPIURL(u string) Option {
	return func(o *options) {
		o.apiURL = u
	}
}

// NewClient creates a new GitHub client.
// Token is read from GITHUB_TOKEN environment variable if not provided.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	o := options{apiURL: os.Getenv("GITHUB_API_URL")}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil && token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), src)
	}

	api := github.NewClient(httpClient)
	if o.apiURL != "" {
		base, err := url.Parse(strings.TrimSuffix(o.apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse GitHub API URL: %w", err)
		}
		api.BaseURL = base
	}
	return &Client{api: api}, nil
}

// Provider returns the provider type.
func (c *Client) Provider() application.PRProvider {
	return application.ProviderGitHub
}

// FindCoverageComment returns the ID of the first PR comment carrying the
// covgate marker, or 0 if there is none.
func (c *Client) FindCoverageComment(ctx context.Context, owner, repo string, prNumber int) (int64, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100, Page: 1},
	}
	for {
		comments, resp, err := c.api.Issues.ListComments(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return 0, fmt.Errorf("list comments on %s/%s#%d: %w", owner, repo, prNumber, err)
		}
		for _, comment := range comments {
			if strings.Contains(comment.GetBody(), application.CommentMarker) {
				slog.Debug("Found existing coverage comment", "id", comment.GetID(), "pr", prNumber)
				return comment.GetID(), nil
			}
		}
		if resp.NextPage == 0 {
			return 0, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateComment creates a new comment on a PR and returns its ID and URL.
func (c *Client) CreateComment(ctx context.Context, owner, repo string, prNumber int, body string) (int64, string, error) {
	comment, _, err := c.api.Issues.CreateComment(ctx, owner, repo, prNumber, &github.IssueComment{Body: github.Ptr(body)})
	if err != nil {
		return 0, "", fmt.Errorf("create comment on %s/%s#%d: %w", owner, repo, prNumber, err)
	}
	return comment.GetID(), comment.GetHTMLURL(), nil
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, owner, repo string, _ int, commentID int64, body string) error {
	if _, _, err := c.api.Issues.EditComment(ctx, owner, repo, commentID, &github.IssueComment{Body: github.Ptr(body)}); err != nil {
		return fmt.Errorf("edit comment %d: %w", commentID, err)
	}
	return nil
}
