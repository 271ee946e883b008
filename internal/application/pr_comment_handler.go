package application

import (
	"bytes"
	"context"
	"fmt"
)

// PRCommentHandler handles PR comment operations.
type PRCommentHandler struct {
	Check     *CheckHandler
	Reporter  Reporter
	PRClients map[PRProvider]PRClient
}

// PRComment posts the markdown check report as a comment on a PR/MR.
func (h *PRCommentHandler) PRComment(ctx context.Context, opts PRCommentOptions) (PRCommentResult, error) {
	if h.Reporter == nil {
		return PRCommentResult{}, fmt.Errorf("reporter not configured")
	}

	provider := opts.Provider
	if provider == "" || provider == ProviderAuto {
		provider = detectProvider()
	}

	var client PRClient
	if !opts.DryRun {
		client = h.PRClients[provider]
		if client == nil {
			return PRCommentResult{}, fmt.Errorf("%s client not configured", provider)
		}
	}

	result, _, err := h.Check.CheckResult(ctx, opts.Check)
	if err != nil {
		return PRCommentResult{}, fmt.Errorf("evaluate coverage rules: %w", err)
	}

	var body bytes.Buffer
	if err := h.Reporter.Write(&body, result, OutputMarkdown); err != nil {
		return PRCommentResult{}, fmt.Errorf("render comment: %w", err)
	}
	commentBody := body.String()
	passed := result.Passed()

	if opts.DryRun {
		return PRCommentResult{
			CommentBody: commentBody,
			Passed:      passed,
		}, nil
	}

	owner, repo := opts.Owner, opts.Repo
	if provider == ProviderGitLab && opts.ProjectID != "" {
		owner, repo = "", opts.ProjectID
	}

	if opts.UpdateExisting {
		existingID, err := client.FindCoverageComment(ctx, owner, repo, opts.PRNumber)
		if err != nil {
			return PRCommentResult{}, fmt.Errorf("find existing comment: %w", err)
		}

		if existingID != 0 {
			if err := client.UpdateComment(ctx, owner, repo, opts.PRNumber, existingID, commentBody); err != nil {
				return PRCommentResult{}, fmt.Errorf("update comment: %w", err)
			}
			return PRCommentResult{
				CommentID:   existingID,
				CommentBody: commentBody,
				Created:     false,
				Passed:      passed,
			}, nil
		}
	}

	commentID, commentURL, err := client.CreateComment(ctx, owner, repo, opts.PRNumber, commentBody)
	if err != nil {
		return PRCommentResult{}, fmt.Errorf("create comment: %w", err)
	}

	return PRCommentResult{
		CommentID:   commentID,
		CommentURL:  commentURL,
		CommentBody: commentBody,
		Created:     true,
		Passed:      passed,
	}, nil
}
