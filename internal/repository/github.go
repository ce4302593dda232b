package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/models"
	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// maxInlineComments caps the inline comments attached to one review.
const maxInlineComments = 50

// GitHub implements PullRequests for GitHub and GitHub Enterprise.
type GitHub struct {
	client *gogithub.Client
}

// NewGitHub creates a GitHub client from the given configuration.
func NewGitHub(cfg config.GitHubConfig) (*GitHub, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("GitHub token not configured (set %s)", config.GitHubTokenEnv)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	client := gogithub.NewClient(tc)

	// Support GitHub Enterprise by overriding the base URL.
	if cfg.Host != "" && cfg.Host != "github.com" {
		base := fmt.Sprintf("https://%s/api/v3/", cfg.Host)
		upload := fmt.Sprintf("https://%s/api/uploads/", cfg.Host)
		var err error
		client, err = client.WithEnterpriseURLs(base, upload)
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub enterprise URLs: %w", err)
		}
	}

	return &GitHub{client: client}, nil
}

func (g *GitHub) setBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSuffix(raw, "/") + "/")
	if err != nil {
		return err
	}
	g.client.BaseURL = u
	return nil
}

// Diff downloads the pull request as a unified diff.
func (g *GitHub) Diff(ctx context.Context, ref PRRef) (string, error) {
	raw, _, err := g.client.PullRequests.GetRaw(ctx, ref.Owner, ref.Repo, ref.Number,
		gogithub.RawOptions{Type: gogithub.Diff})
	if err != nil {
		return "", fmt.Errorf("fetching diff for %s: %w", ref, err)
	}
	return raw, nil
}

// PublishReview posts a COMMENT review. Issues on lines the pull request
// touched become inline comments; the body carries the overall summary.
// It returns the review's HTML URL.
func (g *GitHub) PublishReview(ctx context.Context, ref PRRef, results []*models.ReviewResult) (string, error) {
	patch, err := g.Diff(ctx, ref)
	if err != nil {
		return "", err
	}
	changed, err := ChangedLines(patch)
	if err != nil {
		return "", err
	}

	comments := reviewComments(results, changed)
	req := &gogithub.PullRequestReviewRequest{
		Body:     gogithub.Ptr(reviewBody(results, len(comments))),
		Event:    gogithub.Ptr("COMMENT"),
		Comments: comments,
	}
	review, _, err := g.client.PullRequests.CreateReview(ctx, ref.Owner, ref.Repo, ref.Number, req)
	if err != nil {
		return "", fmt.Errorf("creating review on %s: %w", ref, err)
	}
	return review.GetHTMLURL(), nil
}

func reviewComments(results []*models.ReviewResult, changed map[string]map[int]bool) []*gogithub.DraftReviewComment {
	var comments []*gogithub.DraftReviewComment
	for _, r := range results {
		lines := changed[r.FilePath]
		for _, is := range r.Issues {
			if !lines[is.Line] || len(comments) >= maxInlineComments {
				continue
			}
			body := fmt.Sprintf("**[%s]** %s", strings.ToUpper(string(is.Level)), is.Message)
			if is.Suggestion != "" {
				body += "\n\nSuggestion: " + is.Suggestion
			}
			comments = append(comments, &gogithub.DraftReviewComment{
				Path: gogithub.Ptr(r.FilePath),
				Line: gogithub.Ptr(is.Line),
				Side: gogithub.Ptr("RIGHT"),
				Body: gogithub.Ptr(body),
			})
		}
	}
	return comments
}

func reviewBody(results []*models.ReviewResult, inline int) string {
	var b strings.Builder
	b.WriteString("## DevBuddy review\n\n")
	total := 0
	for _, r := range results {
		if !r.Success {
			fmt.Fprintf(&b, "- `%s`: review failed: %s\n", r.FilePath, r.Error)
			continue
		}
		total += len(r.Issues)
		fmt.Fprintf(&b, "- `%s`: %s\n", r.FilePath, r.Summary)
	}
	fmt.Fprintf(&b, "\n%d issue(s) found, %d posted inline.\n", total, inline)
	return b.String()
}
