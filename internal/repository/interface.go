package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// PullRequests abstracts the hosting platform operations the PR review
// command needs.
type PullRequests interface {
	// Diff returns the unified diff of the pull request.
	Diff(ctx context.Context, ref PRRef) (string, error)

	// PublishReview posts the review results as a single review with inline
	// comments on the changed lines that have issues.
	PublishReview(ctx context.Context, ref PRRef, results []*models.ReviewResult) (string, error)
}

// PRRef identifies a pull request as owner/repo#number.
type PRRef struct {
	Owner  string
	Repo   string
	Number int
}

func (r PRRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// ParsePRRef accepts "owner/repo#123" or a GitHub pull request URL
// (https://github.com/owner/repo/pull/123).
func ParsePRRef(s string) (PRRef, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "://") {
		parts := strings.Split(strings.TrimSuffix(s, "/"), "/")
		// scheme, "", host, owner, repo, "pull", number
		if len(parts) >= 7 && parts[len(parts)-2] == "pull" {
			n, err := strconv.Atoi(parts[len(parts)-1])
			if err == nil && n > 0 {
				return PRRef{Owner: parts[len(parts)-4], Repo: parts[len(parts)-3], Number: n}, nil
			}
		}
		return PRRef{}, fmt.Errorf("invalid pull request URL %q", s)
	}

	repo, num, ok := strings.Cut(s, "#")
	if !ok {
		return PRRef{}, fmt.Errorf("invalid pull request %q: expected owner/repo#number", s)
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return PRRef{}, fmt.Errorf("invalid pull request %q: expected owner/repo#number", s)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return PRRef{}, fmt.Errorf("invalid pull request number %q", num)
	}
	return PRRef{Owner: owner, Repo: name, Number: n}, nil
}
