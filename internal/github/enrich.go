package github

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thiagokokada/githistory/internal/cache"
	"github.com/thiagokokada/githistory/internal/git"
	"github.com/thiagokokada/githistory/internal/progress"
)

// Progress steps reported by Enrich, in order.
const (
	StepPullRequests    = "pull_requests"
	StepIssueReferences = "issue_references"
	StepIssue           = "issue"
)

const (
	DefaultPullRequestTTL      = 5 * time.Minute
	DefaultPullRequestCapacity = 500
	DefaultIssueTTL            = 10 * time.Minute
	DefaultIssueCapacity       = 1000
)

// Enricher attaches pull requests and linked issues to commits. Lookups go
// through the caches first; cached pull request lists include empty ones.
type Enricher struct {
	client     *Client
	prCache    cache.Store[[]PullRequest]
	issueCache cache.Store[Issue]
}

// NewEnricher uses in-memory caches with default sizing for any nil store.
func NewEnricher(client *Client, prCache cache.Store[[]PullRequest], issueCache cache.Store[Issue]) *Enricher {
	if prCache == nil {
		prCache = cache.NewTTL[[]PullRequest](DefaultPullRequestCapacity, DefaultPullRequestTTL)
	}
	if issueCache == nil {
		issueCache = cache.NewTTL[Issue](DefaultIssueCapacity, DefaultIssueTTL)
	}
	return &Enricher{client: client, prCache: prCache, issueCache: issueCache}
}

func (e *Enricher) Client() *Client {
	return e.client
}

// Enrich runs the pull request lookup, issue reference extraction and issue
// fetches in that order, reporting each step to r. Individual lookup failures
// are reported and skipped; only cancellation of ctx fails the call.
func (e *Enricher) Enrich(ctx context.Context, owner, repo string, commit git.Commit, r progress.Reporter) (*Enrichment, error) {
	if r == nil {
		r = progress.Discard
	}
	report := func(step string, status progress.Status, msg string, data map[string]any) {
		r.Report(ctx, progress.Event{Step: step, Status: status, Message: msg, Data: data})
	}

	report(StepPullRequests, progress.StatusStart, "Searching pull requests containing "+commit.ShortHash, nil)
	prs, err := e.pullRequests(ctx, owner, repo, commit.Hash)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("pull request lookup failed",
			slog.String("repo", owner+"/"+repo),
			slog.String("commit", commit.Hash),
			slog.Any("error", err),
		)
		report(StepPullRequests, progress.StatusError, err.Error(), map[string]any{"errorKind": ErrorKind(err)})
		prs = []PullRequest{}
	} else {
		report(StepPullRequests, progress.StatusSuccess, fmt.Sprintf("Found %d pull request(s)", len(prs)), map[string]any{"count": len(prs)})
	}

	refs := ExtractIssueReferences(commit.Subject, commit.Body)
	report(StepIssueReferences, progress.StatusInfo, fmt.Sprintf("Found %d issue reference(s)", len(refs)), map[string]any{"issues": refs})

	issues := []Issue{}
	for _, number := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report(StepIssue, progress.StatusStart, fmt.Sprintf("Fetching issue #%d", number), map[string]any{"number": number})
		issue, err := e.issue(ctx, owner, repo, number)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("issue lookup failed",
				slog.String("repo", owner+"/"+repo),
				slog.Int("issue", number),
				slog.Any("error", err),
			)
			report(StepIssue, progress.StatusError, err.Error(), map[string]any{"number": number, "errorKind": ErrorKind(err)})
		case issue == nil:
			report(StepIssue, progress.StatusInfo, fmt.Sprintf("Issue #%d not found", number), map[string]any{"number": number})
		default:
			issues = append(issues, *issue)
			report(StepIssue, progress.StatusSuccess, fmt.Sprintf("Issue #%d: %s", number, issue.Title), map[string]any{"number": number})
		}
	}

	report(progress.StepComplete, progress.StatusSuccess,
		fmt.Sprintf("Found %d pull request(s) and %d issue(s)", len(prs), len(issues)),
		map[string]any{"pullRequests": len(prs), "issues": len(issues)},
	)
	return &Enrichment{PullRequests: prs, LinkedIssues: issues}, nil
}

func (e *Enricher) pullRequests(ctx context.Context, owner, repo, sha string) ([]PullRequest, error) {
	key := owner + "/" + repo + "/" + sha
	if prs, ok := e.prCache.Get(ctx, key); ok {
		slog.Debug("pull request cache hit", slog.String("key", key))
		return prs, nil
	}
	prs, err := e.client.ListPullRequestsForCommit(ctx, owner, repo, sha)
	if err != nil {
		return nil, err
	}
	e.prCache.Set(ctx, key, prs)
	return prs, nil
}

func (e *Enricher) issue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	key := fmt.Sprintf("%s/%s/issue/%d", owner, repo, number)
	if issue, ok := e.issueCache.Get(ctx, key); ok {
		slog.Debug("issue cache hit", slog.String("key", key))
		return &issue, nil
	}
	issue, err := e.client.GetIssue(ctx, owner, repo, number)
	if err != nil || issue == nil {
		return nil, err
	}
	e.issueCache.Set(ctx, key, *issue)
	return issue, nil
}
