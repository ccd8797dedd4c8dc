package github

import "time"

// Remote identifies a repository on the hosting platform.
type Remote struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (r Remote) String() string {
	return r.Owner + "/" + r.Repo
}

type PullRequestState string

const (
	PullRequestOpen   PullRequestState = "open"
	PullRequestClosed PullRequestState = "closed"
	PullRequestMerged PullRequestState = "merged"
)

type PullRequest struct {
	Number      int              `json:"number"`
	Title       string           `json:"title"`
	State       PullRequestState `json:"state"`
	URL         string           `json:"url"`
	AuthorLogin string           `json:"author"`
	CreatedAt   time.Time        `json:"createdAt"`
	MergedAt    *time.Time       `json:"mergedAt,omitempty"`
}

type Issue struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	State  string   `json:"state"`
	URL    string   `json:"url"`
	Labels []string `json:"labels"`
}

type RateLimitStatus struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"resetAt"`
}

// Enrichment is the GitHub context attached to one commit.
type Enrichment struct {
	PullRequests []PullRequest `json:"pullRequests"`
	LinkedIssues []Issue       `json:"linkedIssues"`
}
