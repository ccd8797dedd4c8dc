package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v75/github"
)

const (
	DefaultAPIURL  = "https://api.github.com/"
	DefaultTimeout = 15 * time.Second

	acceptHeader = "application/vnd.github+json"
	apiVersion   = "2022-11-28"
)

type ClientOptions struct {
	// APIURL is the REST root, DefaultAPIURL when empty.
	APIURL     string
	Token      string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client performs rate-aware REST calls. Not-found responses are reported as
// absent values; every other failure is one of the typed errors in this
// package. Client is safe for concurrent use; SetToken affects calls started
// afterwards.
type Client struct {
	mu       sync.Mutex
	http     *http.Client
	baseURL  *url.URL
	agent    string
	api      *gh.Client
	lastRate *RateLimitStatus
}

func NewClient(opts ClientOptions) (*Client, error) {
	raw := opts.APIURL
	if raw == "" {
		raw = DefaultAPIURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	baseURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse github api url %q: %w", opts.APIURL, err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	withHeaders := *httpClient
	withHeaders.Transport = &headerTransport{base: base}

	c := &Client{http: &withHeaders, baseURL: baseURL, agent: opts.UserAgent}
	c.api = c.newAPI(opts.Token)
	return c, nil
}

func (c *Client) newAPI(token string) *gh.Client {
	api := gh.NewClient(c.http)
	api.BaseURL = c.baseURL
	if c.agent != "" {
		api.UserAgent = c.agent
	}
	if token != "" {
		api = api.WithAuthToken(token)
	}
	// Quota headers are only reported; calls always reach the API.
	api.DisableRateLimitCheck = true
	return api
}

// SetToken replaces the credential; an empty token makes anonymous calls.
func (c *Client) SetToken(token string) {
	api := c.newAPI(strings.TrimSpace(token))
	c.mu.Lock()
	c.api = api
	c.mu.Unlock()
	slog.Info("github token updated", slog.Bool("authenticated", token != ""))
}

func (c *Client) client() *gh.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.api
}

// ListPullRequestsForCommit returns the pull requests containing sha in the
// order the API lists them. A missing repository or commit yields no pull
// requests.
func (c *Client) ListPullRequestsForCommit(ctx context.Context, owner, repo, sha string) ([]PullRequest, error) {
	prs, resp, err := c.client().PullRequests.ListPullRequestsWithCommit(ctx, owner, repo, sha, &gh.ListOptions{PerPage: 100})
	found, err := c.finish(resp, err)
	if err != nil {
		return nil, fmt.Errorf("list pull requests for %s/%s@%s: %w", owner, repo, sha, err)
	}
	out := []PullRequest{}
	if !found {
		return out, nil
	}
	for _, pr := range prs {
		out = append(out, convertPullRequest(pr))
	}
	return out, nil
}

// GetIssue returns nil without error when the issue does not exist or is a
// pull request.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	issue, resp, err := c.client().Issues.Get(ctx, owner, repo, number)
	found, err := c.finish(resp, err)
	if err != nil {
		return nil, fmt.Errorf("get issue %s/%s#%d: %w", owner, repo, number, err)
	}
	if !found || issue.IsPullRequest() {
		return nil, nil
	}
	out := convertIssue(issue)
	return &out, nil
}

// RateLimitStatus queries the core quota. ok is false when the query fails.
func (c *Client) RateLimitStatus(ctx context.Context) (status *RateLimitStatus, ok bool) {
	limits, resp, err := c.client().RateLimit.Get(ctx)
	found, err := c.finish(resp, err)
	if err != nil || !found || limits.GetCore() == nil {
		if err != nil {
			slog.Warn("github rate limit query failed", slog.Any("error", err))
		}
		return nil, false
	}
	core := limits.GetCore()
	return &RateLimitStatus{
		Remaining: core.Remaining,
		Limit:     core.Limit,
		ResetAt:   core.Reset.Time,
	}, true
}

// LastRateLimit is the quota reported by the most recent response, if any.
func (c *Client) LastRateLimit() (RateLimitStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRate == nil {
		return RateLimitStatus{}, false
	}
	return *c.lastRate, true
}

// finish records the quota headers of resp and maps err. found is false for
// a 404.
func (c *Client) finish(resp *gh.Response, err error) (found bool, _ error) {
	if resp != nil && resp.Response != nil {
		c.observeRate(resp)
	}
	if err == nil {
		return true, nil
	}
	if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, classifyError(resp, err)
}

func (c *Client) observeRate(resp *gh.Response) {
	rate := resp.Rate
	path := ""
	if resp.Request != nil {
		path = resp.Request.URL.Path
	}
	slog.Debug("github quota",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int("remaining", rate.Remaining),
		slog.Int("limit", rate.Limit),
	)
	if rate.Limit == 0 {
		return
	}
	c.mu.Lock()
	c.lastRate = &RateLimitStatus{Remaining: rate.Remaining, Limit: rate.Limit, ResetAt: rate.Reset.Time}
	c.mu.Unlock()
}

func classifyError(resp *gh.Response, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var (
		rateErr  *gh.RateLimitError
		abuseErr *gh.AbuseRateLimitError
		otpErr   *gh.TwoFactorAuthError
		respErr  *gh.ErrorResponse
	)
	switch {
	case errors.As(err, &rateErr):
		reset := rateErr.Rate.Reset.Time
		if reset.IsZero() && rateErr.Response != nil {
			reset = parseReset(rateErr.Response.Header)
		}
		if reset.IsZero() {
			reset = time.Now()
		}
		return &RateLimitError{ResetAt: reset, Message: rateErr.Message}
	case errors.As(err, &abuseErr):
		// Secondary limits leave the quota untouched.
		return &ForbiddenError{Message: abuseErr.Message}
	case errors.As(err, &otpErr):
		return &AuthenticationError{Message: otpErr.Message}
	case errors.As(err, &respErr):
		return classifyStatus(respErr.Response, respErr.Message)
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return &NetworkError{Err: err}
	}
	if resp != nil && resp.Response != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	return &NetworkError{Err: err}
}

func classifyStatus(r *http.Response, message string) error {
	if r == nil {
		return &APIError{Message: message}
	}
	if message == "" {
		message = http.StatusText(r.StatusCode)
	}
	switch r.StatusCode {
	case http.StatusUnauthorized:
		return &AuthenticationError{Message: message}
	case http.StatusForbidden:
		if r.Header.Get("X-RateLimit-Remaining") == "0" {
			return &RateLimitError{ResetAt: parseReset(r.Header), Message: message}
		}
		return &ForbiddenError{Message: message}
	case http.StatusTooManyRequests:
		return &RateLimitError{ResetAt: parseReset(r.Header), Message: message}
	default:
		return &APIError{StatusCode: r.StatusCode, Message: message}
	}
}

func parseReset(h http.Header) time.Time {
	if epoch, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil && epoch > 0 {
		return time.Unix(epoch, 0)
	}
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil && secs >= 0 {
		return time.Now().Add(time.Duration(secs) * time.Second)
	}
	return time.Time{}
}

// headerTransport pins the media type and API version on every request.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	return t.base.RoundTrip(req)
}

func convertPullRequest(pr *gh.PullRequest) PullRequest {
	out := PullRequest{
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		State:       PullRequestState(pr.GetState()),
		URL:         pr.GetHTMLURL(),
		AuthorLogin: pr.GetUser().GetLogin(),
		CreatedAt:   pr.GetCreatedAt().Time,
	}
	if merged := pr.GetMergedAt(); !merged.IsZero() {
		t := merged.Time
		out.MergedAt = &t
		out.State = PullRequestMerged
	}
	return out
}

func convertIssue(issue *gh.Issue) Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, label.GetName())
	}
	return Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		State:  issue.GetState(),
		URL:    issue.GetHTMLURL(),
		Labels: labels,
	}
}
