// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// Repo is a temporary working copy with a deterministic commit clock.
type Repo struct {
	t     testing.TB
	Dir   string
	home  string
	clock time.Time
}

// NewRepo initializes an empty repository on branch main. The test is skipped
// when no git executable is available.
func NewRepo(t testing.TB) *Repo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
	r := &Repo{
		t:     t,
		Dir:   t.TempDir(),
		home:  t.TempDir(),
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("", 2*60*60)),
	}
	r.Git("init", "-q")
	r.Git("symbolic-ref", "HEAD", "refs/heads/main")
	return r
}

// Git runs git in the repository and returns trimmed stdout.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", append([]string{"-C", r.Dir}, args...)...)
	date := r.clock.Format(time.RFC3339)
	cmd.Env = []string{
		"HOME=" + r.home,
		"PATH=" + os.Getenv("PATH"),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_NAME=Test Author",
		"GIT_AUTHOR_EMAIL=author@example.com",
		"GIT_COMMITTER_NAME=Test Committer",
		"GIT_COMMITTER_EMAIL=committer@example.com",
		"GIT_AUTHOR_DATE=" + date,
		"GIT_COMMITTER_DATE=" + date,
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		r.t.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String())
}

// Commit records an empty commit one minute after the previous one and
// returns its full hash.
func (r *Repo) Commit(message string) string {
	r.t.Helper()
	r.clock = r.clock.Add(time.Minute)
	r.Git("commit", "-q", "--allow-empty", "--no-gpg-sign", "-m", message)
	return r.Git("rev-parse", "HEAD")
}

// Commits records n commits named "commit 1".."commit n" and returns their
// hashes newest first.
func (r *Repo) Commits(n int) []string {
	r.t.Helper()
	hashes := make([]string, n)
	for i := range n {
		hashes[n-1-i] = r.Commit(fmt.Sprintf("commit %d", i+1))
	}
	return hashes
}

// Merge merges branch into the current branch with a merge commit.
func (r *Repo) Merge(branch, message string) string {
	r.t.Helper()
	r.clock = r.clock.Add(time.Minute)
	r.Git("merge", "-q", "--no-ff", "--no-gpg-sign", "-m", message, branch)
	return r.Git("rev-parse", "HEAD")
}
