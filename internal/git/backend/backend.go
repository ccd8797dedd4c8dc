package backend

import "context"

// Backend abstracts access to repository data.
//
// The default implementation shells out to the git executable. Every query
// snapshots the repository state at call time; nothing is shared between calls.
type Backend interface {
	RepoPath() string

	// StartLogStream walks all refs in commit date order.
	StartLogStream(ctx context.Context, opts LogOptions) (LogStream, error)
	// CountCommits counts the commits StartLogStream would walk, ignoring
	// MaxCount and Skip.
	CountCommits(ctx context.Context, opts LogOptions) (int, error)
	// ShowCommit returns ok=false when hash does not resolve to a commit.
	ShowCommit(ctx context.Context, hash string) (rec *Record, ok bool, err error)

	CurrentBranch(ctx context.Context) (string, error)
	ListBranches(ctx context.Context) ([]Branch, error)
	ListTags(ctx context.Context) ([]Ref, error)
	ListRemotes(ctx context.Context) ([]string, error)
}

// LogStream yields records until io.EOF. Close must always be called.
type LogStream interface {
	Next() (*Record, error)
	Close() error
}
