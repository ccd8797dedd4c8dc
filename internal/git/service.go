package git

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	gitbackend "github.com/thiagokokada/githistory/internal/git/backend"
)

const (
	DefaultPageSize = 100
	DefaultBatch    = 1000
)

// ErrInvalidRepository reports a path that is not a git working copy.
var ErrInvalidRepository = gitbackend.ErrNotRepository

type opener func(ctx context.Context, path string) (gitbackend.Backend, error)

// Service extracts history from repositories addressed by path. It keeps no
// per-repository state: every call snapshots the repository independently.
type Service struct {
	open opener
}

func New() *Service {
	return &Service{open: gitbackend.OpenCLI}
}

// NewWithBackend returns a Service that answers every path from b.
func NewWithBackend(b gitbackend.Backend) *Service {
	return &Service{open: func(context.Context, string) (gitbackend.Backend, error) {
		if b == nil {
			return nil, fmt.Errorf("repository root not set")
		}
		return b, nil
	}}
}

// ValidateRepository reports whether path is inside a git working copy.
func (s *Service) ValidateRepository(path string) bool {
	_, err := OpenRepository(path)
	return err == nil
}

// GetRepository loads the full history plus branches and tags.
func (s *Service) GetRepository(ctx context.Context, path string) (*Repository, error) {
	b, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	current, err := b.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	rawBranches, err := b.ListBranches(ctx)
	if err != nil {
		return nil, err
	}
	rawTags, err := b.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := classifierFor(ctx, b)
	if err != nil {
		return nil, err
	}
	stream, err := b.StartLogStream(ctx, gitbackend.LogOptions{})
	if err != nil {
		return nil, err
	}
	commits, err := readCommits(stream, refs, 0)
	if err != nil {
		return nil, err
	}

	branches := make([]Branch, 0, len(rawBranches))
	for _, br := range rawBranches {
		branches = append(branches, Branch{
			Name:           br.Name,
			HeadCommitHash: br.Hash,
			IsRemote:       br.IsRemote,
			IsCurrent:      br.IsCurrent,
		})
	}
	tags := make([]Tag, 0, len(rawTags))
	for _, tag := range rawTags {
		tags = append(tags, Tag{Name: tag.Name, CommitHash: tag.Hash})
	}
	slog.Debug("repository loaded",
		slog.String("path", b.RepoPath()),
		slog.Int("commits", len(commits)),
		slog.Int("branches", len(branches)),
		slog.Int("tags", len(tags)),
	)
	return &Repository{
		Path:              b.RepoPath(),
		DisplayName:       filepath.Base(b.RepoPath()),
		CurrentBranchName: current,
		Commits:           commits,
		Branches:          branches,
		Tags:              tags,
	}, nil
}

// GetCommitDetails returns nil without error when hash does not resolve.
func (s *Service) GetCommitDetails(ctx context.Context, path, hash string) (*Commit, error) {
	b, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	rec, ok, err := b.ShowCommit(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("show commit %s: %w", hash, err)
	}
	if !ok {
		return nil, nil
	}
	refs, err := classifierFor(ctx, b)
	if err != nil {
		return nil, err
	}
	commit := parseCommit(rec, refs)
	return &commit, nil
}

func classifierFor(ctx context.Context, b gitbackend.Backend) (RefClassifier, error) {
	remotes, err := b.ListRemotes(ctx)
	if err != nil {
		return RefClassifier{}, err
	}
	return NewRefClassifier(remotes...), nil
}

// readCommits drains up to limit records (all when limit is zero) and always
// closes the stream.
func readCommits(stream gitbackend.LogStream, refs RefClassifier, limit int) (commits []Commit, err error) {
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	commits = []Commit{}
	for limit <= 0 || len(commits) < limit {
		rec, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate commits: %w", err)
		}
		commits = append(commits, parseCommit(rec, refs))
	}
	return commits, nil
}
