package git

import (
	"context"
	"errors"
	"io"

	gitbackend "github.com/thiagokokada/githistory/internal/git/backend"
)

type fakeBackend struct {
	repoPath string

	records []*gitbackend.Record
	remotes []string

	startLogStreamFunc func(opts gitbackend.LogOptions) (gitbackend.LogStream, error)
	countFunc          func(opts gitbackend.LogOptions) (int, error)
	showCommitFunc     func(hash string) (*gitbackend.Record, bool, error)
	currentBranchFunc  func() (string, error)
	listBranchesFunc   func() ([]gitbackend.Branch, error)
	listTagsFunc       func() ([]gitbackend.Ref, error)

	lastLogOpts   gitbackend.LogOptions
	lastCountOpts gitbackend.LogOptions
	streams       []*fakeStream
}

func (f *fakeBackend) RepoPath() string { return f.repoPath }

// StartLogStream serves f.records honouring Skip and MaxCount unless
// startLogStreamFunc overrides it.
func (f *fakeBackend) StartLogStream(_ context.Context, opts gitbackend.LogOptions) (gitbackend.LogStream, error) {
	f.lastLogOpts = opts
	if f.startLogStreamFunc != nil {
		return f.startLogStreamFunc(opts)
	}
	recs := f.records
	if opts.Skip < len(recs) {
		recs = recs[opts.Skip:]
	} else {
		recs = nil
	}
	if opts.MaxCount > 0 && opts.MaxCount < len(recs) {
		recs = recs[:opts.MaxCount]
	}
	stream := &fakeStream{records: recs}
	f.streams = append(f.streams, stream)
	return stream, nil
}

func (f *fakeBackend) CountCommits(_ context.Context, opts gitbackend.LogOptions) (int, error) {
	f.lastCountOpts = opts
	if f.countFunc != nil {
		return f.countFunc(opts)
	}
	return len(f.records), nil
}

func (f *fakeBackend) ShowCommit(_ context.Context, hash string) (*gitbackend.Record, bool, error) {
	if f.showCommitFunc != nil {
		return f.showCommitFunc(hash)
	}
	return nil, false, errors.New("unexpected ShowCommit call")
}

func (f *fakeBackend) CurrentBranch(context.Context) (string, error) {
	if f.currentBranchFunc != nil {
		return f.currentBranchFunc()
	}
	return "", errors.New("unexpected CurrentBranch call")
}

func (f *fakeBackend) ListBranches(context.Context) ([]gitbackend.Branch, error) {
	if f.listBranchesFunc != nil {
		return f.listBranchesFunc()
	}
	return nil, errors.New("unexpected ListBranches call")
}

func (f *fakeBackend) ListTags(context.Context) ([]gitbackend.Ref, error) {
	if f.listTagsFunc != nil {
		return f.listTagsFunc()
	}
	return nil, errors.New("unexpected ListTags call")
}

func (f *fakeBackend) ListRemotes(context.Context) ([]string, error) {
	return f.remotes, nil
}

type fakeStream struct {
	records []*gitbackend.Record
	pos     int
	err     error // returned once records are exhausted, instead of io.EOF
	closed  bool
}

func (s *fakeStream) Next() (*gitbackend.Record, error) {
	if s.pos >= len(s.records) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}
