package git

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"

	gitbackend "github.com/thiagokokada/githistory/internal/git/backend"
)

// GetCommitsPaginated returns one page of the date-ordered history across all
// refs. The log query over-fetches a single sentinel record so HasMore is exact
// without a second walk; TotalCount comes from a separate count query.
func (s *Service) GetCommitsPaginated(ctx context.Context, path string, opts PageOptions) (*PaginatedResult, error) {
	if opts.MaxCount <= 0 {
		opts.MaxCount = DefaultPageSize
	}
	if opts.Skip < 0 {
		opts.Skip = 0
	}
	b, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	refs, err := classifierFor(ctx, b)
	if err != nil {
		return nil, err
	}
	logOpts := gitbackend.LogOptions{
		MaxCount:    opts.MaxCount + 1,
		Skip:        opts.Skip,
		FirstParent: opts.FirstParentOnly,
		Since:       opts.Since,
		Until:       opts.Until,
	}
	stream, err := b.StartLogStream(ctx, logOpts)
	if err != nil {
		return nil, err
	}
	commits, err := readCommits(stream, refs, logOpts.MaxCount)
	if err != nil {
		return nil, err
	}
	hasMore := len(commits) > opts.MaxCount
	if hasMore {
		commits = commits[:opts.MaxCount]
	}
	total, err := b.CountCommits(ctx, logOpts)
	if err != nil {
		return nil, fmt.Errorf("count commits: %w", err)
	}
	slog.Debug("GetCommitsPaginated done",
		slog.Int("skip", opts.Skip),
		slog.Int("max_count", opts.MaxCount),
		slog.Int("returned", len(commits)),
		slog.Int("total", total),
		slog.Bool("has_more", hasMore),
	)
	return &PaginatedResult{Commits: commits, TotalCount: total, HasMore: hasMore}, nil
}

// StreamCommits yields the history in batches of ChunkSize commits, newest
// first. The log is walked lazily when iteration starts; the git process only
// advances as fast as the consumer pulls batches. Stopping early terminates
// the walk. A second iteration rescans from the start.
func (s *Service) StreamCommits(ctx context.Context, path string, opts StreamOptions) iter.Seq2[[]Commit, error] {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultBatch
	}
	return func(yield func([]Commit, error) bool) {
		b, err := s.open(ctx, path)
		if err != nil {
			yield(nil, err)
			return
		}
		refs, err := classifierFor(ctx, b)
		if err != nil {
			yield(nil, err)
			return
		}
		stream, err := b.StartLogStream(ctx, gitbackend.LogOptions{FirstParent: opts.FirstParentOnly})
		if err != nil {
			yield(nil, err)
			return
		}
		sess := &streamSession{stream: stream, refs: refs}
		defer sess.close()

		for {
			batch, err := sess.nextBatch(chunkSize)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				return
			}
			sess.batches++
			if !yield(batch, nil) {
				slog.Debug("StreamCommits stopped by consumer", slog.Int("batches", sess.batches))
				return
			}
			if len(batch) < chunkSize {
				return
			}
		}
	}
}

type streamSession struct {
	stream  gitbackend.LogStream
	refs    RefClassifier
	batches int
	closed  bool
}

func (s *streamSession) nextBatch(size int) ([]Commit, error) {
	batch := make([]Commit, 0, size)
	for len(batch) < size {
		rec, err := s.stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate commits: %w", err)
		}
		batch = append(batch, parseCommit(rec, s.refs))
	}
	return batch, nil
}

func (s *streamSession) close() {
	if s.closed {
		return
	}
	s.closed = true
	if err := s.stream.Close(); err != nil {
		slog.Debug("git log stream close", slog.Any("error", err))
	}
}
