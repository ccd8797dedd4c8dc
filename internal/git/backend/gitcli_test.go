package backend

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/thiagokokada/githistory/internal/git/gittest"
)

func TestOpenCLI_NotRepository(t *testing.T) {
	gittest.NewRepo(t) // skips without git
	_, err := OpenCLI(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNotRepository) {
		t.Fatalf("OpenCLI() error = %v, want ErrNotRepository", err)
	}
}

func TestGitCLI_LogCountAndShow(t *testing.T) {
	repo := gittest.NewRepo(t)
	hashes := repo.Commits(3)
	repo.Git("tag", "-a", "-m", "release", "v1.0", hashes[1])

	ctx := context.Background()
	b, err := OpenCLI(ctx, repo.Dir)
	if err != nil {
		t.Fatalf("OpenCLI: %v", err)
	}

	stream, err := b.StartLogStream(ctx, LogOptions{MaxCount: 2, Skip: 1})
	if err != nil {
		t.Fatalf("StartLogStream: %v", err)
	}
	var got []*Record
	for {
		rec, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, rec)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(got) != 2 || got[0].Hash != hashes[1] || got[1].Hash != hashes[2] {
		t.Fatalf("unexpected page: %+v", got)
	}
	if got[0].Decoration != "tag: v1.0" {
		t.Fatalf("unexpected decoration: %q", got[0].Decoration)
	}
	if got[0].Parents != hashes[2] {
		t.Fatalf("unexpected parents: %q", got[0].Parents)
	}
	if got[0].Subject != "commit 2" || got[0].AuthorDate != "2024-01-01T12:02:00+02:00" {
		t.Fatalf("unexpected record: %+v", got[0])
	}

	n, err := b.CountCommits(ctx, LogOptions{MaxCount: 1})
	if err != nil {
		t.Fatalf("CountCommits: %v", err)
	}
	if n != 3 {
		t.Fatalf("CountCommits() = %d, want 3", n)
	}

	rec, ok, err := b.ShowCommit(ctx, hashes[0][:10])
	if err != nil || !ok {
		t.Fatalf("ShowCommit: ok=%v err=%v", ok, err)
	}
	if rec.Hash != hashes[0] || rec.Decoration != "HEAD -> main" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	_, ok, err = b.ShowCommit(ctx, "deadbeefdeadbeef")
	if err != nil || ok {
		t.Fatalf("ShowCommit(missing) ok=%v err=%v, want absent", ok, err)
	}

	tags, err := b.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "v1.0" || tags[0].Hash != hashes[1] {
		t.Fatalf("unexpected tags: %+v", tags)
	}
}

func TestGitCLI_EarlyCloseDoesNotFail(t *testing.T) {
	repo := gittest.NewRepo(t)
	repo.Commits(5)

	ctx := context.Background()
	b, err := OpenCLI(ctx, repo.Dir)
	if err != nil {
		t.Fatalf("OpenCLI: %v", err)
	}
	stream, err := b.StartLogStream(ctx, LogOptions{})
	if err != nil {
		t.Fatalf("StartLogStream: %v", err)
	}
	if _, err := stream.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close after partial read: %v", err)
	}
}

func TestGitCLI_BranchesAndHead(t *testing.T) {
	repo := gittest.NewRepo(t)
	repo.Commit("root")
	repo.Git("branch", "feature/x")

	ctx := context.Background()
	b, err := OpenCLI(ctx, repo.Dir)
	if err != nil {
		t.Fatalf("OpenCLI: %v", err)
	}
	current, err := b.CurrentBranch(ctx)
	if err != nil || current != "main" {
		t.Fatalf("CurrentBranch() = %q, %v", current, err)
	}
	branches, err := b.ListBranches(ctx)
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("unexpected branches: %+v", branches)
	}
	for _, br := range branches {
		if br.IsCurrent != (br.Name == "main") {
			t.Fatalf("unexpected current flag: %+v", br)
		}
	}
	remotes, err := b.ListRemotes(ctx)
	if err != nil || len(remotes) != 0 {
		t.Fatalf("ListRemotes() = %v, %v", remotes, err)
	}
}
