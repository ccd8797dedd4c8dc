package git

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/thiagokokada/githistory/internal/git/gittest"
)

func TestOpenRepository_Subdirectory(t *testing.T) {
	repo := gittest.NewRepo(t)
	repo.Commit("init")
	repo.Git("remote", "add", "origin", "git@github.com:acme/widgets.git")
	repo.Git("remote", "add", "fork", "https://github.com/someone/widgets")

	sub := filepath.Join(repo.Dir, "src", "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	handle, err := OpenRepository(sub)
	if err != nil {
		t.Fatalf("OpenRepository: %v", err)
	}

	url, ok, err := handle.RemoteURL("origin")
	if err != nil || !ok || url != "git@github.com:acme/widgets.git" {
		t.Fatalf("RemoteURL(origin) = %q, %v, %v", url, ok, err)
	}
	if _, ok, err := handle.RemoteURL("missing"); err != nil || ok {
		t.Fatalf("RemoteURL(missing) = %v, %v; want not found", ok, err)
	}
	url, ok, err = handle.RemoteURL("fork")
	if err != nil || !ok || url != "https://github.com/someone/widgets" {
		t.Fatalf("RemoteURL(fork) = %q, %v, %v", url, ok, err)
	}
}

func TestOpenRepository_Invalid(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"", "   ", t.TempDir()} {
		if _, err := OpenRepository(path); !errors.Is(err, ErrInvalidRepository) {
			t.Fatalf("OpenRepository(%q) error = %v, want ErrInvalidRepository", path, err)
		}
	}
}
