package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
)

// Repo is an in-process handle used for cheap metadata lookups that do not
// need the git executable.
type Repo struct {
	*gitlib.Repository
	path string
}

// OpenRepository opens the repository containing path, walking up to find
// the .git directory.
func OpenRepository(path string) (*Repo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("open repository: %w", ErrInvalidRepository)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, gitlib.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("open repository %s: %w", abs, ErrInvalidRepository)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &Repo{Repository: repo, path: abs}, nil
}

func (r *Repo) Path() string {
	return r.path
}

// RemoteURL returns the first configured URL of the named remote; ok is false
// when the remote does not exist.
func (r *Repo) RemoteURL(name string) (url string, ok bool, err error) {
	remote, err := r.Remote(name)
	if err != nil {
		if errors.Is(err, gitlib.ErrRemoteNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read remote %s: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", false, nil
	}
	return urls[0], true, nil
}
