package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotRepository is returned by OpenCLI when the path is not inside a git
// working copy.
var ErrNotRepository = errors.New("not a git repository")

type gitCLI struct {
	path string
}

func OpenCLI(ctx context.Context, repoPath string) (Backend, error) {
	if err := ensureMinGitVersion(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(repoPath) == "" {
		return nil, fmt.Errorf("open repository: %w", ErrNotRepository)
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	tmp := &gitCLI{path: abs}
	root, err := tmp.runGitCommand(ctx, []string{"rev-parse", "--show-toplevel"}, false, "git rev-parse")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("open repository %s: %w", abs, ErrNotRepository)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("open repository: git rev-parse returned empty root")
	}
	return &gitCLI{path: root}, nil
}

func (g *gitCLI) RepoPath() string {
	if g == nil {
		return ""
	}
	return g.path
}

func (g *gitCLI) runGitCommand(ctx context.Context, args []string, allowExit1 bool, label string) (string, error) {
	if g == nil || g.path == "" {
		return "", fmt.Errorf("repository root not set")
	}
	cmdArgs := append([]string{"--no-pager", "-C", g.path}, args...)
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if allowExit1 && errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0 {
			// exit 1 without stderr means "nothing matched" for rev-parse -q and show-ref
			return stdout.String(), nil
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%s: %w: %s", label, err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("%s: %w", label, err)
	}
	return stdout.String(), nil
}
