package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

const (
	fieldSep = "\x1f"
	// Body goes last so a stray separator inside it cannot shift other fields.
	logFormat   = "%H%x1f%h%x1f%an%x1f%ae%x1f%aI%x1f%P%x1f%D%x1f%s%x1f%b%x00"
	logFieldNum = 9
)

func logArgs(opts LogOptions) []string {
	args := []string{
		"log",
		"--all",
		"--date-order",
		"--no-color",
		"--no-patch",
		"--decorate=short",
		// tformat avoids the extra separator newline git adds between records.
		"--pretty=tformat:" + logFormat,
	}
	if opts.MaxCount > 0 {
		args = append(args, "--max-count="+strconv.Itoa(opts.MaxCount))
	}
	if opts.Skip > 0 {
		args = append(args, "--skip="+strconv.Itoa(opts.Skip))
	}
	return append(args, filterArgs(opts)...)
}

func filterArgs(opts LogOptions) []string {
	var args []string
	if opts.FirstParent {
		args = append(args, "--first-parent")
	}
	if s := strings.TrimSpace(opts.Since); s != "" {
		args = append(args, "--since="+s)
	}
	if s := strings.TrimSpace(opts.Until); s != "" {
		args = append(args, "--until="+s)
	}
	return args
}

func (g *gitCLI) StartLogStream(ctx context.Context, opts LogOptions) (LogStream, error) {
	if g == nil || g.path == "" {
		return nil, fmt.Errorf("repository root not set")
	}
	return startGitLogStream(ctx, g.path, logArgs(opts))
}

func (g *gitCLI) CountCommits(ctx context.Context, opts LogOptions) (int, error) {
	args := append([]string{"rev-list", "--count", "--all"}, filterArgs(opts)...)
	out, err := g.runGitCommand(ctx, args, false, "git rev-list")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parse commit count %q: %w", strings.TrimSpace(out), err)
	}
	return n, nil
}

func (g *gitCLI) ShowCommit(ctx context.Context, hash string) (*Record, bool, error) {
	hash = strings.TrimSpace(hash)
	if !isHexHash(hash) {
		return nil, false, nil
	}
	out, err := g.runGitCommand(ctx, []string{"rev-parse", "-q", "--verify", hash + "^{commit}"}, true, "git rev-parse")
	if err != nil {
		return nil, false, err
	}
	full := strings.TrimSpace(out)
	if full == "" {
		return nil, false, nil
	}
	out, err = g.runGitCommand(ctx, []string{
		"log",
		"--max-count=1",
		"--no-color",
		"--no-patch",
		"--decorate=short",
		"--pretty=tformat:" + logFormat,
		full,
	}, false, "git log")
	if err != nil {
		return nil, false, err
	}
	out = strings.TrimSuffix(strings.TrimRight(out, "\r\n"), "\x00")
	rec, err := parseLogRecord(trimRecord([]byte(out)))
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func isHexHash(s string) bool {
	if len(s) < 4 || len(s) > 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

type gitLogStream struct {
	cancel context.CancelFunc
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	r      *bufio.Reader

	waitOnce sync.Once
	waitErr  error
}

func startGitLogStream(ctx context.Context, repoPath string, args []string) (*gitLogStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmdArgs := append([]string{"--no-pager", "-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	stream := &gitLogStream{cancel: cancel, cmd: cmd}
	cmd.Stderr = &stream.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("git log stdout: %w", err)
	}
	stream.stdout = stdout
	stream.r = bufio.NewReader(stdout)
	if err := cmd.Start(); err != nil {
		cancel()
		_ = stdout.Close()
		return nil, fmt.Errorf("git log start: %w", err)
	}
	return stream, nil
}

func (s *gitLogStream) Next() (*Record, error) {
	rec, err := s.r.ReadBytes(0)
	if err != nil {
		if err == io.EOF {
			if len(bytes.TrimSpace(rec)) > 0 {
				return nil, fmt.Errorf("truncated git log record")
			}
			if waitErr := s.wait(); waitErr != nil {
				return nil, waitErr
			}
			return nil, io.EOF
		}
		return nil, err
	}
	// Strip trailing NUL.
	rec = trimRecord(rec[:len(rec)-1])
	if len(rec) == 0 {
		return nil, fmt.Errorf("unexpected empty git log record")
	}
	return parseLogRecord(rec)
}

func (s *gitLogStream) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.stdout != nil {
		_ = s.stdout.Close()
	}
	err := s.wait()
	if err != nil && s.cmd.ProcessState != nil && !s.cmd.ProcessState.Exited() {
		// killed by our own cancel after an early Close
		return nil
	}
	return err
}

func (s *gitLogStream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	if s.waitErr == nil {
		return nil
	}
	if s.stderr.Len() > 0 {
		return fmt.Errorf("git log: %w: %s", s.waitErr, strings.TrimSpace(s.stderr.String()))
	}
	return fmt.Errorf("git log: %w", s.waitErr)
}

// trimRecord drops the newline tformat leaves in front of every record after
// the first one.
func trimRecord(rec []byte) []byte {
	for len(rec) > 0 && (rec[0] == '\n' || rec[0] == '\r') {
		rec = rec[1:]
	}
	return rec
}

func parseLogRecord(rec []byte) (*Record, error) {
	parts := strings.SplitN(string(rec), fieldSep, logFieldNum)
	if len(parts) < logFieldNum {
		return nil, fmt.Errorf("unexpected git log record: got %d fields", len(parts))
	}
	hash := strings.TrimSpace(parts[0])
	if hash == "" {
		return nil, fmt.Errorf("missing commit hash")
	}
	return &Record{
		Hash:        hash,
		ShortHash:   strings.TrimSpace(parts[1]),
		AuthorName:  parts[2],
		AuthorEmail: parts[3],
		AuthorDate:  strings.TrimSpace(parts[4]),
		Parents:     strings.TrimSpace(parts[5]),
		Decoration:  strings.TrimSpace(parts[6]),
		Subject:     parts[7],
		Body:        strings.TrimRight(parts[8], "\n"),
	}, nil
}
