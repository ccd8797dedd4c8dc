// Package watch reports changes to a repository's refs and index.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/githistory/internal/debounce"
)

const DefaultDelay = 350 * time.Millisecond

// Watcher delivers one notification on Changes per burst of filesystem
// activity. Notifications are coalesced: a slow reader sees at most one
// pending change.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce *debounce.Debouncer
	changes  chan struct{}
	done     chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// New starts watching the repository at root. A delay of zero uses
// DefaultDelay.
func New(root string, delay time.Duration) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	for _, path := range watchPaths(root) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fsw.Add(path); err != nil {
			err := errors.Join(err, fsw.Close())
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}
	w := &Watcher{
		fs:      fsw,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	w.debounce = debounce.New(delay, w.notify)
	go w.loop()
	return w, nil
}

func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.debounce.Stop()
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}

func (w *Watcher) notify() {
	select {
	case <-w.done:
		return
	default:
	}
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			w.debounce.Trigger()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		case <-w.done:
			return
		}
	}
}

// watchPaths lists the directories whose entries change when history moves:
// the git dir itself (HEAD, packed-refs, index) and the loose ref folders.
// fsnotify is not recursive, so each remote gets its own entry. Outside a
// working copy only root is watched.
func watchPaths(root string) []string {
	if root == "" {
		return nil
	}
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err != nil || !info.IsDir() {
		return []string{root}
	}
	paths := []string{gitDir}
	for _, sub := range []string{"refs/heads", "refs/tags", "refs/remotes"} {
		dir := filepath.Join(gitDir, filepath.FromSlash(sub))
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			paths = append(paths, dir)
		}
	}
	remotes, err := os.ReadDir(filepath.Join(gitDir, "refs", "remotes"))
	if err == nil {
		for _, entry := range remotes {
			if entry.IsDir() {
				paths = append(paths, filepath.Join(gitDir, "refs", "remotes", entry.Name()))
			}
		}
	}
	return paths
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
