package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thiagokokada/githistory/internal/git"
	"github.com/thiagokokada/githistory/internal/github"
	"github.com/thiagokokada/githistory/internal/progress"
	"github.com/thiagokokada/githistory/internal/watch"
)

const (
	writeTimeout = 10 * time.Second

	StepCommits    = "commits"
	StepRepository = "repository"
)

// wireEvent is a progress event tagged with the operation it belongs to.
type wireEvent struct {
	OperationID string `json:"operationId"`
	progress.Event
}

// socket is one websocket operation. Its context is cancelled as soon as the
// peer goes away, which stops whatever produces events for it.
type socket struct {
	conn   *websocket.Conn
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	failed bool
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request) (*socket, error) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(r.Context())
	sock := &socket{conn: conn, id: uuid.NewString(), ctx: ctx, cancel: cancel}
	go sock.readLoop()
	slog.Debug("websocket opened", slog.String("path", r.URL.Path), slog.String("operation", sock.id))
	return sock, nil
}

// readLoop discards client messages; any read error means the peer is gone.
func (s *socket) readLoop() {
	defer s.cancel()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Report implements progress.Reporter. Write failures cancel the operation.
func (s *socket) Report(_ context.Context, ev progress.Event) {
	if err := s.send(ev); err != nil {
		slog.Debug("websocket write failed", slog.String("operation", s.id), slog.Any("error", err))
	}
}

func (s *socket) send(ev progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return context.Canceled
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(wireEvent{OperationID: s.id, Event: ev}); err != nil {
		s.failed = true
		s.cancel()
		return err
	}
	return nil
}

func (s *socket) fail(err error) {
	data := map[string]any{}
	if kind := github.ErrorKind(err); kind != "unknown" {
		data["errorKind"] = kind
	}
	_ = s.send(progress.Event{Step: progress.StepError, Status: progress.StatusError, Message: err.Error(), Data: data})
}

func (s *socket) close() {
	s.mu.Lock()
	if !s.failed {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	s.mu.Unlock()
	s.cancel()
	_ = s.conn.Close()
	slog.Debug("websocket closed", slog.String("operation", s.id))
}

// handleStreamSocket sends the history as commit batches, one event per batch.
// The next batch is read from git only after the previous one was written.
func (s *Server) handleStreamSocket(w http.ResponseWriter, r *http.Request) {
	path, err := repoPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	chunkSize, err := sizeParam(q.Get("chunkSize"), s.chunkSize)
	if err != nil {
		writeError(w, err)
		return
	}
	firstParent, err := boolParam(q.Get("firstParent"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !s.history.ValidateRepository(path) {
		writeError(w, git.ErrInvalidRepository)
		return
	}
	sock, err := s.accept(w, r)
	if err != nil {
		return
	}
	defer sock.close()

	if err := sock.send(progress.Event{Step: StepCommits, Status: progress.StatusStart, Message: "Streaming commits"}); err != nil {
		return
	}
	batches, total := 0, 0
	for batch, err := range s.history.StreamCommits(sock.ctx, path, git.StreamOptions{ChunkSize: chunkSize, FirstParentOnly: firstParent}) {
		if err != nil {
			if sock.ctx.Err() == nil {
				sock.fail(err)
			}
			return
		}
		batches++
		total += len(batch)
		ev := progress.Event{
			Step:    StepCommits,
			Status:  progress.StatusInfo,
			Message: fmt.Sprintf("Batch %d (%d commits)", batches, len(batch)),
			Data:    map[string]any{"batch": batches, "commits": batch},
		}
		if err := sock.send(ev); err != nil {
			return
		}
	}
	_ = sock.send(progress.Event{
		Step:    progress.StepComplete,
		Status:  progress.StatusSuccess,
		Message: fmt.Sprintf("Streamed %d commits in %d batches", total, batches),
		Data:    map[string]any{"batches": batches, "total": total},
	})
}

// handleEnrichSocket relays enrichment progress. The closing complete event
// carries the result.
func (s *Server) handleEnrichSocket(w http.ResponseWriter, r *http.Request) {
	if s.enricher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "github enrichment disabled"})
		return
	}
	remote, commit, err := s.enrichTarget(r, r.URL.Query().Get("hash"))
	if err != nil {
		writeError(w, err)
		return
	}
	if commit == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "commit not found"})
		return
	}
	sock, err := s.accept(w, r)
	if err != nil {
		return
	}
	defer sock.close()

	stream := progress.NewStream()
	var (
		result *github.Enrichment
		runErr error
	)
	go func() {
		defer stream.Close()
		result, runErr = s.enricher.Enrich(sock.ctx, remote.Owner, remote.Repo, *commit, stream)
	}()

	var complete *progress.Event
	for ev := range stream.Events() {
		if ev.Terminal() {
			// Sent last, once the result is known.
			complete = &ev
			continue
		}
		sock.Report(sock.ctx, ev)
	}
	if runErr != nil {
		if sock.ctx.Err() == nil {
			sock.fail(runErr)
		}
		return
	}
	if complete == nil || complete.Step != progress.StepComplete {
		complete = &progress.Event{Step: progress.StepComplete, Status: progress.StatusSuccess}
	}
	if complete.Data == nil {
		complete.Data = map[string]any{}
	}
	complete.Data["result"] = result
	_ = sock.send(*complete)
}

// handleWatchSocket reports repository changes until the client disconnects.
func (s *Server) handleWatchSocket(w http.ResponseWriter, r *http.Request) {
	path, err := repoPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	handle, err := git.OpenRepository(path)
	if err != nil {
		writeError(w, err)
		return
	}
	root := handle.Path()
	if wt, err := handle.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	watcher, err := watch.New(root, s.watchDelay)
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Error("watcher close", slog.Any("error", err))
		}
	}()
	sock, err := s.accept(w, r)
	if err != nil {
		return
	}
	defer sock.close()

	if err := sock.send(progress.Event{Step: StepRepository, Status: progress.StatusStart, Message: "Watching " + root}); err != nil {
		return
	}
	for {
		select {
		case <-sock.ctx.Done():
			return
		case <-watcher.Changes():
			ev := progress.Event{Step: StepRepository, Status: progress.StatusInfo, Message: "Repository changed"}
			if err := sock.send(ev); err != nil {
				return
			}
		}
	}
}
