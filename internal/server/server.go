// Package server exposes the history engine and GitHub enrichment over HTTP
// and websockets.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thiagokokada/githistory/internal/git"
	"github.com/thiagokokada/githistory/internal/github"
	"github.com/thiagokokada/githistory/internal/watch"
)

type Options struct {
	History  *git.Service
	Enricher *github.Enricher
	Resolver *github.Resolver
	// PageSize and ChunkSize apply when a request does not set them.
	PageSize   int
	ChunkSize  int
	WatchDelay time.Duration
}

type Server struct {
	history    *git.Service
	enricher   *github.Enricher
	resolver   *github.Resolver
	pageSize   int
	chunkSize  int
	watchDelay time.Duration
	upgrader   websocket.Upgrader
}

func New(opts Options) *Server {
	s := &Server{
		history:    opts.History,
		enricher:   opts.Enricher,
		resolver:   opts.Resolver,
		pageSize:   opts.PageSize,
		chunkSize:  opts.ChunkSize,
		watchDelay: opts.WatchDelay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
	}
	if s.history == nil {
		s.history = git.New()
	}
	if s.resolver == nil {
		s.resolver = github.NewResolver("")
	}
	if s.pageSize <= 0 {
		s.pageSize = git.DefaultPageSize
	}
	if s.chunkSize <= 0 {
		s.chunkSize = git.DefaultBatch
	}
	if s.watchDelay <= 0 {
		s.watchDelay = watch.DefaultDelay
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/repository", s.handleRepository)
	mux.HandleFunc("GET /api/commits", s.handleCommits)
	mux.HandleFunc("GET /api/commits/{hash}", s.handleCommit)
	mux.HandleFunc("GET /api/github/remote", s.handleRemote)
	mux.HandleFunc("GET /api/github/commits/{hash}", s.handleEnrich)
	mux.HandleFunc("GET /api/github/rate-limit", s.handleRateLimit)
	mux.HandleFunc("POST /api/github/token", s.handleToken)
	mux.HandleFunc("GET /ws/stream", s.handleStreamSocket)
	mux.HandleFunc("GET /ws/enrich", s.handleEnrichSocket)
	mux.HandleFunc("GET /ws/watch", s.handleWatchSocket)
	return logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	slog.Info("listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
