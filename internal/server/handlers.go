package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/thiagokokada/githistory/internal/git"
	"github.com/thiagokokada/githistory/internal/github"
	"github.com/thiagokokada/githistory/internal/progress"
)

// badRequest marks client input errors.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func (s *Server) handleRepository(w http.ResponseWriter, r *http.Request) {
	path, err := repoPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	repo, err := s.history.GetRepository(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	path, err := repoPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	maxCount, err := sizeParam(q.Get("maxCount"), s.pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	skip, err := intParam(q.Get("skip"), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	firstParent, err := boolParam(q.Get("firstParent"))
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.history.GetCommitsPaginated(r.Context(), path, git.PageOptions{
		MaxCount:        maxCount,
		Skip:            skip,
		FirstParentOnly: firstParent,
		Since:           q.Get("since"),
		Until:           q.Get("until"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	path, err := repoPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	commit, err := s.history.GetCommitDetails(r.Context(), path, r.PathValue("hash"))
	if err != nil {
		writeError(w, err)
		return
	}
	if commit == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "commit not found"})
		return
	}
	writeJSON(w, http.StatusOK, commit)
}

func (s *Server) handleRemote(w http.ResponseWriter, r *http.Request) {
	remote, err := s.remoteFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remote)
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if s.enricher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "github enrichment disabled"})
		return
	}
	remote, commit, err := s.enrichTarget(r, r.PathValue("hash"))
	if err != nil {
		writeError(w, err)
		return
	}
	if commit == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "commit not found"})
		return
	}
	result, err := s.enricher.Enrich(r.Context(), remote.Owner, remote.Repo, *commit, progress.Discard)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	if s.enricher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "github enrichment disabled"})
		return
	}
	client := s.enricher.Client()
	if status, ok := client.RateLimitStatus(r.Context()); ok {
		writeJSON(w, http.StatusOK, status)
		return
	}
	// Quota seen on the last API response, possibly stale.
	if last, ok := client.LastRateLimit(); ok {
		writeJSON(w, http.StatusOK, last)
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rate limit status unavailable"})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.enricher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "github enrichment disabled"})
		return
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	s.enricher.Client().SetToken(payload.Token)
	w.WriteHeader(http.StatusNoContent)
}

// enrichTarget resolves the GitHub repository and the commit an enrichment
// request refers to. A nil commit means the hash does not resolve.
func (s *Server) enrichTarget(r *http.Request, hash string) (github.Remote, *git.Commit, error) {
	if hash == "" {
		return github.Remote{}, nil, &badRequest{"hash is required"}
	}
	path, err := repoPath(r)
	if err != nil {
		return github.Remote{}, nil, err
	}
	remote, err := s.remoteFor(r)
	if err != nil {
		return github.Remote{}, nil, err
	}
	commit, err := s.history.GetCommitDetails(r.Context(), path, hash)
	if err != nil {
		return github.Remote{}, nil, err
	}
	return remote, commit, nil
}

// remoteFor uses explicit owner and repo parameters, falling back to the
// repository's remote (origin unless the remote parameter says otherwise).
func (s *Server) remoteFor(r *http.Request) (github.Remote, error) {
	q := r.URL.Query()
	if owner, repo := q.Get("owner"), q.Get("repo"); owner != "" || repo != "" {
		if owner == "" || repo == "" {
			return github.Remote{}, &badRequest{"owner and repo must be given together"}
		}
		return github.Remote{Owner: owner, Repo: repo}, nil
	}
	path, err := repoPath(r)
	if err != nil {
		return github.Remote{}, err
	}
	handle, err := git.OpenRepository(path)
	if err != nil {
		return github.Remote{}, err
	}
	name := q.Get("remote")
	if name == "" {
		name = "origin"
	}
	remote, err := s.resolver.ResolveRemote(handle.RemoteURL, name)
	if err != nil {
		return github.Remote{}, &badRequest{err.Error()}
	}
	return remote, nil
}

func repoPath(r *http.Request) (string, error) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		return "", &badRequest{"path query parameter required"}
	}
	return path, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &badRequest{fmt.Sprintf("invalid non-negative integer %q", raw)}
	}
	return n, nil
}

// sizeParam is intParam with zero meaning def.
func sizeParam(raw string, def int) (int, error) {
	n, err := intParam(raw, def)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return def, nil
	}
	return n, nil
}

func boolParam(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &badRequest{fmt.Sprintf("invalid boolean %q", raw)}
	}
	return b, nil
}

func writeError(w http.ResponseWriter, err error) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && !rateErr.ResetAt.IsZero() {
		w.Header().Set("Retry-After", strconv.Itoa(max(0, int(time.Until(rateErr.ResetAt).Seconds()))))
	}
	status, body := errorResponse(err)
	writeJSON(w, status, body)
}

func errorResponse(err error) (int, map[string]any) {
	body := map[string]any{"error": err.Error()}
	var (
		bad     *badRequest
		rateErr *github.RateLimitError
		authErr *github.AuthenticationError
		forbid  *github.ForbiddenError
		apiErr  *github.APIError
		netErr  *github.NetworkError
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, body
	case errors.Is(err, git.ErrInvalidRepository):
		body["kind"] = "invalid_repository"
		return http.StatusBadRequest, body
	case errors.As(err, &authErr):
		body["kind"] = github.ErrorKind(err)
		return http.StatusUnauthorized, body
	case errors.As(err, &rateErr):
		body["kind"] = github.ErrorKind(err)
		body["resetAt"] = rateErr.ResetAt
		return http.StatusTooManyRequests, body
	case errors.As(err, &forbid):
		body["kind"] = github.ErrorKind(err)
		return http.StatusForbidden, body
	case errors.As(err, &apiErr), errors.As(err, &netErr):
		body["kind"] = github.ErrorKind(err)
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
