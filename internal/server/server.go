// Package server is the HTTP execution backend behind `pyexpl serve`. It runs
// submitted code through the sandbox and stores shared sessions.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/runner"
	"github.com/Iron-Ham/pyexpl/internal/sandbox"
	"github.com/Iron-Ham/pyexpl/internal/share"
	"github.com/Iron-Ham/pyexpl/internal/util"
)

// Backend runs code for a runner label.
type Backend interface {
	Run(ctx context.Context, label runner.Label, code string) (sandbox.Result, error)
	Supports(label runner.Label) bool
	Labels() []runner.Label
	Suggest(label runner.Label) (runner.Label, bool)
}

// ShareStore persists shared sessions.
type ShareStore interface {
	Create(ctx context.Context, code string, runners runner.Set) (share.Session, error)
	Get(ctx context.Context, id string) (share.Session, error)
}

// Options configures a Server.
type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	Backend           Backend
	// Shares is optional; without it the share endpoints answer 404.
	Shares ShareStore
	Logger *logging.Logger
}

// Server serves the execution backend API.
type Server struct {
	backend  Backend
	shares   ShareStore
	logger   *logging.Logger
	httpSrv  *http.Server
	shutdown sync.Once
	errShut  error
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	timeout := opts.ReadHeaderTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	mux := http.NewServeMux()
	s := &Server{
		backend: opts.Backend,
		shares:  opts.Shares,
		logger:  logger.WithComponent("server"),
	}
	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.logRequests(mux),
		ReadHeaderTimeout: timeout,
	}

	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.HandleFunc("GET /runners", s.runnersHandler)
	mux.HandleFunc("POST /run", s.runHandler)
	if s.shares != nil {
		mux.HandleFunc("POST /share", s.createShareHandler)
		mux.HandleFunc("GET /share/{id}", s.getShareHandler)
	}
	return s
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start listens on the configured address and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpSrv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("serving", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err != nil {
			_ = s.Shutdown(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

// Shutdown gracefully stops the server. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown.Do(func() {
		s.errShut = s.httpSrv.Shutdown(ctx)
		s.logger.Info("server stopped")
	})
	return s.errShut
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) runnersHandler(w http.ResponseWriter, _ *http.Request) {
	entries := make([]runner.Entry, 0)
	for _, label := range s.backend.Labels() {
		e, ok := runner.Lookup(runner.Normalize(string(label)))
		if !ok {
			e = runner.Entry{ID: runner.Normalize(string(label)), Label: label, Title: string(label)}
		}
		entries = append(entries, e)
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeText(w, http.StatusBadRequest, "malformed form request.")
		return
	}
	if !r.PostForm.Has("code") {
		s.writeText(w, http.StatusBadRequest, "form request is missing `code`.")
		return
	}
	if !r.PostForm.Has("runner") {
		s.writeText(w, http.StatusBadRequest, "form request is missing `runner`.")
		return
	}
	code := r.PostForm.Get("code")
	label := runner.Label(r.PostForm.Get("runner"))

	if !s.backend.Supports(label) {
		msg := fmt.Sprintf("unsupported runner `%s`. supported runners are\n%s",
			label, sandbox.SupportedList(s.backend.Labels()))
		if suggestion, ok := s.backend.Suggest(label); ok {
			msg += fmt.Sprintf("\ndid you mean `%s`?", suggestion)
		}
		s.writeText(w, http.StatusBadRequest, msg)
		return
	}

	s.logger.WithRunner(string(label)).Debug("run requested", "code", util.TruncateString(code, 80))
	res, err := s.backend.Run(r.Context(), label, code)
	if err != nil {
		s.logger.WithRunner(string(label)).Error("run failed", "error", err)
		s.writeText(w, http.StatusInternalServerError, fmt.Sprintf("runner `%s` failed to start.", label))
		return
	}
	s.writeJSON(w, http.StatusOK, runResponse{Stdout: res.Output, ExitCode: res.ExitCode})
}

type runResponse struct {
	Stdout   string `json:"stdout"`
	ExitCode int    `json:"exit_code"`
}

func (s *Server) createShareHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeText(w, http.StatusBadRequest, "malformed form request.")
		return
	}
	if !r.PostForm.Has("code") {
		s.writeText(w, http.StatusBadRequest, "form request is missing `code`.")
		return
	}
	if !r.PostForm.Has("runners") {
		s.writeText(w, http.StatusBadRequest, "form request is missing `runners`.")
		return
	}
	runners, msg := parseRunners(r.PostForm.Get("runners"))
	if msg != "" {
		s.writeText(w, http.StatusBadRequest, msg)
		return
	}

	sess, err := s.shares.Create(r.Context(), r.PostForm.Get("code"), runners)
	if err != nil {
		s.logger.Error("create share failed", "error", err)
		s.writeText(w, http.StatusInternalServerError, "could not store the shared session.")
		return
	}
	s.logger.Info("session shared", "share_id", sess.ID, "runners", runners.Strings())
	http.Redirect(w, r, "/share/"+sess.ID, http.StatusFound)
}

// parseRunners validates the JSON runner list of a share request and returns
// the user-facing message on failure.
func parseRunners(raw string) (runner.Set, string) {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, "`runners` is not valid JSON."
	}
	list, ok := decoded.([]any)
	if !ok {
		return nil, "`runners` is not a list."
	}
	set := make(runner.Set, 0, len(list))
	for _, v := range list {
		name, ok := v.(string)
		if !ok {
			return nil, "`runners` is not a list of runners."
		}
		if !runner.Known(runner.ID(name)) {
			return nil, fmt.Sprintf("unknown runner `%s`.", name)
		}
		set = append(set, runner.ID(name))
	}
	return set, ""
}

func (s *Server) getShareHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.shares.Get(r.Context(), id)
	if errors.Is(err, errors.ErrShareNotFound) {
		s.writeText(w, http.StatusNotFound, fmt.Sprintf("share `%s` not found.", id))
		return
	}
	if err != nil {
		s.logger.Error("load share failed", "share_id", id, "error", err)
		s.writeText(w, http.StatusInternalServerError, "could not load the shared session.")
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", "error", err)
	}
}

func (s *Server) writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(strings.TrimRight(msg, "\n") + "\n"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
