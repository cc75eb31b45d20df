package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/pyexpl/internal/dispatch"
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/runner"
	"github.com/Iron-Ham/pyexpl/internal/sandbox"
	"github.com/Iron-Ham/pyexpl/internal/server"
	"github.com/Iron-Ham/pyexpl/internal/share"
)

func TestExecute_PostsFormAndDecodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "print(1)", r.PostForm.Get("code"))
		assert.Equal(t, "python3.12", r.PostForm.Get("runner"))
		_, _ = io.WriteString(w, `{"stdout":"1\n","stderr":"","exit_code":0}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewWithClient(srv.URL+"/", srv.Client())
	resp, err := c.Execute(context.Background(), dispatch.Request{RunnerID: "python3-12", Label: "python3.12", Code: "print(1)"})
	require.NoError(t, err)
	assert.Equal(t, dispatch.Response{Stdout: "1\n"}, resp)
}

func TestExecute_MissingExitCodeDefaultsToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"stdout":"ok"}`)
	}))
	defer srv.Close()

	resp, err := NewWithClient(srv.URL, srv.Client()).Execute(context.Background(), dispatch.Request{Label: "mypy"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.ExitCode)
	assert.Equal(t, "ok", resp.Stdout)
}

func TestExecute_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
		malformed bool
	}{
		{"bad request", http.StatusBadRequest, "unsupported runner `x`.", false, false},
		{"bad gateway", http.StatusBadGateway, "upstream down", true, false},
		{"malformed json", http.StatusOK, "<html>", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewWithClient(srv.URL, srv.Client()).Execute(context.Background(), dispatch.Request{Label: "python3.13"})
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrTransport)
			assert.Equal(t, tt.retryable, errors.IsRetryable(err))
			assert.Equal(t, tt.malformed, errors.Is(err, errors.ErrMalformedResponse))
			assert.Contains(t, err.Error(), "python3.13")
			assert.Contains(t, err.Error(), tt.body)
		})
	}
}

func TestExecute_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, 0).Execute(context.Background(), dispatch.Request{Label: "python3.14"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTransport)
}

// newBackend starts a real backend with shell runners standing in for the
// interpreters.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	shares, err := share.Open(context.Background(), filepath.Join(t.TempDir(), "shares.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = shares.Close() })

	sb := sandbox.New(sandbox.Options{
		MaxOutputBytes: 10000,
		Specs: []sandbox.Spec{
			{Label: "python3.14", Command: []string{"/bin/sh", "-c"}, Input: sandbox.InputArg, ReportExit: true},
		},
	})
	srv := httptest.NewServer(server.New(server.Options{Backend: sb, Shares: shares}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestAgainstBackend_RunShareLoad(t *testing.T) {
	srv := newBackend(t)
	c := NewWithClient(srv.URL, srv.Client())
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	resp, err := c.Execute(ctx, dispatch.Request{Label: "python3.14", Code: "echo hi; exit 2"})
	require.NoError(t, err)
	assert.Equal(t, "hi\n", resp.Stdout)
	assert.Equal(t, 2, resp.ExitCode)

	_, err = c.Execute(ctx, dispatch.Request{Label: "python3.99", Code: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported runner `python3.99`")

	shareURL, err := c.Share(ctx, "print('hi')", runner.Set{"python3-14", "mypy"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(shareURL, srv.URL+"/share/"), shareURL)

	byURL, err := c.LoadShare(ctx, shareURL)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", byURL.Code)
	assert.Equal(t, []string{"python3-14", "mypy"}, byURL.Runners)

	byID, err := c.LoadShare(ctx, strings.TrimPrefix(shareURL, srv.URL+"/share/"))
	require.NoError(t, err)
	assert.Equal(t, byURL, byID)

	_, err = c.LoadShare(ctx, "does-not-exist")
	assert.ErrorIs(t, err, errors.ErrShareNotFound)

	entries, err := c.Runners(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, runner.ID("python3-14"), entries[0].ID)
}

func TestShare_Rejected(t *testing.T) {
	srv := newBackend(t)
	c := NewWithClient(srv.URL, srv.Client())
	_, err := c.Share(context.Background(), "x", runner.Set{"python3.14"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown runner `python3.14`")
}

func TestLoadShare_Empty(t *testing.T) {
	_, err := New("http://127.0.0.1:1", 0).LoadShare(context.Background(), "  ")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
