package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/pyexpl/internal/client"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/playground"
	"github.com/Iron-Ham/pyexpl/internal/runner"
	"github.com/Iron-Ham/pyexpl/internal/sandbox"
	"github.com/Iron-Ham/pyexpl/internal/server"
	"github.com/Iron-Ham/pyexpl/internal/share"
)

// syncBuffer is a bytes.Buffer that tolerates concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// executeCommand runs a fresh command tree with args and returns captured output
func executeCommand(args ...string) (output string, err error) {
	return executeCommandContext(context.Background(), nil, args...)
}

func executeCommandContext(ctx context.Context, stdin io.Reader, args ...string) (string, error) {
	buf := &syncBuffer{}
	root := newRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}

// setupTestEnvironment isolates config and state directories, keeps the
// session store in memory and starts a backend whose python3.14 runs shell
// and whose python3.12 echoes its input.
func setupTestEnvironment(t *testing.T) *httptest.Server {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("PYEXPL_STORE_BACKEND", "memory")
	t.Setenv("PYEXPL_LOGGING_ENABLED", "false")

	shares, err := share.Open(context.Background(), filepath.Join(t.TempDir(), "shares.db"))
	if err != nil {
		t.Fatalf("share.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = shares.Close() })

	backend := sandbox.New(sandbox.Options{
		MaxOutputBytes: 10000,
		Timeout:        10 * time.Second,
		Specs: []sandbox.Spec{
			{Label: "python3.14", Command: []string{"/bin/sh", "-c"}, Input: sandbox.InputArg, ReportExit: true},
			{Label: "python3.12", Command: []string{"/bin/cat"}, Input: sandbox.InputStdin, ReportExit: true},
		},
	})
	ts := httptest.NewServer(server.New(server.Options{Backend: backend, Shares: shares}).Handler())
	t.Cleanup(ts.Close)

	t.Setenv("PYEXPL_CLIENT_BACKEND_URL", ts.URL)
	return ts
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.py")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	return path
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	if root.Use != "pyexpl" {
		t.Errorf("root.Use = %q, want %q", root.Use, "pyexpl")
	}

	expectedCmds := []string{"start", "run", "watch", "serve", "share", "runners", "config"}
	cmdMap := make(map[string]bool)
	for _, c := range root.Commands() {
		cmdMap[c.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestRunCommand_PrintsEachRunner(t *testing.T) {
	setupTestEnvironment(t)
	path := writeSource(t, "echo hello")

	output, err := executeCommand("run", path, "-r", "python3.14", "-r", "python3.12")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, output)
	}

	for _, want := range []string{
		"== python3-14 (exit 0) ==\nhello\n",
		"== python3-12 (exit 0) ==\necho hello\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Index(output, "python3-14") > strings.Index(output, "python3-12") {
		t.Errorf("results not in runner order:\n%s", output)
	}
}

func TestRunCommand_JSON(t *testing.T) {
	setupTestEnvironment(t)
	path := writeSource(t, "echo out; exit 3")

	output, err := executeCommand("run", path, "-r", "python3.14", "--json")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, output)
	}

	var results []runResult
	if err := json.Unmarshal([]byte(output), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	got := results[0]
	if got.Runner != "python3-14" || got.State != "rendered" || got.ExitCode != 3 || got.Output != "out\n" {
		t.Errorf("result = %+v", got)
	}
	if got.Title != "Python 3.14" {
		t.Errorf("Title = %q, want %q", got.Title, "Python 3.14")
	}
}

func TestRunCommand_Stdin(t *testing.T) {
	setupTestEnvironment(t)

	output, err := executeCommandContext(context.Background(), strings.NewReader("print(1)"), "run", "-", "-r", "python3.12")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "print(1)") {
		t.Errorf("stdin was not sent:\n%s", output)
	}
}

func TestRunCommand_DefaultsToSavedSelection(t *testing.T) {
	setupTestEnvironment(t)
	path := writeSource(t, "echo default")

	output, err := executeCommand("run", path)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "== "+string(runner.Default)+" (exit 0) ==\ndefault\n") {
		t.Errorf("default runner not used:\n%s", output)
	}
}

func TestRunCommand_FailedRunnerIsAnError(t *testing.T) {
	setupTestEnvironment(t)
	path := writeSource(t, "x = 1")

	output, err := executeCommand("run", path, "-r", "python3.12", "-r", "mypy")
	if err == nil {
		t.Fatalf("expected an error for an unsupported runner:\n%s", output)
	}
	if !strings.Contains(err.Error(), "1 of 2 runner(s) failed") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(output, "== mypy (failed) ==") {
		t.Errorf("failed runner not printed:\n%s", output)
	}
	if !strings.Contains(output, "backend rejected request") {
		t.Errorf("failure detail missing:\n%s", output)
	}
}

func TestRunCommand_MissingFile(t *testing.T) {
	setupTestEnvironment(t)

	if _, err := executeCommand("run", filepath.Join(t.TempDir(), "nope.py")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestShareCommand(t *testing.T) {
	ts := setupTestEnvironment(t)
	path := writeSource(t, "print('shared')")

	output, err := executeCommand("share", path, "-r", "python3.12", "-r", "mypy")
	if err != nil {
		t.Fatalf("share failed: %v\n%s", err, output)
	}
	url := strings.TrimSpace(output)
	if !strings.HasPrefix(url, ts.URL+"/share/") {
		t.Fatalf("share URL = %q", url)
	}

	payload, err := client.NewWithClient(ts.URL, ts.Client()).LoadShare(context.Background(), url)
	if err != nil {
		t.Fatalf("LoadShare() error = %v", err)
	}
	if payload.Code != "print('shared')" {
		t.Errorf("Code = %q", payload.Code)
	}
	if strings.Join(payload.Runners, ",") != "python3-12,mypy" {
		t.Errorf("Runners = %v", payload.Runners)
	}
}

func TestShareCommand_Copy(t *testing.T) {
	setupTestEnvironment(t)
	path := writeSource(t, "pass")

	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { copyToClipboard = orig })

	output, err := executeCommand("share", path, "--copy")
	if err != nil {
		t.Fatalf("share failed: %v\n%s", err, output)
	}
	if copied == "" || copied != strings.TrimSpace(output) {
		t.Errorf("copied %q, printed %q", copied, output)
	}
}

func TestServeCommand_ReportsShareStore(t *testing.T) {
	setupTestEnvironment(t)
	dbPath := filepath.Join(t.TempDir(), "served.db")
	t.Setenv("PYEXPL_SERVER_DB_PATH", dbPath)

	shares, err := share.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("share.Open() error = %v", err)
	}
	if _, err := shares.Create(context.Background(), "pass", runner.Set{"mypy"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_ = shares.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	output, err := executeCommandContext(ctx, nil, "serve", "--addr", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("serve failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "shared sessions: 1 (schema v2)") {
		t.Errorf("serve output:\n%s", output)
	}
}

func TestLoadSharedSession(t *testing.T) {
	ts := setupTestEnvironment(t)
	ctx := context.Background()
	backend := client.NewWithClient(ts.URL, ts.Client())

	url, err := backend.Share(ctx, "print('hi')", runner.Set{"python3-12"})
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	payload, err := loadSharedSession(ctx, backend, url)
	if err != nil {
		t.Fatalf("loadSharedSession() error = %v", err)
	}
	if payload.Code != "print('hi')" {
		t.Errorf("Code = %q", payload.Code)
	}

	if _, err := loadSharedSession(ctx, backend, "does-not-exist"); err == nil || !strings.Contains(err.Error(), "load shared session") {
		t.Errorf("unknown share error = %v", err)
	}

	down := httptest.NewServer(nil)
	down.Close()
	_, err = loadSharedSession(ctx, client.NewWithClient(down.URL, down.Client()), url)
	if err == nil || !strings.Contains(err.Error(), "backend unavailable") {
		t.Errorf("unreachable backend error = %v", err)
	}
}

func TestRunnersCommand(t *testing.T) {
	setupTestEnvironment(t)

	output, err := executeCommand("runners")
	if err != nil {
		t.Fatalf("runners failed: %v", err)
	}
	for _, e := range runner.Catalog() {
		if !strings.Contains(output, string(e.Label)) {
			t.Errorf("catalog entry %s missing:\n%s", e.Label, output)
		}
	}

	output, err = executeCommand("runners", "--remote")
	if err != nil {
		t.Fatalf("runners --remote failed: %v", err)
	}
	if !strings.Contains(output, "python3.12") || strings.Contains(output, "mypy") {
		t.Errorf("remote runners:\n%s", output)
	}
}

func TestConfigCommands(t *testing.T) {
	setupTestEnvironment(t)

	output, err := executeCommand("config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(output, "not created") {
		t.Errorf("config path before init:\n%s", output)
	}

	output, err = executeCommand("config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(output, "Created config file") {
		t.Errorf("config init output:\n%s", output)
	}
	if _, err := executeCommand("config", "init"); err == nil {
		t.Error("second config init should fail")
	}

	output, err = executeCommand("config", "set", "tui.gutter_lines", "2")
	if err != nil {
		t.Fatalf("config set failed: %v\n%s", err, output)
	}

	viper.Reset()
	output, err = executeCommand("config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(output, "gutter_lines: 2") {
		t.Errorf("set value not shown:\n%s", output)
	}
	if !strings.Contains(output, "timeout: 30s") {
		t.Errorf("durations not human readable:\n%s", output)
	}
}

func TestConfigSet_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "tui.theme", "dark"},
		{"not an int", "tui.gutter_lines", "two"},
		{"not a bool", "tui.mouse", "sometimes"},
		{"not a duration", "sandbox.timeout", "soon"},
		{"unknown backend", "store.backend", "redis"},
		{"unknown level", "logging.level", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestEnvironment(t)
			if _, err := executeCommand("config", "set", tt.key, tt.value); err == nil {
				t.Errorf("config set %s %s should fail", tt.key, tt.value)
			}
		})
	}
}

// stoppableEditor counts Stop calls.
type stoppableEditor struct {
	stops int
}

func (e *stoppableEditor) Text() string { return "" }
func (e *stoppableEditor) Stop()        { e.stops++ }

func TestOpenHeadless_StopsEditorOnError(t *testing.T) {
	setupTestEnvironment(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("failed to write blocker: %v", err)
	}
	t.Setenv("PYEXPL_STORE_BACKEND", "file")
	t.Setenv("PYEXPL_STORE_PATH", filepath.Join(blocker, "selection"))
	initConfig()

	editor := &stoppableEditor{}
	_, err := openHeadless(context.Background(), &headlessOptions{}, func(*logging.Logger) (playground.Editor, error) {
		return editor, nil
	})
	if err == nil {
		t.Fatal("openHeadless() should fail when the store cannot be opened")
	}
	if editor.stops != 1 {
		t.Errorf("editor stopped %d times, want 1", editor.stops)
	}
}

func TestWatchCommand_RerunsOnSave(t *testing.T) {
	setupTestEnvironment(t)
	path := writeSource(t, "echo first")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	buf := &syncBuffer{}
	root := newRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"watch", path, "-r", "python3.14"})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	waitFor := func(want string) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for !strings.Contains(buf.String(), want) {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %q:\n%s", want, buf.String())
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	waitFor("first\n")
	if err := os.WriteFile(path, []byte("echo second"), 0644); err != nil {
		t.Fatalf("failed to rewrite source: %v", err)
	}
	waitFor("second\n")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
