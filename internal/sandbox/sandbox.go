// Package sandbox runs submitted code through the local interpreters and
// analysis tools that back `pyexpl serve`.
//
// Each runner label maps to a Spec. Output is read incrementally so a
// runaway process cannot fill memory: once the configured cap would be
// exceeded the process is terminated, "\n[Output truncated]" is appended and
// the exit code is reported as 143. When an nsjail config is set every command
// is wrapped as `nsjail -C <cfg> [opts] -q -- <cmd>`; the sandbox itself
// imposes no other limits.
package sandbox

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/pyexpl/internal/dispatch"
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// TruncatedMarker is appended to output cut at the cap.
const TruncatedMarker = "\n[Output truncated]"

// TruncatedExitCode is reported for processes stopped at the output cap.
const TruncatedExitCode = 143

const readChunk = 4096

// Options configures a Sandbox.
type Options struct {
	MaxOutputBytes int
	// NsjailConfig enables the jail wrapper when non-empty.
	NsjailConfig string
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
	// Specs defaults to DefaultSpecs.
	Specs  []Spec
	Logger *logging.Logger
}

// Result is the outcome of one run.
type Result struct {
	Output    string
	ExitCode  int
	Truncated bool
	Duration  time.Duration
}

// Sandbox executes code for a fixed set of runner labels.
type Sandbox struct {
	specs     map[runner.Label]Spec
	order     []runner.Label
	maxOutput int
	jailCfg   string
	timeout   time.Duration
	logger    *logging.Logger
}

// New creates a Sandbox.
func New(opts Options) *Sandbox {
	specs := opts.Specs
	if specs == nil {
		specs = DefaultSpecs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Sandbox{
		specs:     make(map[runner.Label]Spec, len(specs)),
		maxOutput: opts.MaxOutputBytes,
		jailCfg:   opts.NsjailConfig,
		timeout:   opts.Timeout,
		logger:    logger.WithComponent("sandbox"),
	}
	for _, spec := range specs {
		if _, dup := s.specs[spec.Label]; !dup {
			s.order = append(s.order, spec.Label)
		}
		s.specs[spec.Label] = spec
	}
	return s
}

// Labels returns the supported runner labels in registration order.
func (s *Sandbox) Labels() []runner.Label {
	out := make([]runner.Label, len(s.order))
	copy(out, s.order)
	return out
}

// Supports reports whether label can be run.
func (s *Sandbox) Supports(label runner.Label) bool {
	_, ok := s.specs[label]
	return ok
}

// Suggest returns the supported label closest to label, if any is close.
func (s *Sandbox) Suggest(label runner.Label) (runner.Label, bool) {
	id, ok := runner.Suggest(string(label))
	if !ok {
		return "", false
	}
	wire := runner.WireLabel(id)
	if !s.Supports(wire) {
		return "", false
	}
	return wire, true
}

// Run executes code with the runner registered under label.
func (s *Sandbox) Run(ctx context.Context, label runner.Label, code string) (Result, error) {
	spec, ok := s.specs[label]
	if !ok {
		return Result{}, errors.NewNotFoundError("runner", string(label)).WithCause(errors.ErrRunnerUnknown)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	scratch := ""
	if spec.Input == InputFile || spec.Input == InputDir {
		dir, err := os.MkdirTemp("", "pyexpl-run-")
		if err != nil {
			return Result{}, errors.Wrap(err, "create scratch dir")
		}
		defer os.RemoveAll(dir)
		if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte(code), 0644); err != nil {
			return Result{}, errors.Wrap(err, "write scratch file")
		}
		scratch = dir
	}

	argv := s.argv(spec, code, scratch)
	logger := s.logger.WithRunner(string(label))
	logger.Debug("starting runner", "argv0", argv[0], "jailed", s.jailCfg != "")

	start := time.Now()
	res, err := s.exec(ctx, spec, argv, code)
	res.Duration = time.Since(start)
	if err != nil {
		logger.Error("runner failed to start", "error", err)
		return res, err
	}
	logger.Info("runner finished",
		"exit_code", res.ExitCode,
		"truncated", res.Truncated,
		"bytes", len(res.Output),
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// Execute implements dispatch.Executor so the sandbox can serve a session
// in-process.
func (s *Sandbox) Execute(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	res, err := s.Run(ctx, req.Label, req.Code)
	if err != nil {
		return dispatch.Response{}, err
	}
	return dispatch.Response{Stdout: res.Output, ExitCode: res.ExitCode}, nil
}

// argv builds the full command line for spec.
func (s *Sandbox) argv(spec Spec, code, scratch string) []string {
	cmd := append([]string(nil), spec.Command...)
	switch spec.Input {
	case InputArg:
		cmd = append(cmd, code)
	case InputFile:
		cmd = append(cmd, filepath.Join(scratch, "main.py"))
	case InputDir:
		cmd = append(cmd, scratch)
	}
	if s.jailCfg == "" {
		return cmd
	}
	jailed := []string{"nsjail", "-C", s.jailCfg}
	jailed = append(jailed, spec.JailOpts...)
	jailed = append(jailed, "-q", "--")
	return append(jailed, cmd...)
}

func (s *Sandbox) exec(ctx context.Context, spec Spec, argv []string, code string) (Result, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 2 * time.Second

	pr, pw, err := os.Pipe()
	if err != nil {
		return Result{}, errors.Wrap(err, "create output pipe")
	}
	defer pr.Close()
	cmd.Stdout = pw
	if spec.Stderr == StderrMerge {
		cmd.Stderr = pw
	}

	var stdin io.WriteCloser
	if spec.Input == InputStdin {
		if stdin, err = cmd.StdinPipe(); err != nil {
			pw.Close()
			return Result{}, errors.Wrap(err, "create stdin pipe")
		}
	}

	if err := cmd.Start(); err != nil {
		pw.Close()
		return Result{}, errors.Wrapf(err, "start %s", argv[0])
	}
	pw.Close()

	// Grandchildren may hold the pipe open past a timeout.
	stop := context.AfterFunc(ctx, func() { _ = pr.Close() })
	defer stop()

	var wg conc.WaitGroup
	if stdin != nil {
		wg.Go(func() {
			_, _ = io.WriteString(stdin, code)
			_ = stdin.Close()
		})
	}

	out, truncated := s.readCapped(pr)
	if truncated {
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}
	pr.Close()
	waitErr := cmd.Wait()
	wg.Wait()

	res := Result{Output: out, Truncated: truncated}
	switch {
	case truncated:
		res.ExitCode = TruncatedExitCode
	case spec.ReportExit:
		res.ExitCode = exitCode(cmd.ProcessState, waitErr)
	}
	return res, nil
}

// readCapped reads r until EOF or until the next chunk would push the output
// past the cap.
func (s *Sandbox) readCapped(r io.Reader) (string, bool) {
	var b strings.Builder
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if s.maxOutput > 0 && b.Len()+n > s.maxOutput {
				b.WriteString(TruncatedMarker)
				return b.String(), true
			}
			b.Write(buf[:n])
		}
		if err != nil {
			return b.String(), false
		}
	}
}

func exitCode(state *os.ProcessState, err error) int {
	if state == nil {
		if err != nil {
			return 1
		}
		return 0
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

// SupportedList formats labels the way the backend lists them in errors.
func SupportedList(labels []runner.Label) string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	return " -" + strings.Join(names, "\n-")
}
