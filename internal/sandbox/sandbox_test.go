package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/pyexpl/internal/dispatch"
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

func shellSpecs() []Spec {
	return []Spec{
		{Label: "sh", Command: []string{"/bin/sh", "-c"}, Input: InputArg, Stderr: StderrMerge, ReportExit: true},
		{Label: "sh-quiet", Command: []string{"/bin/sh", "-c"}, Input: InputArg, Stderr: StderrDiscard, ReportExit: true},
		{Label: "tool", Command: []string{"/bin/sh", "-c"}, Input: InputArg, Stderr: StderrMerge},
		{Label: "cat", Command: []string{"/bin/cat"}, Input: InputStdin, Stderr: StderrMerge},
		{Label: "catfile", Command: []string{"/bin/cat"}, Input: InputFile, Stderr: StderrMerge},
		{Label: "ls", Command: []string{"/bin/ls"}, Input: InputDir, Stderr: StderrMerge},
	}
}

func newTestSandbox(maxOutput int) *Sandbox {
	return New(Options{MaxOutputBytes: maxOutput, Specs: shellSpecs(), Timeout: 10 * time.Second})
}

func TestRun_MergesStderr(t *testing.T) {
	s := newTestSandbox(10000)
	res, err := s.Run(context.Background(), "sh", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Equal(t, "out\nerr\n", res.Output)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Truncated)
}

func TestRun_DiscardsStderr(t *testing.T) {
	s := newTestSandbox(10000)
	res, err := s.Run(context.Background(), "sh-quiet", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Output)
}

func TestRun_ExitCode(t *testing.T) {
	s := newTestSandbox(10000)

	res, err := s.Run(context.Background(), "sh", "echo boom; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)

	res, err = s.Run(context.Background(), "tool", "echo finding; exit 1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode, "analysis tools always report 0")
	assert.Equal(t, "finding\n", res.Output)
}

func TestRun_Truncates(t *testing.T) {
	s := newTestSandbox(100)
	res, err := s.Run(context.Background(), "sh", "yes 0123456789")
	require.NoError(t, err)

	assert.True(t, res.Truncated)
	assert.Equal(t, TruncatedExitCode, res.ExitCode)
	assert.True(t, strings.HasSuffix(res.Output, TruncatedMarker))
	assert.LessOrEqual(t, len(res.Output)-len(TruncatedMarker), 100)
}

func TestRun_Stdin(t *testing.T) {
	s := newTestSandbox(10000)
	res, err := s.Run(context.Background(), "cat", "print('from stdin')\n")
	require.NoError(t, err)
	assert.Equal(t, "print('from stdin')\n", res.Output)
}

func TestRun_ScratchFileAndDir(t *testing.T) {
	s := newTestSandbox(10000)

	res, err := s.Run(context.Background(), "catfile", "x = 1\n")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", res.Output)

	res, err = s.Run(context.Background(), "ls", "x = 1\n")
	require.NoError(t, err)
	assert.Equal(t, "main.py\n", res.Output)
}

func TestRun_UnknownRunner(t *testing.T) {
	s := newTestSandbox(10000)
	_, err := s.Run(context.Background(), "python2.7", "print 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRunnerUnknown)
}

func TestRun_MissingBinary(t *testing.T) {
	s := New(Options{Specs: []Spec{{Label: "ghost", Command: []string{"/nonexistent/ghost"}}}})
	_, err := s.Run(context.Background(), "ghost", "")
	assert.Error(t, err)
}

func TestRun_Timeout(t *testing.T) {
	s := New(Options{Specs: shellSpecs(), Timeout: 100 * time.Millisecond})
	start := time.Now()
	res, err := s.Run(context.Background(), "sh", "exec sleep 5")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Equal(t, 128+15, res.ExitCode)
}

func TestExecute(t *testing.T) {
	s := newTestSandbox(10000)
	resp, err := s.Execute(context.Background(), dispatch.Request{Label: "sh", Code: "echo hi"})
	require.NoError(t, err)
	assert.Equal(t, dispatch.Response{Stdout: "hi\n", ExitCode: 0}, resp)
}

func TestArgv(t *testing.T) {
	spec := Spec{Label: "pyre", Command: []string{"/usr/bin/env", "pyre", "--source-directory"}, Input: InputDir, JailOpts: []string{"--rlimit_as", "1"}}

	plain := New(Options{})
	assert.Equal(t, []string{"/usr/bin/env", "pyre", "--source-directory", "/tmp/x"}, plain.argv(spec, "code", "/tmp/x"))

	jailed := New(Options{NsjailConfig: "/app/nsjail.cfg"})
	assert.Equal(t,
		[]string{"nsjail", "-C", "/app/nsjail.cfg", "--rlimit_as", "1", "-q", "--", "/usr/bin/env", "pyre", "--source-directory", "/tmp/x"},
		jailed.argv(spec, "code", "/tmp/x"))

	py := python("3.12")
	assert.Equal(t,
		[]string{"nsjail", "-C", "/app/nsjail.cfg", "-q", "--", "/usr/bin/env", "python3.12", "-c", "print(1)"},
		jailed.argv(py, "print(1)", ""))
}

func TestDefaultSpecs_MatchCatalog(t *testing.T) {
	s := New(Options{})
	var want []runner.Label
	for _, e := range runner.Catalog() {
		want = append(want, e.Label)
	}
	assert.Equal(t, want, s.Labels())
}

func TestSuggest(t *testing.T) {
	s := New(Options{})
	got, ok := s.Suggest("pyhton3.12")
	require.True(t, ok)
	assert.Equal(t, runner.Label("python3.12"), got)

	_, ok = s.Suggest("completely-different")
	assert.False(t, ok)
}

func TestSupportedList(t *testing.T) {
	assert.Equal(t, " -a\n-b", SupportedList([]runner.Label{"a", "b"}))
}
