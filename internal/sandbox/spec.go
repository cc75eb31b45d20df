package sandbox

import (
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// InputMode is how the submitted code reaches the tool.
type InputMode int

const (
	// InputArg appends the code as the final argument (python -c, mypy -c).
	InputArg InputMode = iota
	// InputStdin writes the code to the process's stdin.
	InputStdin
	// InputFile writes the code to main.py in a scratch directory and appends its path.
	InputFile
	// InputDir writes main.py like InputFile but appends the directory instead.
	InputDir
)

// StderrMode decides what happens to the tool's stderr.
type StderrMode int

const (
	// StderrMerge interleaves stderr into stdout.
	StderrMerge StderrMode = iota
	// StderrDiscard drops stderr.
	StderrDiscard
)

// Spec describes how one runner label is executed.
type Spec struct {
	Label   runner.Label
	Command []string
	Input   InputMode
	Stderr  StderrMode
	// JailOpts are extra nsjail options placed before "-q --".
	JailOpts []string
	// ReportExit passes the process exit code through. Analysis tools report 0
	// regardless, since their findings are the output.
	ReportExit bool
}

func python(version string) Spec {
	return Spec{
		Label:      runner.Label("python" + version),
		Command:    []string{"/usr/bin/env", "python" + version, "-c"},
		Input:      InputArg,
		Stderr:     StderrMerge,
		ReportExit: true,
	}
}

// DefaultSpecs returns the runners served by `pyexpl serve`, in catalog order.
func DefaultSpecs() []Spec {
	return []Spec{
		python("3.14"),
		python("3.13"),
		python("3.12"),
		python("3.11"),
		python("3.10"),
		python("3.9"),
		python("3.8"),
		{
			Label:    "mypy",
			Command:  []string{"/usr/bin/env", "mypy", "-c"},
			Input:    InputArg,
			Stderr:   StderrDiscard,
			JailOpts: []string{"--cgroup_cpu_ms_per_sec", "0"},
		},
		{
			Label:   "pyright",
			Command: []string{"/usr/bin/env", "pyright"},
			Input:   InputFile,
			Stderr:  StderrDiscard,
		},
		{
			Label:   "pytype",
			Command: []string{"/usr/bin/env", "pytype-single"},
			Input:   InputFile,
			Stderr:  StderrMerge,
			JailOpts: []string{
				"--cgroup_mem_max", "0",
				"--cgroup_cpu_ms_per_sec", "0",
				"--rlimit_nofile", "1000",
			},
		},
		{
			Label:    "pyre",
			Command:  []string{"/usr/bin/env", "pyre", "--noninteractive", "--source-directory"},
			Input:    InputDir,
			Stderr:   StderrDiscard,
			JailOpts: []string{"--rlimit_as", "99999999999999999"},
		},
		{
			Label:   "ruff-check",
			Command: []string{"/usr/bin/env", "ruff", "check", "-"},
			Input:   InputStdin,
			Stderr:  StderrMerge,
		},
		{
			Label:   "ruff-format",
			Command: []string{"/usr/bin/env", "ruff", "format", "-"},
			Input:   InputStdin,
			Stderr:  StderrMerge,
		},
	}
}
