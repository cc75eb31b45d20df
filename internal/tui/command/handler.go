// Package command provides command handling for the TUI.
// It keeps the vim-style command processing out of the main TUI model.
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/pyexpl/internal/dispatch"
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// Controller is the part of the playground Controller that commands drive.
type Controller interface {
	Run(ctx context.Context) []dispatch.Request
	AddLabel(ctx context.Context, raw string) (runner.ID, error)
	Remove(ctx context.Context, id runner.ID) bool
	Share(ctx context.Context) (string, error)
	IDs() runner.Set
}

// Dependencies defines what the Handler needs from the TUI Model.
type Dependencies interface {
	Context() context.Context
	GetController() Controller

	// FocusedRunner is the runner of the focused pane, or "" when the
	// editor has focus.
	FocusedRunner() runner.ID

	GetLogger() *logging.Logger
	GetStartTime() time.Time
}

// Result represents the outcome of executing a command.
// It contains state changes that should be applied to the Model.
type Result struct {
	// InfoMessage is a non-error status message to display
	InfoMessage string

	// ErrorMessage is an error message to display
	ErrorMessage string

	// TeaCmd is an optional tea.Cmd to return (e.g., tea.Quit)
	TeaCmd tea.Cmd

	// State changes (use pointers to distinguish "not set" from "set to false")
	ShowHelp    *bool
	ShowRunners *bool
	Quitting    *bool
}

// ShareResultMsg is sent when an asynchronous :share finishes.
type ShareResultMsg struct {
	URL    string
	Copied bool
	Err    error
}

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// Handler processes vim-style commands for the TUI.
type Handler struct {
	commands map[string]commandFunc
}

// commandFunc receives the dependencies and the words after the command name.
type commandFunc func(deps Dependencies, args []string) Result

// New creates a new Handler with all commands registered.
func New() *Handler {
	h := &Handler{
		commands: make(map[string]commandFunc),
	}
	h.registerCommands()
	return h
}

// Execute parses and executes a command line such as "add python3.12 mypy".
func (h *Handler) Execute(line string, deps Dependencies) Result {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Result{}
	}

	name, args := fields[0], fields[1:]
	if fn, ok := h.commands[name]; ok {
		return fn(deps, args)
	}

	return Result{
		ErrorMessage: fmt.Sprintf("Unknown command: %s (type :h for help)", name),
	}
}

// Names returns every registered command name, aliases included.
func (h *Handler) Names() []string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	return names
}

// registerCommands sets up all command mappings.
func (h *Handler) registerCommands() {
	// Running
	h.commands["w"] = cmdRun
	h.commands["write"] = cmdRun
	h.commands["run"] = cmdRun

	// Runner management
	h.commands["a"] = cmdAdd
	h.commands["add"] = cmdAdd
	h.commands["c"] = cmdClose
	h.commands["close"] = cmdClose
	h.commands["runners"] = cmdRunners

	// Sharing
	h.commands["share"] = cmdShare

	// Help and exit
	h.commands["h"] = cmdHelp
	h.commands["help"] = cmdHelp
	h.commands["q"] = cmdQuit
	h.commands["quit"] = cmdQuit
}

func cmdRun(deps Dependencies, _ []string) Result {
	ctrl := deps.GetController()
	if ctrl == nil {
		return Result{ErrorMessage: "No playground session"}
	}
	issued := ctrl.Run(deps.Context())
	if len(issued) == 0 {
		return Result{ErrorMessage: "No runners open (add one with :add <runner>)"}
	}
	return Result{InfoMessage: fmt.Sprintf("Running on %d runner(s)", len(issued))}
}

func cmdAdd(deps Dependencies, args []string) Result {
	ctrl := deps.GetController()
	if ctrl == nil {
		return Result{ErrorMessage: "No playground session"}
	}
	if len(args) == 0 {
		return Result{ErrorMessage: "Usage: :add <runner> [runner...]"}
	}

	var added []string
	var failed []string
	for _, raw := range args {
		id, err := ctrl.AddLabel(deps.Context(), raw)
		if err != nil {
			failed = append(failed, err.Error())
		}
		// A layout failure still leaves the runner added.
		if id != "" && !errors.Is(err, errors.ErrPaneExists) {
			added = append(added, string(id))
		}
	}

	res := Result{}
	if len(added) > 0 {
		res.InfoMessage = "Added " + strings.Join(added, ", ")
	}
	if len(failed) > 0 {
		res.ErrorMessage = strings.Join(failed, "; ")
	}
	return res
}

func cmdClose(deps Dependencies, args []string) Result {
	ctrl := deps.GetController()
	if ctrl == nil {
		return Result{ErrorMessage: "No playground session"}
	}

	targets := make([]runner.ID, 0, len(args))
	for _, raw := range args {
		targets = append(targets, runner.Normalize(raw))
	}
	if len(targets) == 0 {
		focused := deps.FocusedRunner()
		if focused == "" {
			return Result{ErrorMessage: "No pane focused (use :close <runner>)"}
		}
		targets = append(targets, focused)
	}

	var closed []string
	var missing []string
	for _, id := range targets {
		if ctrl.Remove(deps.Context(), id) {
			closed = append(closed, string(id))
		} else {
			missing = append(missing, fmt.Sprintf("runner `%s` is not open", id))
		}
	}

	res := Result{}
	if len(closed) > 0 {
		res.InfoMessage = "Closed " + strings.Join(closed, ", ")
	}
	if len(missing) > 0 {
		res.ErrorMessage = strings.Join(missing, "; ")
	}
	return res
}

func cmdRunners(_ Dependencies, _ []string) Result {
	show := true
	return Result{ShowRunners: &show}
}

func cmdShare(deps Dependencies, _ []string) Result {
	ctrl := deps.GetController()
	if ctrl == nil {
		return Result{ErrorMessage: "No playground session"}
	}
	ctx := deps.Context()
	logger := deps.GetLogger()
	return Result{
		InfoMessage: "Sharing...",
		TeaCmd: func() tea.Msg {
			url, err := ctrl.Share(ctx)
			if err != nil {
				return ShareResultMsg{Err: err}
			}
			copied := true
			if err := writeClipboard(url); err != nil {
				copied = false
				if logger != nil {
					logger.Debug("clipboard unavailable", "error", err)
				}
			}
			return ShareResultMsg{URL: url, Copied: copied}
		},
	}
}

func cmdHelp(_ Dependencies, _ []string) Result {
	show := true
	return Result{ShowHelp: &show}
}

func cmdQuit(deps Dependencies, _ []string) Result {
	quitting := true

	// Log session end with duration
	if logger := deps.GetLogger(); logger != nil {
		duration := time.Since(deps.GetStartTime())
		logger.Info("TUI session ended", "duration_ms", duration.Milliseconds())
	}

	return Result{
		Quitting: &quitting,
		TeaCmd:   tea.Quit,
	}
}

// HelpLines describes the commands for the help overlay.
func HelpLines() [][2]string {
	return [][2]string{
		{":w  :run", "run the editor text on every open runner"},
		{":a  :add <runner...>", "open panes for runners (e.g. python3.12, mypy)"},
		{":c  :close [runner...]", "close panes (default: the focused pane)"},
		{":runners", "list the runner catalog"},
		{":share", "share the session and copy the URL"},
		{":h  :help", "toggle this help"},
		{":q  :quit", "quit"},
	}
}
