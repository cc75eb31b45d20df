// Package tui is the bubbletea front end of pyexpl: an editor column next to
// one output pane per active runner, with a vim-style command line.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/Iron-Ham/pyexpl/internal/bootstrap"
	"github.com/Iron-Ham/pyexpl/internal/dispatch"
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/event"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/playground"
	"github.com/Iron-Ham/pyexpl/internal/store"
)

// Options configures an App.
type Options struct {
	Executor  dispatch.Executor
	Selection *store.Selection
	Sharer    playground.Sharer // optional
	Logger    *logging.Logger
	State     bootstrap.State

	MinPaneLines       int
	GutterLines        int
	EditorWidthPercent int
	Mouse              bool

	// Initial terminal size; a WindowSizeMsg corrects it once running.
	Width  int
	Height int

	// ProgramOptions are appended to the defaults (alt screen, mouse).
	ProgramOptions []tea.ProgramOption
}

// App wraps the Bubbletea program and the playground Controller it drives.
type App struct {
	program *tea.Program
	ctrl    *playground.Controller
	zones   *zone.Manager
	logger  *logging.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates the Controller, lays out the bootstrap runners and prepares
// the program. It does not take over the terminal until Run.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Executor == nil {
		return nil, errors.NewValidationError("tui requires an executor").WithField("executor")
	}
	if opts.Selection == nil {
		return nil, errors.NewValidationError("tui requires a selection store").WithField("selection")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	a := &App{
		zones:  zone.New(),
		logger: logger.WithComponent("tui"),
		ctx:    ctx,
		cancel: cancel,
	}

	bus := event.NewBus(logger)
	notices := &noticeSink{}
	bus.Subscribe(event.TypeNotice, notices.handle)

	buffer := &editorBuffer{}
	splitter := newPaneSplitter(max(opts.Height-chromeLines, 1))

	a.ctrl = playground.New(playground.Config{
		Executor:   opts.Executor,
		Splitter:   splitter,
		Selection:  opts.Selection,
		Editor:     buffer,
		Sharer:     opts.Sharer,
		Bus:        bus,
		Logger:     logger,
		MinSize:    opts.MinPaneLines,
		GutterSize: opts.GutterLines,
		Deliver:    a.deliver,
	})
	if err := a.ctrl.Start(ctx, opts.State); err != nil {
		// A failed first layout leaves the panes usable; the next rebuild
		// retries it.
		a.logger.Warn("initial layout failed", "error", err)
	}

	model := newModel(modelConfig{
		ctx:           ctx,
		ctrl:          a.ctrl,
		logger:        a.logger,
		buffer:        buffer,
		splitter:      splitter,
		notices:       notices,
		zones:         a.zones,
		code:          opts.State.Code,
		shared:        opts.State.Shared,
		editorPercent: opts.EditorWidthPercent,
		width:         opts.Width,
		height:        opts.Height,
	})

	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.Mouse {
		programOpts = append(programOpts, tea.WithMouseCellMotion())
	}
	programOpts = append(programOpts, opts.ProgramOptions...)
	a.program = tea.NewProgram(model, programOpts...)
	return a, nil
}

// Controller returns the playground Controller the App drives.
func (a *App) Controller() *playground.Controller { return a.ctrl }

// deliver hands a completion to the Update loop. It blocks until the program
// accepts it or has exited.
func (a *App) deliver(c dispatch.Completion) {
	a.program.Send(completionMsg{completion: c})
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	defer a.cancel()
	defer a.zones.Close()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			a.program.Send(tea.Quit())
		case <-a.ctx.Done():
		}
	}()

	a.logger.Info("TUI session started", "runners", a.ctrl.IDs().Strings())
	_, err := a.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		// Context cancellation is a normal shutdown.
		return nil
	}
	return err
}
