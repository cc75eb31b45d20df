package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/pyexpl/internal/bootstrap"
	"github.com/Iron-Ham/pyexpl/internal/config"
	"github.com/Iron-Ham/pyexpl/internal/dispatch"
	"github.com/Iron-Ham/pyexpl/internal/event"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/pane"
	"github.com/Iron-Ham/pyexpl/internal/playground"
	"github.com/Iron-Ham/pyexpl/internal/sandbox"
	"github.com/Iron-Ham/pyexpl/internal/tui/styles"
	"github.com/Iron-Ham/pyexpl/internal/util"
)

// headlessOptions are the flags shared by run and watch.
type headlessOptions struct {
	runners []string
	local   bool
}

func (o *headlessOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&o.runners, "runner", "r", nil,
		"runner to use, repeatable (default: the runners open in the last session)")
	cmd.Flags().BoolVar(&o.local, "local", false, "run in a local sandbox instead of the backend")
}

// headless is a playground session without a screen.
type headless struct {
	ctrl   *playground.Controller
	bus    *event.Bus
	logger *logging.Logger
	closer io.Closer
}

// openHeadless starts a Controller over the editor newEditor builds. Runners
// given on the command line replace the saved selection for this session
// without overwriting it.
func openHeadless(ctx context.Context, opts *headlessOptions, newEditor func(*logging.Logger) (playground.Editor, error)) (*headless, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return nil, err
	}
	editor, err := newEditor(logger)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	sel, closer, err := openSelection(ctx, cfg, logger)
	if err != nil {
		stopEditor(editor)
		_ = logger.Close()
		return nil, err
	}

	var executor dispatch.Executor
	var sharer playground.Sharer
	if opts.local {
		executor = newSandbox(cfg, logger)
	} else {
		c := newClient(cfg)
		executor, sharer = c, c
	}

	var payload *bootstrap.Payload
	if len(opts.runners) > 0 {
		payload = &bootstrap.Payload{Code: editor.Text(), Runners: opts.runners}
	}
	state := bootstrap.Resolve(ctx, payload, sel)

	bus := event.NewBus(logger)
	ctrl := playground.New(playground.Config{
		Executor:  executor,
		Selection: sel,
		Editor:    editor,
		Sharer:    sharer,
		Bus:       bus,
		Logger:    logger,
	})
	if err := ctrl.Start(ctx, state); err != nil {
		stopEditor(editor)
		_ = closer.Close()
		_ = logger.Close()
		return nil, err
	}
	return &headless{ctrl: ctrl, bus: bus, logger: logger, closer: closer}, nil
}

// stopEditor releases an editor that watches something, such as a file.
func stopEditor(editor playground.Editor) {
	if s, ok := editor.(interface{ Stop() }); ok {
		s.Stop()
	}
}

func (h *headless) Close() error {
	h.ctrl.Wait()
	err := h.closer.Close()
	_ = h.logger.Close()
	return err
}

func newSandbox(cfg *config.Config, logger *logging.Logger) *sandbox.Sandbox {
	return sandbox.New(sandbox.Options{
		MaxOutputBytes: cfg.Sandbox.MaxOutputBytes,
		NsjailConfig:   cfg.Sandbox.NsjailConfig,
		Timeout:        cfg.Sandbox.Timeout,
		Logger:         logger,
	})
}

// textEditor is a fixed editor text.
type textEditor string

func (t textEditor) Text() string { return string(t) }

func staticEditor(code string) func(*logging.Logger) (playground.Editor, error) {
	return func(*logging.Logger) (playground.Editor, error) { return textEditor(code), nil }
}

// readSource reads a source file; "-" reads stdin.
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// resultPrinter writes pane results as blocks. It is safe for concurrent use.
type resultPrinter struct {
	mu     sync.Mutex
	out    io.Writer
	styled bool
	quiet  bool
}

func newResultPrinter(out io.Writer) *resultPrinter {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd())
	}
	return &resultPrinter{out: out, styled: styled}
}

// silence drops everything printed afterwards.
func (p *resultPrinter) silence() {
	p.mu.Lock()
	p.quiet = true
	p.mu.Unlock()
}

func (p *resultPrinter) print(v playground.PaneView, exitCode int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quiet {
		return
	}

	status := fmt.Sprintf("exit %d", exitCode)
	if v.State == pane.Failed {
		status = "failed"
	}

	output := v.Output
	if output != "" && !strings.HasSuffix(output, "\n") {
		output += "\n"
	}

	if !p.styled {
		fmt.Fprintf(p.out, "== %s (%s) ==\n%s\n", v.ID, status, output)
		return
	}

	color := styles.StateColor(v.State)
	if v.State == pane.Rendered && exitCode != 0 {
		color = styles.WarningColor
	}
	header := styles.PaneTitle.Render(v.Title) + " " +
		lipgloss.NewStyle().Foreground(color).Render(styles.StateIcon(v.State)+" "+status)
	fmt.Fprintln(p.out, header)
	fmt.Fprintln(p.out, styles.Gutter.Render(util.Indent(output, "│ ")))
}
