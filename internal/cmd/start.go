package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/pyexpl/internal/bootstrap"
	"github.com/Iron-Ham/pyexpl/internal/client"
	"github.com/Iron-Ham/pyexpl/internal/tui"
)

type startOptions struct {
	share   string
	session string
}

func newStartCmd() *cobra.Command {
	opts := &startOptions{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open the playground",
		Long: `Open the playground TUI: an editor next to one output pane per runner.

The editor text and the open runners are restored from the last session.
--share opens a shared session (by ID or URL) instead; --session opens a
session saved as JSON ({"code": "...", "runners": [...]}). Neither is
written back to the store until you change something.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStart(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.share, "share", "", "open a shared session by ID or URL")
	cmd.Flags().StringVar(&opts.session, "session", "", "open a session from a JSON file")
	cmd.MarkFlagsMutuallyExclusive("share", "session")
	return cmd
}

func runStart(cmd *cobra.Command, opts *startOptions) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("start needs a terminal; use `pyexpl run` for headless runs")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer logger.Close() //nolint:errcheck

	ctx := cmd.Context()
	sel, closer, err := openSelection(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	backend := newClient(cfg)

	var payload *bootstrap.Payload
	switch {
	case opts.share != "":
		payload, err = loadSharedSession(ctx, backend, opts.share)
		if err != nil {
			return err
		}
	case opts.session != "":
		payload, err = bootstrap.LoadFile(opts.session)
		if err != nil {
			return err
		}
	}
	state := bootstrap.Resolve(ctx, payload, sel)

	width, height := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = w, h
	}

	app, err := tui.New(ctx, tui.Options{
		Executor:           backend,
		Selection:          sel,
		Sharer:             backend,
		Logger:             logger,
		State:              state,
		MinPaneLines:       cfg.TUI.MinPaneLines,
		GutterLines:        cfg.TUI.GutterLines,
		EditorWidthPercent: cfg.TUI.EditorWidthPercent,
		Mouse:              cfg.TUI.Mouse,
		Width:              width,
		Height:             height,
	})
	if err != nil {
		return err
	}
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// loadSharedSession checks that the backend is up, then fetches the shared
// session ref names.
func loadSharedSession(ctx context.Context, backend *client.Client, ref string) (*bootstrap.Payload, error) {
	if err := backend.Health(ctx); err != nil {
		return nil, fmt.Errorf("backend unavailable: %w", err)
	}
	payload, err := backend.LoadShare(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load shared session: %w", err)
	}
	return payload, nil
}
