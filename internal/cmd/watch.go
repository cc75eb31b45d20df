package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/pyexpl/internal/event"
	"github.com/Iron-Ham/pyexpl/internal/logging"
	"github.com/Iron-Ham/pyexpl/internal/playground"
	"github.com/Iron-Ham/pyexpl/internal/runner"
	"github.com/Iron-Ham/pyexpl/internal/watch"
)

func newWatchCmd() *cobra.Command {
	opts := &headlessOptions{}
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Rerun a file on every runner each time it is saved",
		Long: `Watch FILE and run it on every runner once at start and again after
each save, printing each runner's result as it arrives. Results print in
arrival order, so a slow run can land after the one that followed it.

Saves are written to the session store like edits in the playground, so
` + "`pyexpl start`" + ` picks up where watch left off. Stop with ctrl+c.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, path string, opts *headlessOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var fe *watch.FileEditor
	h, err := openHeadless(ctx, opts, func(logger *logging.Logger) (playground.Editor, error) {
		var err error
		fe, err = watch.New(path, logger)
		return fe, err
	})
	if err != nil {
		return err
	}
	defer h.Close() //nolint:errcheck

	printer := newResultPrinter(cmd.OutOrStdout())
	status := cmd.ErrOrStderr()

	h.bus.Subscribe(event.TypeRunCompleted, func(e event.Event) {
		done := e.(event.RunCompletedEvent)
		if v, ok := h.ctrl.Pane(runner.ID(done.RunnerID)); ok {
			printer.print(v, done.ExitCode)
		}
	})
	h.bus.Subscribe(event.TypeRunFailed, func(e event.Event) {
		failed := e.(event.RunFailedEvent)
		if v, ok := h.ctrl.Pane(runner.ID(failed.RunnerID)); ok {
			printer.print(v, 0)
		}
	})
	h.bus.Subscribe(event.TypeRunDispatched, func(e event.Event) {
		dispatched := e.(event.RunDispatchedEvent)
		printer.mu.Lock()
		defer printer.mu.Unlock()
		if !printer.quiet {
			fmt.Fprintf(status, "running on %d runner(s)...\n", len(dispatched.RunnerIDs))
		}
	})

	fe.SetChangeCallback(func(text string) {
		h.ctrl.CodeChanged(ctx, text)
		h.ctrl.Run(ctx)
	})
	fe.Start()
	defer fe.Stop()

	if issued := h.ctrl.Run(ctx); len(issued) == 0 {
		fmt.Fprintln(status, "no runners selected (pass --runner); waiting for saves anyway")
	}
	fmt.Fprintf(status, "watching %s\n", fe.Path())

	<-ctx.Done()
	// Requests canceled on the way out would only print as failures.
	printer.silence()
	return nil
}
