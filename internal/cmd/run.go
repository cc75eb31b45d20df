package cmd

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/pyexpl/internal/event"
	"github.com/Iron-Ham/pyexpl/internal/pane"
)

type runOptions struct {
	headlessOptions
	json bool
}

// runResult is one runner's outcome in --json output.
type runResult struct {
	Runner   string `json:"runner"`
	Title    string `json:"title"`
	State    string `json:"state"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a file on every runner and print the results",
		Long: `Run FILE (or stdin with "-") once on each runner and print one block
per runner, in runner order. Exits non-zero when any runner failed.

Without --runner the runners open in the last playground session are used.`,
		Example: `  pyexpl run script.py -r python3.12 -r python3.14
  cat script.py | pyexpl run - --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.json, "json", false, "print results as JSON")
	return cmd
}

func runRun(cmd *cobra.Command, path string, opts *runOptions) error {
	code, err := readSource(cmd, path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	h, err := openHeadless(ctx, &opts.headlessOptions, staticEditor(code))
	if err != nil {
		return err
	}
	defer h.Close() //nolint:errcheck

	var mu sync.Mutex
	exitCodes := make(map[string]int)
	h.bus.Subscribe(event.TypeRunCompleted, func(e event.Event) {
		done := e.(event.RunCompletedEvent)
		mu.Lock()
		exitCodes[done.RunnerID] = done.ExitCode
		mu.Unlock()
	})

	if issued := h.ctrl.Run(ctx); len(issued) == 0 {
		return fmt.Errorf("no runners selected (pass --runner)")
	}
	h.ctrl.Wait()

	panes := h.ctrl.Panes()
	failed := 0
	results := make([]runResult, 0, len(panes))
	for _, v := range panes {
		if v.State == pane.Failed {
			failed++
		}
		results = append(results, runResult{
			Runner:   string(v.ID),
			Title:    v.Title,
			State:    v.State.String(),
			ExitCode: exitCodes[string(v.ID)],
			Output:   v.Output,
		})
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
	} else {
		printer := newResultPrinter(out)
		for _, v := range panes {
			printer.print(v, exitCodes[string(v.ID)])
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d runner(s) failed", failed, len(panes))
	}
	return nil
}
