package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/pyexpl/internal/runner"
)

var copyToClipboard = clipboard.WriteAll

type shareOptions struct {
	runners []string
	copy    bool
}

func newShareCmd() *cobra.Command {
	opts := &shareOptions{}
	cmd := &cobra.Command{
		Use:   "share FILE",
		Short: "Publish a file as a shared session",
		Long: `Store FILE (or stdin with "-") and a runner list on the backend and print
the URL of the shared session. Open it with ` + "`pyexpl start --share URL`" + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShare(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.runners, "runner", "r", nil,
		"runner to include, repeatable (default: the runners open in the last session)")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "copy the URL to the clipboard")
	return cmd
}

func runShare(cmd *cobra.Command, path string, opts *shareOptions) error {
	code, err := readSource(cmd, path)
	if err != nil {
		return err
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
	var runners runner.Set
	if len(opts.runners) > 0 {
		runners = runner.NormalizeAll(opts.runners)
	} else {
		sel, closer, err := openSelection(ctx, cfg, logger)
		if err != nil {
			return err
		}
		runners = sel.LoadRunnerSet(ctx)
		_ = closer.Close()
	}

	url, err := newClient(cfg).Share(ctx, code, runners)
	if err != nil {
		return fmt.Errorf("share: %w", err)
	}
	logger.Info("session shared", "url", url, "runners", runners.Strings())
	fmt.Fprintln(cmd.OutOrStdout(), url)

	if opts.copy {
		if err := copyToClipboard(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "could not copy to clipboard: %v\n", err)
		}
	}
	return nil
}
