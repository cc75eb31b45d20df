package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/pyexpl/internal/runner"
)

func newRunnersCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "runners",
		Short: "List known runners",
		Long: `List the runners pyexpl knows by name. With --remote, list the runners
the configured backend can actually execute.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := runner.Catalog()
			if remote {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				entries, err = newClient(cfg).Runners(cmd.Context())
				if err != nil {
					return fmt.Errorf("list backend runners: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-14s %-14s %-14s %s\n", "ID", "LABEL", "KIND", "TITLE")
			for _, e := range entries {
				fmt.Fprintf(out, "%-14s %-14s %-14s %s\n", e.ID, e.Label, e.Kind, e.Title)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the backend instead of the built-in catalog")
	return cmd
}
