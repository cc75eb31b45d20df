package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/pyexpl/internal/db"
	"github.com/Iron-Ham/pyexpl/internal/server"
	"github.com/Iron-Ham/pyexpl/internal/share"
)

type serveOptions struct {
	addr    string
	noShare bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the execution backend",
		Long: `Serve the execution backend API that the playground talks to:

  GET  /healthz       liveness
  GET  /runners       runners this host can execute
  POST /run           run code (form fields: label, code)
  POST /share         store a shared session (form fields: code, runners)
  GET  /share/{id}    load a shared session

Runners execute as local processes, inside nsjail when sandbox.nsjail_config
is set. Shared sessions are kept in a sqlite database (server.db_path).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default: server.addr)")
	cmd.Flags().BoolVar(&opts.noShare, "no-share", false, "disable the share endpoints")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer logger.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Server.Addr
	if opts.addr != "" {
		addr = opts.addr
	}

	backend := newSandbox(cfg, logger)
	srvOpts := server.Options{
		Addr:              addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		Backend:           backend,
		Logger:            logger,
	}
	if !opts.noShare {
		shares, err := share.Open(ctx, cfg.ShareDBPath())
		if err != nil {
			return fmt.Errorf("open share store: %w", err)
		}
		defer shares.Close() //nolint:errcheck
		srvOpts.Shares = shares

		n, err := shares.Count(ctx)
		if err != nil {
			return fmt.Errorf("read share store: %w", err)
		}
		version, dirty, err := db.SchemaVersion(cfg.ShareDBPath())
		if err != nil {
			return fmt.Errorf("read share store schema: %w", err)
		}
		logger.Info("share store ready", "path", cfg.ShareDBPath(), "shares", n, "schema_version", version, "dirty", dirty)
		fmt.Fprintf(cmd.ErrOrStderr(), "shared sessions: %d (schema v%d)\n", n, version)
	}

	labels := backend.Labels()
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "pyexpl backend on %s (runners: %s)\n", addr, strings.Join(names, ", "))
	return server.New(srvOpts).Start(ctx)
}
