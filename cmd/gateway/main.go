// Command gateway serves the codelens API and runs one-off learning passes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codelens/internal/gateway/app"
	"codelens/internal/gateway/config"
	"codelens/internal/logging"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	port     string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCmd(opts)
	root := &cobra.Command{
		Use:   "gateway",
		Short: "Codebase learning and assistant API",
		Long: `gateway scans a local project, asks a language model to summarize it and
serves the result, a chat assistant and code transformations over HTTP.

Runs the API server when no subcommand is given.`,
		Version:       version,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&opts.port, "port", "", "listen address, overrides PORT")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level, overrides LOG_LEVEL")
	root.AddCommand(serve, newLearnCmd(opts))
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, log, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			defer a.Close()
			return a.Serve(cmd.Context(), opts.port)
		},
	}
}

func bootstrap(ctx context.Context, opts *rootOptions) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("init app: %w", err)
	}
	return a, log, nil
}
