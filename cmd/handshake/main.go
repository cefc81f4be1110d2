package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adda-Baaj/handshake/internal/app"
	"github.com/Adda-Baaj/handshake/internal/config"
	"github.com/Adda-Baaj/handshake/internal/logger"
	"github.com/Adda-Baaj/handshake/pkg/sinks"
	"github.com/spf13/cobra"
)

// errRunFailed signals a failed handshake whose error the console sink already printed.
var errRunFailed = errors.New("handshake failed")

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "handshake",
		Short:         "Run the three-step code handshake against an endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runOnce,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(), newHistoryCmd())
	return root
}

// setup loads config from env and the command's flags and initializes logging.
func setup(cmd *cobra.Command) (*config.Config, *logger.Zap, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger.DebugObj("handshake config", "config", cfg)
	return cfg, log, nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx := cmd.Context()
	console := sinks.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr(), false)
	runner, err := app.NewRunner(ctx, cfg, log, app.WithSinks(console), app.WithTraceWriter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := runner.Close(); cerr != nil {
			logger.ErrorObj("runner close failed", "error", cerr.Error())
		}
	}()

	if result := runner.Run(ctx, cfg, "cli"); !result.Success {
		return errRunFailed
	}
	return nil
}
