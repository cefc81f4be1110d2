package main

import (
	"github.com/Adda-Baaj/handshake/internal/app"
	"github.com/Adda-Baaj/handshake/internal/logger"
	"github.com/Adda-Baaj/handshake/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the handshake over HTTP (GET or POST /)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx := cmd.Context()
			runner, err := app.NewRunner(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := runner.Close(); cerr != nil {
					logger.ErrorObj("runner close failed", "error", cerr.Error())
				}
			}()

			router := server.NewRouter(server.NewHandler(*cfg, runner), log.Desugar())
			return server.Serve(ctx, cfg.ListenAddr, router, log.Desugar())
		},
	}
	cmd.Flags().String("listen", ":8080", "address the web server listens on")
	return cmd
}
