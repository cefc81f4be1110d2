package main

import (
	"encoding/json"
	"fmt"

	"github.com/Adda-Baaj/handshake/internal/logger"
	"github.com/Adda-Baaj/handshake/internal/storage"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently recorded handshake runs as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Close()

			store, err := storage.NewStore(cfg.HistoryType, cfg.HistoryPath, storage.Options{
				RunTTL:          cfg.HistoryTTL,
				CleanupInterval: cfg.HistoryCleanupInterval,
			})
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			runs, err := store.Recent(limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range runs {
				if err := enc.Encode(r); err != nil {
					return fmt.Errorf("write run: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 lists all)")
	return cmd
}
