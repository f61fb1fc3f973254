package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"soapbox/internal/deps"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass against the feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := deps.Verify(cfg); err != nil {
				return err
			}

			engine, store, err := ctx.newEngine()
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := engine.SyncOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %d discovered, %d synced, %d failed\n",
				report.RunID, report.Discovered, report.Synced, report.Failed)
			for id, cause := range report.Causes {
				fmt.Fprintf(out, "  %s: %s\n", id, cause)
			}
			return nil
		},
	}
}
