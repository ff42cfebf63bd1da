package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docclass/internal/repository"
)

var dbhealthTimeout time.Duration

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Ping the configured result database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		start := time.Now()
		if err := db.HealthCheck(ctx, dbhealthTimeout); err != nil {
			logger.Error("db health: FAIL", "driver", cfg.Database.Driver, "error", err)
			return err
		}
		return output(map[string]any{
			"driver":     cfg.Database.Driver,
			"status":     "OK",
			"latency_ms": time.Since(start).Milliseconds(),
		})
	},
}

func init() {
	dbhealthCmd.Flags().DurationVar(&dbhealthTimeout, "timeout", time.Second, "ping timeout")

	rootCmd.AddCommand(dbhealthCmd)
}
