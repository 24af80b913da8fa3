package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanupOlderThanDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Hard-delete soft-deleted properties past retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initFullEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		days := cleanupOlderThanDays
		if days == 0 {
			days = cfg.Cleanup.RetentionDays
		}
		cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

		n, err := env.props.PurgeDeleted(ctx, cutoff)
		if err != nil {
			return err
		}
		zap.L().Info("purge complete", zap.Int64("removed", n), zap.Int("older_than_days", days))
		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupOlderThanDays, "older-than-days", 0, "retention window in days (default from config)")
	rootCmd.AddCommand(cleanupCmd)
}
