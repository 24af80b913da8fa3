package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Store.Driver == "sqlite" {
			env, err := initCacheEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.cache.Migrate(ctx); err != nil {
				return err
			}
			zap.L().Info("sqlite cache schema migrated", zap.String("path", cfg.Store.SQLitePath))
			return nil
		}

		env, err := initFullEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.cache.Migrate(ctx); err != nil {
			return err
		}
		if err := env.props.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("postgres schema migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
