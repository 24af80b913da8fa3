package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imsight/visitlog/internal/geocell"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the location cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache record and API call counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCacheEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.cache.Migrate(ctx); err != nil {
			return err
		}

		st, err := env.cache.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("records:        %d\n", st.Records)
		fmt.Printf("api calls:      %d\n", st.TotalAPICalls)
		return nil
	},
}

var (
	cacheShowLat float64
	cacheShowLng float64
)

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached record for a coordinate's cell",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cell, err := geocell.ToCell(cacheShowLat, cacheShowLng, geocell.BaseResolution)
		if err != nil {
			return err
		}

		env, err := initCacheEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.cache.Get(ctx, cell)
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Printf("no record for cell %s\n", cell)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	cacheShowCmd.Flags().Float64Var(&cacheShowLat, "lat", 0, "latitude")
	cacheShowCmd.Flags().Float64Var(&cacheShowLng, "lng", 0, "longitude")
	cacheCmd.AddCommand(cacheStatusCmd, cacheShowCmd)
	rootCmd.AddCommand(cacheCmd)
}
