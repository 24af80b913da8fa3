package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imsight/visitlog/internal/enrich"
	"github.com/imsight/visitlog/pkg/kakao"
)

var (
	enrichLat        float64
	enrichLng        float64
	enrichPropertyID string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a coordinate or a stored property synchronously",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if enrichPropertyID != "" {
			id, err := uuid.Parse(enrichPropertyID)
			if err != nil {
				return err
			}
			env, err := initFullEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := runEnrichProperty(ctx, env, newKakaoClient(), enrichOptions(), id); err != nil {
				return err
			}
			zap.L().Info("property enriched", zap.String("property", id.String()))
			return nil
		}

		env, err := initCacheEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := runEnrichCoordinate(ctx, env, newKakaoClient(), enrichOptions(), enrichLat, enrichLng); err != nil {
			return err
		}
		zap.L().Info("coordinate enriched", zap.Float64("lat", enrichLat), zap.Float64("lng", enrichLng))
		return nil
	},
}

func runEnrichProperty(ctx context.Context, e *env, client kakao.Client, opts enrich.Options, id uuid.UUID) error {
	if err := e.cache.Migrate(ctx); err != nil {
		return err
	}
	if err := e.props.Migrate(ctx); err != nil {
		return err
	}
	orch := enrich.NewOrchestrator(client, e.cache, e.props, opts)
	return orch.EnrichProperty(ctx, id)
}

func runEnrichCoordinate(ctx context.Context, e *env, client kakao.Client, opts enrich.Options, lat, lng float64) error {
	if err := e.cache.Migrate(ctx); err != nil {
		return err
	}
	orch := enrich.NewOrchestrator(client, e.cache, nil, opts)
	return orch.FetchAndCache(ctx, lat, lng)
}

func init() {
	enrichCmd.Flags().Float64Var(&enrichLat, "lat", 0, "latitude to enrich")
	enrichCmd.Flags().Float64Var(&enrichLng, "lng", 0, "longitude to enrich")
	enrichCmd.Flags().StringVar(&enrichPropertyID, "property", "", "property id to enrich (requires postgres)")
	rootCmd.AddCommand(enrichCmd)
}
