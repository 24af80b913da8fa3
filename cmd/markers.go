package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/imsight/visitlog/internal/property"
)

var (
	markersUser  string
	markersNELat float64
	markersNELng float64
	markersSWLat float64
	markersSWLng float64
	markersZoom  int
)

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Query map markers for a viewport",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		owner, err := uuid.Parse(markersUser)
		if err != nil {
			return err
		}

		env, err := initFullEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		svc := property.NewMapService(env.props, env.cache)
		markers, err := svc.QueryMarkers(ctx, owner, property.Viewport{
			NELat: markersNELat,
			NELng: markersNELng,
			SWLat: markersSWLat,
			SWLng: markersSWLng,
			Zoom:  markersZoom,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(markers)
	},
}

func init() {
	markersCmd.Flags().StringVar(&markersUser, "user", "", "owner user id")
	markersCmd.Flags().Float64Var(&markersNELat, "ne-lat", 0, "viewport northeast latitude")
	markersCmd.Flags().Float64Var(&markersNELng, "ne-lng", 0, "viewport northeast longitude")
	markersCmd.Flags().Float64Var(&markersSWLat, "sw-lat", 0, "viewport southwest latitude")
	markersCmd.Flags().Float64Var(&markersSWLng, "sw-lng", 0, "viewport southwest longitude")
	markersCmd.Flags().IntVar(&markersZoom, "zoom", 15, "map zoom level (1-21)")
	_ = markersCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(markersCmd)
}
