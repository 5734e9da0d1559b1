package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/credit-scoring/internal/config"
	"github.com/Dan9191/credit-scoring/internal/geo"
	"github.com/Dan9191/credit-scoring/internal/models"
	"github.com/spf13/cobra"
)

func geoCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "geo",
		Short: "Assess the travel speed between two card locations",
		Long: `Assess a sample pair offline with the configured thresholds.
Samples are given as lat,lon,RFC3339-timestamp.`,
		Example: "creditctl geo --from 45.50,-73.56,2025-07-01T12:00:00Z --to 43.65,-79.38,2025-07-01T12:30:00Z",
		RunE: func(cmd *cobra.Command, args []string) error {
			previous, err := parseSample(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			current, err := parseSample(to)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			a := geo.Assess(current, &previous, geo.WithDefaults(&cfg.Geo, geo.DefaultThresholds()))
			return printJSON(cmd, map[string]interface{}{
				"assessment": a,
				"signal":     geo.Signal(a),
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Previous sample")
	cmd.Flags().StringVar(&to, "to", "", "Current sample")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func parseSample(s string) (models.GeoSample, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return models.GeoSample{}, fmt.Errorf("expected lat,lon,timestamp")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.GeoSample{}, err
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.GeoSample{}, err
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[2]))
	if err != nil {
		return models.GeoSample{}, err
	}
	return models.GeoSample{Latitude: lat, Longitude: lon, Timestamp: ts}, nil
}
