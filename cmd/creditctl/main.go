package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Dan9191/credit-scoring/internal/app"
	"github.com/Dan9191/credit-scoring/internal/config"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "creditctl",
		Short:        "Operator tooling for the credit scoring service",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(geoCmd())
	rootCmd.AddCommand(hashIDCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads configuration and connects the service
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return app.New(ctx, cfg, app.NewLogger(cfg.LogLevel))
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
