package main

import (
	"fmt"
	"time"

	"github.com/Dan9191/credit-scoring/internal/service"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [profile-id]",
		Short: "Recompute a profile's ratings and score now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Service.SyncProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func sweepCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one scheduled sync pass over every due profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				now = t.UTC()
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.Service.RunSweep(cmd.Context(), now)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, summary); err != nil {
				return err
			}
			if n := summary.Count(service.StatusError); n > 0 {
				return fmt.Errorf("%d profiles failed", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Evaluate schedules as of this RFC3339 instant")
	return cmd
}
