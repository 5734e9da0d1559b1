package main

import (
	"fmt"
	"time"

	"github.com/Dan9191/credit-scoring/internal/config"
	"github.com/Dan9191/credit-scoring/internal/middleware"
	"github.com/Dan9191/credit-scoring/internal/utils"
	"github.com/spf13/cobra"
)

func hashIDCmd() *cobra.Command {
	var encrypt bool
	cmd := &cobra.Command{
		Use:   "hash-id [national-id]",
		Short: "Print the credit record key of a national identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			hash, err := utils.HashNationalID(args[0], []byte(cfg.HMACSecret))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			if encrypt {
				enc, err := utils.Encrypt(utils.NormalizeNationalID(args[0]), cfg.EncryptionKey)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), enc)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "Also print the at-rest encrypted form")
	return cmd
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Mint an API bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
