package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendwise/internal/server"
)

func tokenCmd() *cobra.Command {
	var (
		ownerID int64
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Long: `Sign an HS256 token for the owner with JWT_SECRET. Intended for local
testing of the HTTP API; a zero --ttl produces a token that never expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET environment variable is required")
			}
			if ownerID <= 0 {
				return errors.New("--owner must be a positive owner id")
			}

			tok, err := server.IssueToken([]byte(cfg.JWTSecret), ownerID, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&ownerID, "owner", 0, "owner the token authenticates")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
