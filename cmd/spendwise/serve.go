package main

import (
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API on HTTP_ADDR until interrupted.

Requests are authenticated with HS256 bearer tokens signed with JWT_SECRET;
use "spendwise token --owner N" to mint one for local testing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Serve(cmd.Context())
		},
	}
}
