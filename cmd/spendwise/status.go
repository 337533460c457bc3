package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendwise/internal/storage"
	"github.com/ArionMiles/spendwise/pkg/categorizer"
	"github.com/ArionMiles/spendwise/pkg/client"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, storage and Google authorization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("spendwise status"))

			ok := true
			check := func(label string, err error) {
				if err != nil {
					fmt.Fprintf(out, "%s %s: %v\n", errorStyle.Render("✗"), label, err)
					ok = false
					return
				}
				fmt.Fprintf(out, "%s %s\n", successStyle.Render("✓"), label)
			}

			_, err := cfg.Location()
			check("SMS timezone "+cfg.SMSTimezone, err)
			if cfg.JWTSecret == "" {
				check("JWT secret", fmt.Errorf("JWT_SECRET is not set"))
			} else {
				check("JWT secret", nil)
			}

			store, err := storage.Default().Open(cmd.Context(), cfg, logger)
			check("store "+cfg.Store, err)
			if err == nil {
				store.Close()
			}

			fmt.Fprintf(out, "%s built-in categories: %d\n",
				subtleStyle.Render("•"), len(categorizer.DefaultStaticTable().Categories()))

			googleStatus(out, check)

			fmt.Fprintln(out)
			if ok {
				fmt.Fprintln(out, successStyle.Render("All checks passed."))
			} else {
				fmt.Fprintln(out, warningStyle.Render("Some checks failed. Gmail import and Sheets export need \"spendwise setup\"."))
			}
			return nil
		},
	}
}

func googleStatus(out io.Writer, check func(string, error)) {
	if _, err := os.Stat(cfg.ClientSecretFile); err != nil {
		check("client secret "+cfg.ClientSecretFile, err)
		return
	}
	check("client secret "+cfg.ClientSecretFile, nil)

	tok, err := client.LoadToken(cfg.TokenFile)
	if err != nil {
		check("OAuth token "+cfg.TokenFile, err)
		return
	}
	check("OAuth token "+cfg.TokenFile, nil)
	switch {
	case tok.RefreshToken == "":
		fmt.Fprintln(out, warningStyle.Render("  token has no refresh token; run setup --force"))
	case !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now()):
		fmt.Fprintln(out, subtleStyle.Render("  access token expired, it is refreshed on next use"))
	}
}
