package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendwise/pkg/client"
	gmailreader "github.com/ArionMiles/spendwise/pkg/reader/gmail"
	sheetswriter "github.com/ArionMiles/spendwise/pkg/writer/sheets"
)

func setupCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Authorize Gmail and Google Sheets access",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "discard the cached token and sign in again")
	return cmd
}

// googleScopes covers gmail-import and the sheets exporter with one token.
func googleScopes() []string {
	return slices.Concat(gmailreader.Scopes, sheetswriter.Scopes)
}

func runSetup(cmd *cobra.Command, force bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("spendwise setup"))

	if _, err := os.Stat(cfg.ClientSecretFile); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("client secret not found: %s\n\nTo get one:\n"+
			"1. Go to https://console.cloud.google.com/apis/credentials\n"+
			"2. Create an OAuth 2.0 Client ID (Desktop application)\n"+
			"3. Download the JSON file and save it as '%s'", cfg.ClientSecretFile, cfg.ClientSecretFile)
	}

	if !force {
		if _, err := os.Stat(cfg.TokenFile); err == nil {
			fmt.Fprintf(out, "Already authorized, token file exists: %s\n", cfg.TokenFile)
			fmt.Fprintln(out, subtleStyle.Render("To sign in again, run: spendwise setup --force"))
			return nil
		}
	} else if err := os.Remove(cfg.TokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove existing token", "error", err)
	}

	fmt.Fprintln(out, "Requested permissions:")
	fmt.Fprintln(out, "  - Gmail: read bank alert mails and mark imported ones as read")
	fmt.Fprintln(out, "  - Sheets: export transactions to a spreadsheet")
	fmt.Fprintln(out)

	_, err := client.New(cmd.Context(), client.Options{
		SecretFile: cfg.ClientSecretFile,
		TokenFile:  cfg.TokenFile,
		Prompt:     out,
		Logger:     logger.With("component", "oauth"),
	}, googleScopes()...)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	fmt.Fprintln(out, successStyle.Render("✓ Authorized. Token saved to "+cfg.TokenFile))
	return nil
}
