package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendwise/pkg/client"
	"github.com/ArionMiles/spendwise/pkg/writer"
	csvwriter "github.com/ArionMiles/spendwise/pkg/writer/csv"
	jsonwriter "github.com/ArionMiles/spendwise/pkg/writer/json"
	sheetswriter "github.com/ArionMiles/spendwise/pkg/writer/sheets"
)

func exportCmd() *cobra.Command {
	var (
		ownerID  int64
		format   string
		out      string
		from, to string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an owner's transactions",
		Long: `Export transactions oldest first.

  csv     appends to --out (header only for a new file), or stdout when --out is "-"
  json    merges into the JSON array in --out, or prints to stdout when --out is "-"
  sheets  appends to the Google Sheet set by GSHEETS_ID or GSHEETS_TITLE, tab GSHEETS_NAME

--from and --to take YYYY-MM-DD dates; --to is exclusive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			period, err := parsePeriod(from, to, loc)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			txns, err := a.Store.ListTransactions(ctx, ownerID, period)
			if err != nil {
				return err
			}
			slices.Reverse(txns)

			w, err := newWriter(ctx, format, out, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := w.Write(ctx, txns); err != nil {
				return fmt.Errorf("writing %s: %w", format, err)
			}

			if out != "-" || format == "sheets" {
				fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render(
					fmt.Sprintf("✓ Exported %d transactions as %s", len(txns), format)))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&ownerID, "owner", 0, "owner to export")
	cmd.Flags().StringVar(&format, "format", "csv", "output format (csv, json, sheets)")
	cmd.Flags().StringVarP(&out, "out", "o", "-", `output file for csv and json, "-" for stdout`)
	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "day to stop before (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newWriter(ctx context.Context, format, out string, stdout io.Writer) (writer.Writer, error) {
	log := logger.With("component", "writer", "format", format)

	switch format {
	case "csv":
		c := csvwriter.Config{FilePath: out}
		if out == "-" {
			c = csvwriter.Config{Output: stdout}
		}
		return csvwriter.New(c, log)
	case "json":
		c := jsonwriter.Config{FilePath: out}
		if out == "-" {
			c = jsonwriter.Config{Output: stdout}
		}
		return jsonwriter.New(c, log)
	case "sheets":
		httpClient, err := client.New(ctx, client.Options{
			SecretFile: cfg.ClientSecretFile,
			TokenFile:  cfg.TokenFile,
			Logger:     logger.With("component", "oauth"),
		}, googleScopes()...)
		if err != nil {
			return nil, fmt.Errorf("creating http client: %w", err)
		}
		return sheetswriter.New(ctx, httpClient, sheetswriter.Config{
			SheetTitle: cfg.GSheetsTitle,
			SheetID:    cfg.GSheetsID,
			SheetName:  cfg.GSheetsName,
		}, log)
	default:
		return nil, fmt.Errorf("unknown export format %q (want csv, json or sheets)", format)
	}
}
