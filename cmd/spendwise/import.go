package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/engine"
	"github.com/ArionMiles/spendwise/pkg/importer"
)

func importCmd() *cobra.Command {
	var (
		ownerID int64
		format  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Classify every message of an SMS export",
		Long: `Import an SMS export and classify each message for the owner.

Formats:
  text      one message per line, optionally "timestamp|sender|text"
  csv       header "timestamp,message_text"
  whatsapp  exported WhatsApp chat
  mbox      mailbox of bank alert mails

Messages are sent through the classifier in batches of 100. Messages that are
not bank alerts are reported as failures and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := importer.ParseFormat(format)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer file.Close()

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			msgs, err := a.Importer.Import(file, f)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render("No messages found in "+args[0]))
				return nil
			}

			res, err := classifyAll(cmd.Context(), a.Batch, ownerID, msgs, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			printBatchSummary(cmd.OutOrStdout(), res, msgs, verbose)
			return nil
		},
	}
	cmd.Flags().Int64Var(&ownerID, "owner", 0, "owner the transactions belong to")
	cmd.Flags().StringVar(&format, "format", string(importer.FormatText), "input format (text, csv, whatsapp, mbox)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every failed message")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// classifyAll runs msgs through the batch processor in chunks of
// api.MaxBatchSize and merges the results. Item indexes refer to msgs.
func classifyAll(ctx context.Context, batch *engine.BatchProcessor, ownerID int64, msgs []api.SMSMessage, progress io.Writer) (*api.BatchResult, error) {
	bar := progressbar.NewOptions(len(msgs),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Classifying messages...[reset]"),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(progress) }),
	)

	total := &api.BatchResult{Results: make([]api.ItemResult, 0, len(msgs))}
	offset := 0
	for chunk := range slices.Chunk(msgs, api.MaxBatchSize) {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		res, err := batch.ProcessBatchWithProgress(ctx, ownerID, chunk, func(api.ItemResult) {
			if err := bar.Add(1); err != nil {
				slog.Debug("failed to update progress bar", "error", err)
			}
		})
		if err != nil {
			return total, err
		}

		for _, item := range res.Results {
			item.Index += offset
			total.Results = append(total.Results, item)
		}
		total.TotalProcessed += res.TotalProcessed
		total.SuccessCount += res.SuccessCount
		total.FailureCount += res.FailureCount
		offset += len(chunk)
	}
	return total, nil
}

func printBatchSummary(w io.Writer, res *api.BatchResult, msgs []api.SMSMessage, verbose bool) {
	fmt.Fprintf(w, "%s %d saved, %s %d skipped, %d total\n",
		successStyle.Render("✓"), res.SuccessCount,
		warningStyle.Render("•"), res.FailureCount,
		res.TotalProcessed)

	if !verbose || res.FailureCount == 0 {
		return
	}
	tw := newTable(w, "REF", "ERROR")
	for _, item := range res.Results {
		if item.Success {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", msgs[item.Index].Ref, item.Error)
	}
	tw.Flush()
}
