package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendwise/pkg/client"
	gmailreader "github.com/ArionMiles/spendwise/pkg/reader/gmail"
)

func gmailImportCmd() *cobra.Command {
	var (
		ownerID    int64
		query      string
		limit      int
		keepUnread bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "gmail-import",
		Short: "Classify bank alert mails from Gmail",
		Long: `Fetch mails matching the Gmail search query and classify their text as
bank SMS alerts. Mails that produced a transaction are marked as read so the
next run skips them. Run "spendwise setup" first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if query == "" {
				query = cfg.GmailQuery
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			httpClient, err := client.New(ctx, client.Options{
				SecretFile: cfg.ClientSecretFile,
				TokenFile:  cfg.TokenFile,
				Prompt:     cmd.OutOrStdout(),
				Logger:     logger.With("component", "oauth"),
			}, googleScopes()...)
			if err != nil {
				return fmt.Errorf("creating http client: %w", err)
			}

			reader, err := gmailreader.New(ctx, httpClient, logger.With("component", "gmail_reader"))
			if err != nil {
				return fmt.Errorf("creating gmail reader: %w", err)
			}

			msgs, err := reader.Fetch(ctx, query, limit)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No mails match "+query))
				return nil
			}

			res, err := classifyAll(ctx, a.Batch, ownerID, msgs, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			printBatchSummary(cmd.OutOrStdout(), res, msgs, verbose)

			if keepUnread {
				return nil
			}
			var done []string
			for _, item := range res.Results {
				if item.Success {
					done = append(done, msgs[item.Index].Ref)
				}
			}
			marked := reader.MarkRead(ctx, done...)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d imported mails marked as read\n", marked, len(done))
			return nil
		},
	}
	cmd.Flags().Int64Var(&ownerID, "owner", 0, "owner the transactions belong to")
	cmd.Flags().StringVar(&query, "query", "", "Gmail search query (default GMAIL_QUERY)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of mails to fetch, 0 for all")
	cmd.Flags().BoolVar(&keepUnread, "keep-unread", false, "do not mark imported mails as read")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every failed mail")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
