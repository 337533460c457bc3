package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/categorizer"
	"github.com/ArionMiles/spendwise/pkg/smsparser"
)

func parseCmd() *cobra.Command {
	var ownerID int64

	cmd := &cobra.Command{
		Use:   "parse <sms text>",
		Short: "Parse and categorize an SMS without saving it",
		Long: `Parse one bank SMS and show the transaction and category it would produce.

Without --owner only the built-in keyword table is consulted. With --owner the
owner's rules are tried first, as they are when the SMS is imported.`,
		Example: `  spendwise parse "Rs. 1,234 debited to A/c XX1234 on 05-07-2024 at 10:15 AM for Zomato Order"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			parser := smsparser.New(logger, smsparser.WithLocation(loc))

			var rules api.RuleLister
			if ownerID > 0 {
				a, err := openApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()
				rules = a.Store
			}
			resolver := categorizer.NewResolver(rules, nil, logger)

			txn, err := parser.Parse(text)
			if err != nil {
				return err
			}
			txn.Category = resolver.Resolve(cmd.Context(), ownerID, text, txn.Merchant)

			printCandidate(cmd.OutOrStdout(), txn)
			return nil
		},
	}
	cmd.Flags().Int64Var(&ownerID, "owner", 0, "owner whose rules are tried first")
	return cmd
}

func printCandidate(w io.Writer, txn api.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", headerStyle.Render("Amount"), money(txn.Amount, txn.Currency))
	fmt.Fprintf(tw, "%s\t%s\n", headerStyle.Render("Merchant"), txn.Merchant)
	fmt.Fprintf(tw, "%s\t%s\n", headerStyle.Render("Category"), txn.Category)
	fmt.Fprintf(tw, "%s\t%s\n", headerStyle.Render("Time"), txn.TransactionTime.Format("2006-01-02 15:04"))
	tw.Flush()
}
