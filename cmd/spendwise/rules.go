package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	var ownerID int64

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage an owner's category rules",
		Long: `Category rules map a pattern to a category. A rule matches when the
lowercased merchant and SMS text contain the pattern. Owner rules are tried in
creation order before the built-in keyword table.`,
	}
	cmd.PersistentFlags().Int64Var(&ownerID, "owner", 0, "owner the rules belong to")
	_ = cmd.MarkPersistentFlagRequired("owner")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rules, err := a.Rules.List(cmd.Context(), ownerID)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("No rules yet."))
				return nil
			}

			tw := newTable(cmd.OutOrStdout(), "ID", "PATTERN", "CATEGORY", "CREATED")
			for _, r := range rules {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, r.Pattern, r.Category, r.CreatedAt.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "add <pattern> <category>",
		Short:   "Add a rule",
		Example: `  spendwise rules add --owner 1 "blue tokai" "Food & Dining"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rule, err := a.Rules.Create(cmd.Context(), ownerID, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
				fmt.Sprintf("✓ Rule %d: %q → %s", rule.ID, rule.Pattern, rule.Category)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a rule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Rules.Delete(cmd.Context(), ownerID, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Rule %d deleted", id)))
			return nil
		},
	})

	return cmd
}
