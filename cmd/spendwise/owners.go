package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func ownersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owners",
		Short: "Manage owners",
	}

	var sample bool
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Create an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.Store.CreateOwner(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
				fmt.Sprintf("✓ Owner %d created for %s", owner.ID, owner.Email)))

			if sample {
				n := a.Classifier.Seed(cmd.Context(), owner.ID, time.Now())
				fmt.Fprintf(cmd.OutOrStdout(), "%d sample transactions added\n", n)
			}
			return nil
		},
	}
	add.Flags().BoolVar(&sample, "sample", false, "add sample transactions")
	cmd.AddCommand(add)

	return cmd
}
