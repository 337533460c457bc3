package main

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/dashboard"
)

func statsCmd() *cobra.Command {
	var (
		ownerID int64
		year    int
		month   int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show spending statistics",
	}
	cmd.PersistentFlags().Int64Var(&ownerID, "owner", 0, "owner to report on")
	cmd.PersistentFlags().IntVar(&year, "year", 0, "calendar year (default current)")
	_ = cmd.MarkPersistentFlagRequired("owner")

	monthly := &cobra.Command{
		Use:   "monthly",
		Short: "Statistics for one calendar month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			now, err := localNow()
			if err != nil {
				return err
			}
			y, m := cmp.Or(year, now.Year()), cmp.Or(month, int(now.Month()))

			st, err := a.Dashboard.Monthly(cmd.Context(), ownerID, y, m)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), fmt.Sprintf("%s %d", time.Month(m), y), st)
			return nil
		},
	}
	monthly.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	cmd.AddCommand(monthly)

	cmd.AddCommand(&cobra.Command{
		Use:   "yearly",
		Short: "Statistics for one calendar year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			now, err := localNow()
			if err != nil {
				return err
			}
			y := cmp.Or(year, now.Year())

			st, err := a.Dashboard.Yearly(cmd.Context(), ownerID, y)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), fmt.Sprint(y), st)
			return nil
		},
	})

	return cmd
}

func localNow() (time.Time, error) {
	loc, err := cfg.Location()
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().In(loc), nil
}

func printStats(w io.Writer, title string, st dashboard.Stats) {
	cur := api.DefaultCurrency

	fmt.Fprintln(w, titleStyle.Render("Spending for "+title))
	fmt.Fprintf(w, "Spent        %s\n", errorStyle.Render(money(st.TotalSpending, cur)))
	fmt.Fprintf(w, "Received     %s\n", successStyle.Render(money(st.TotalIncome, cur)))
	fmt.Fprintf(w, "Net          %s\n", money(st.NetAmount, cur))
	fmt.Fprintf(w, "Transactions %d (average %s)\n", st.TotalTransactions, money(st.AverageTransactionAmount, cur))
	if st.TopSpendingCategory == dashboard.NoSpending {
		fmt.Fprintf(w, "Top category %s\n", subtleStyle.Render(st.TopSpendingCategory))
	} else {
		fmt.Fprintf(w, "Top category %s (%s)\n", st.TopSpendingCategory, money(st.TopSpendingAmount, cur))
	}

	if len(st.SpendingByCategory) > 0 {
		fmt.Fprintln(w)
		tw := newTable(w, "CATEGORY", "SPENT")
		for _, c := range sortedByAmount(st.SpendingByCategory) {
			fmt.Fprintf(tw, "%s\t%s\n", c, money(st.SpendingByCategory[c], cur))
		}
		tw.Flush()
	}

	if len(st.MonthlyTrend) > 1 {
		fmt.Fprintln(w)
		tw := newTable(w, "MONTH", "NET")
		for _, m := range slices.Sorted(maps.Keys(st.MonthlyTrend)) {
			fmt.Fprintf(tw, "%s\t%s\n", m, money(st.MonthlyTrend[m], cur))
		}
		tw.Flush()
	}

	if len(st.RecentTransactions) > 0 {
		fmt.Fprintln(w)
		tw := newTable(w, "DATE", "MERCHANT", "CATEGORY", "AMOUNT")
		for _, r := range st.RecentTransactions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				r.TransactionTime.Format("2006-01-02"), r.Merchant, r.Category, money(r.Amount, r.Currency))
		}
		tw.Flush()
	}
}

// sortedByAmount orders categories by spend, largest first, then by name.
func sortedByAmount(m map[string]decimal.Decimal) []string {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, func(a, b string) int {
		if c := m[b].Cmp(m[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return keys
}
