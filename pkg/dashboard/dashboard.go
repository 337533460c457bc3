// Package dashboard computes spending statistics over an owner's transactions.
package dashboard

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// NoSpending is reported as the top category when there are no outflows.
const NoSpending = "No spending"

const recentLimit = 5

// Stats summarizes transactions in a period. Spending figures are positive.
type Stats struct {
	TotalSpending            decimal.Decimal            `json:"total_spending"`
	TotalIncome              decimal.Decimal            `json:"total_income"`
	NetAmount                decimal.Decimal            `json:"net_amount"`
	TotalTransactions        int                        `json:"total_transactions"`
	SpendingByCategory       map[string]decimal.Decimal `json:"spending_by_category"`
	MonthlyTrend             map[string]decimal.Decimal `json:"monthly_trend"`
	RecentTransactions       []RecentTransaction        `json:"recent_transactions"`
	AverageTransactionAmount decimal.Decimal            `json:"average_transaction_amount"`
	TopSpendingCategory      string                     `json:"top_spending_category"`
	TopSpendingAmount        decimal.Decimal            `json:"top_spending_amount"`
}

// RecentTransaction is the short form of a transaction shown on the dashboard.
type RecentTransaction struct {
	ID              int64           `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Merchant        string          `json:"merchant"`
	Category        string          `json:"category"`
	TransactionTime time.Time       `json:"transaction_time"`
}

// Service loads transactions for a calendar period and summarizes them.
type Service struct {
	txns api.TransactionLister
	loc  *time.Location
}

// New creates a dashboard service. Calendar periods are computed in loc (UTC if nil).
func New(txns api.TransactionLister, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{txns: txns, loc: loc}
}

// Monthly returns statistics for one calendar month.
func (s *Service) Monthly(ctx context.Context, ownerID int64, year, month int) (Stats, error) {
	if month < 1 || month > 12 {
		return Stats{}, fmt.Errorf("%w: month %d", api.ErrInvalidRequest, month)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	return s.stats(ctx, ownerID, api.Period{From: from, To: from.AddDate(0, 1, 0)})
}

// Yearly returns statistics for one calendar year.
func (s *Service) Yearly(ctx context.Context, ownerID int64, year int) (Stats, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	return s.stats(ctx, ownerID, api.Period{From: from, To: from.AddDate(1, 0, 0)})
}

func (s *Service) stats(ctx context.Context, ownerID int64, period api.Period) (Stats, error) {
	txns, err := s.txns.ListTransactions(ctx, ownerID, period)
	if err != nil {
		return Stats{}, fmt.Errorf("listing transactions: %w", err)
	}
	// Stores may return UTC; month keys must follow the dashboard's zone.
	for i := range txns {
		txns[i].TransactionTime = txns[i].TransactionTime.In(s.loc)
	}
	return Build(txns), nil
}

// Build computes statistics for the given transactions.
func Build(txns []api.Transaction) Stats {
	st := Stats{
		TotalSpending:            decimal.Zero,
		TotalIncome:              decimal.Zero,
		NetAmount:                decimal.Zero,
		SpendingByCategory:       map[string]decimal.Decimal{},
		MonthlyTrend:             map[string]decimal.Decimal{},
		RecentTransactions:       []RecentTransaction{},
		AverageTransactionAmount: decimal.Zero,
		TopSpendingCategory:      NoSpending,
		TopSpendingAmount:        decimal.Zero,
	}
	if len(txns) == 0 {
		return st
	}

	sorted := slices.Clone(txns)
	slices.SortStableFunc(sorted, func(a, b api.Transaction) int {
		return b.TransactionTime.Compare(a.TransactionTime)
	})

	sum := decimal.Zero
	for _, t := range sorted {
		sum = sum.Add(t.Amount)
		switch {
		case t.Amount.IsNegative():
			abs := t.Amount.Abs()
			st.TotalSpending = st.TotalSpending.Add(abs)
			st.SpendingByCategory[t.Category] = st.SpendingByCategory[t.Category].Add(abs)
		case t.Amount.IsPositive():
			st.TotalIncome = st.TotalIncome.Add(t.Amount)
		}

		month := t.TransactionTime.Format("2006-01")
		st.MonthlyTrend[month] = st.MonthlyTrend[month].Add(t.Amount)
	}

	st.NetAmount = st.TotalIncome.Sub(st.TotalSpending)
	st.TotalTransactions = len(sorted)
	st.AverageTransactionAmount = sum.DivRound(decimal.NewFromInt(int64(len(sorted))), 2)

	for _, t := range sorted[:min(recentLimit, len(sorted))] {
		st.RecentTransactions = append(st.RecentTransactions, RecentTransaction{
			ID:              t.ID,
			Amount:          t.Amount,
			Currency:        t.Currency,
			Merchant:        t.Merchant,
			Category:        t.Category,
			TransactionTime: t.TransactionTime,
		})
	}

	// Ties go to the alphabetically first category.
	found := false
	for cat, amount := range st.SpendingByCategory {
		if !found ||
			amount.GreaterThan(st.TopSpendingAmount) ||
			(amount.Equal(st.TopSpendingAmount) && cat < st.TopSpendingCategory) {
			st.TopSpendingCategory = cat
			st.TopSpendingAmount = amount
			found = true
		}
	}

	return st
}
