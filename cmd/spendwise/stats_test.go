package main

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/dashboard"
)

func TestSortedByAmount(t *testing.T) {
	got := sortedByAmount(map[string]decimal.Decimal{
		"Bills":    decimal.NewFromInt(100),
		"Food":     decimal.NewFromInt(450),
		"Commute":  decimal.NewFromInt(100),
		"Shopping": decimal.NewFromInt(1500),
	})
	assert.Equal(t, []string{"Shopping", "Food", "Bills", "Commute"}, got)
}

func TestPrintStats(t *testing.T) {
	st := dashboard.Build([]api.Transaction{
		{Amount: decimal.NewFromInt(-450), Currency: "INR", Merchant: "Zomato", Category: "Food & Dining"},
		{Amount: decimal.NewFromInt(50000), Currency: "INR", Merchant: "Salary", Category: "Income & Salary"},
	})

	var buf bytes.Buffer
	printStats(&buf, "July 2024", st)

	out := buf.String()
	assert.Contains(t, out, "Spending for July 2024")
	assert.Contains(t, out, "450.00 INR")
	assert.Contains(t, out, "50,000.00 INR")
	assert.Contains(t, out, "Food & Dining")
	assert.Contains(t, out, "Zomato")
}

func TestPrintStats_Empty(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, "2024", dashboard.Build(nil))
	assert.Contains(t, buf.String(), dashboard.NoSpending)
}
