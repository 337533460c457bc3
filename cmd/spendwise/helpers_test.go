package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"-1234.5", "INR", "-1,234.50 INR"},
		{"50000", "INR", "50,000.00 INR"},
		{"0", "", "0.00"},
		{"999.999", "USD", "1,000.00 USD"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, money(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := parsePeriod("2024-07-01", "2024-08-01", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), p.From)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), p.To)

	p, err = parsePeriod("", "", time.UTC)
	require.NoError(t, err)
	assert.True(t, p.From.IsZero())
	assert.True(t, p.To.IsZero())

	_, err = parsePeriod("July", "", time.UTC)
	require.Error(t, err)
}
