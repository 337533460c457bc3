// Package storetest holds behavior tests shared by every api.Store implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// Run exercises a store. newStore must return an empty store for every call.
func Run(t *testing.T, newStore func(t *testing.T) api.Store) {
	t.Helper()

	t.Run("owners", func(t *testing.T) { testOwners(t, newStore(t)) })
	t.Run("rules", func(t *testing.T) { testRules(t, newStore(t)) })
	t.Run("rule ownership", func(t *testing.T) { testRuleOwnership(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
}

func testOwners(t *testing.T, s api.Store) {
	ctx := context.Background()

	o, err := s.CreateOwner(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotZero(t, o.ID)
	assert.Equal(t, "alice@example.com", o.Email)

	ok, err := s.OwnerExists(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.OwnerExists(ctx, o.ID+1000)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CreateOwner(ctx, "ALICE@example.com")
	require.ErrorIs(t, err, api.ErrDuplicateOwner)

	_, err = s.CreateOwner(ctx, " ")
	require.ErrorIs(t, err, api.ErrMissingField)
}

func testRules(t *testing.T, s api.Store) {
	ctx := context.Background()
	o, err := s.CreateOwner(ctx, "rules@example.com")
	require.NoError(t, err)

	first, err := s.CreateRule(ctx, api.CategoryRule{OwnerID: o.ID, Pattern: "Zomato", Category: "Food"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "zomato", first.Pattern)

	second, err := s.CreateRule(ctx, api.CategoryRule{OwnerID: o.ID, Pattern: "uber", Category: "Commute"})
	require.NoError(t, err)

	_, err = s.CreateRule(ctx, api.CategoryRule{OwnerID: o.ID, Pattern: "ZOMATO", Category: "Other"})
	require.ErrorIs(t, err, api.ErrDuplicateRule)

	_, err = s.CreateRule(ctx, api.CategoryRule{OwnerID: o.ID + 1000, Pattern: "x", Category: "y"})
	require.ErrorIs(t, err, api.ErrOwnerNotFound)

	exists, err := s.RuleExists(ctx, o.ID, "UBER")
	require.NoError(t, err)
	assert.True(t, exists)

	rules, err := s.ListRules(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, first.ID, rules[0].ID, "rules come back in creation order")
	assert.Equal(t, second.ID, rules[1].ID)

	got, err := s.GetRule(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Commute", got.Category)
	assert.Equal(t, o.ID, got.OwnerID)

	require.NoError(t, s.DeleteRule(ctx, first.ID))
	require.ErrorIs(t, s.DeleteRule(ctx, first.ID), api.ErrRuleNotFound)

	_, err = s.GetRule(ctx, first.ID)
	require.ErrorIs(t, err, api.ErrRuleNotFound)

	rules, err = s.ListRules(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func testRuleOwnership(t *testing.T, s api.Store) {
	ctx := context.Background()
	a, err := s.CreateOwner(ctx, "a@example.com")
	require.NoError(t, err)
	b, err := s.CreateOwner(ctx, "b@example.com")
	require.NoError(t, err)

	_, err = s.CreateRule(ctx, api.CategoryRule{OwnerID: a.ID, Pattern: "netflix", Category: "Fun"})
	require.NoError(t, err)
	_, err = s.CreateRule(ctx, api.CategoryRule{OwnerID: b.ID, Pattern: "netflix", Category: "Bills"})
	require.NoError(t, err, "the same pattern may exist for different owners")

	rules, err := s.ListRules(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "Bills", rules[0].Category)
}

func testTransactions(t *testing.T, s api.Store) {
	ctx := context.Background()
	o, err := s.CreateOwner(ctx, "txns@example.com")
	require.NoError(t, err)
	other, err := s.CreateOwner(ctx, "other@example.com")
	require.NoError(t, err)

	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

	in := []api.Transaction{
		{OwnerID: o.ID, Origin: api.OriginSMS, RawText: "sms", Amount: decimal.RequireFromString("-1234.5"), Currency: "INR", Merchant: "Zomato", Category: "Food & Dining", TransactionTime: day(7, 5)},
		{OwnerID: o.ID, Origin: api.OriginManual, Amount: decimal.NewFromInt(50000), Currency: "INR", Category: "Income & Salary", TransactionTime: day(7, 1)},
		{OwnerID: o.ID, Origin: api.OriginManual, Amount: decimal.NewFromInt(-99), Currency: "USD", Category: "Misc", TransactionTime: day(8, 1)},
		{OwnerID: other.ID, Origin: api.OriginManual, Amount: decimal.NewFromInt(-1), Currency: "INR", Category: "Misc", TransactionTime: day(7, 10)},
	}
	for _, txn := range in {
		saved, err := s.Save(ctx, txn)
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
	}

	_, err = s.Save(ctx, api.Transaction{OwnerID: o.ID + 1000, Origin: api.OriginManual, Amount: decimal.Zero, Currency: "INR", Category: "x", TransactionTime: day(1, 1)})
	require.ErrorIs(t, err, api.ErrOwnerNotFound)

	all, err := s.ListTransactions(ctx, o.ID, api.Period{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].TransactionTime.Equal(day(8, 1)), "newest first")
	assert.True(t, all[2].TransactionTime.Equal(day(7, 1)))

	july, err := s.ListTransactions(ctx, o.ID, api.Period{From: day(7, 1), To: day(8, 1)})
	require.NoError(t, err)
	require.Len(t, july, 2)

	zomato := july[0]
	assert.Equal(t, api.OriginSMS, zomato.Origin)
	assert.Equal(t, "sms", zomato.RawText)
	assert.Equal(t, "Zomato", zomato.Merchant)
	assert.Equal(t, "Food & Dining", zomato.Category)
	assert.True(t, decimal.RequireFromString("-1234.5").Equal(zomato.Amount), "amount: got %s", zomato.Amount)
	assert.False(t, zomato.CreatedAt.IsZero())
}
