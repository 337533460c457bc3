package categorizer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/spendwise/pkg/api"
)

type ruleListerFunc func(ctx context.Context, ownerID int64) ([]api.CategoryRule, error)

func (f ruleListerFunc) ListRules(ctx context.Context, ownerID int64) ([]api.CategoryRule, error) {
	return f(ctx, ownerID)
}

func staticRules(rules ...api.CategoryRule) api.RuleLister {
	return ruleListerFunc(func(context.Context, int64) ([]api.CategoryRule, error) {
		return rules, nil
	})
}

func TestStaticTable_Match(t *testing.T) {
	tests := []struct {
		haystack string
		want     string
	}{
		{"Zomato order", "Food & Dining"},
		{"PAID TO ZOMATO", "Food & Dining"},
		{"uber then zomato", "Food & Dining"},
		{"gas refill", "Travel & Transportation"},
		{"phone recharge", "Utilities & Bills"},
		{"amazon prime renewal", "Shopping & Retail"},
		{"Netflix subscription", "Entertainment & Streaming"},
		{"Apollo pharmacy", "Healthcare & Medical"},
		{"monthly salary", "Income & Salary"},
		{"home loan emi", "Banking & Finance"},
		{"LIC insurance", "Insurance & Investment"},
		{"gym membership", "Personal Care & Beauty"},
		{"plumber visit", "Home & Living"},
		{"new laptop", "Technology & Electronics"},
		{"ngo support", "Charity & Donations"},
		{"electricity board", "Utilities & Bills"},
	}

	table := DefaultStaticTable()
	for _, tc := range tests {
		t.Run(tc.haystack, func(t *testing.T) {
			got, ok := table.Match(tc.haystack)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStaticTable_WholeWordsOnly(t *testing.T) {
	table := DefaultStaticTable()

	for _, haystack := range []string{"SwiggyInstamart", "zomatopay", "", "xyz 123"} {
		_, ok := table.Match(haystack)
		assert.False(t, ok, "haystack %q", haystack)
	}
}

func TestStaticTable_KeywordOnLaterLineDoesNotMatch(t *testing.T) {
	table := DefaultStaticTable()

	_, ok := table.Match("paid at\nStarbucks")
	assert.False(t, ok)
}

func TestStaticTable_LineBreaks(t *testing.T) {
	table := DefaultStaticTable()

	tests := []struct {
		name  string
		text  string
		match bool
	}{
		{name: "space", text: "paid Zomato", match: true},
		{name: "carriage return", text: "paid\rZomato"},
		{name: "next line", text: "paid\u0085Zomato"},
		{name: "line separator", text: "paid\u2028Zomato"},
		{name: "paragraph separator", text: "paid\u2029Zomato"},
		{name: "tab", text: "paid\tZomato", match: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := table.Match(tt.text)
			assert.Equal(t, tt.match, ok)
		})
	}
}

func TestStaticTable_Categories(t *testing.T) {
	cats := DefaultStaticTable().Categories()

	require.Len(t, cats, 14)
	assert.Equal(t, "Food & Dining", cats[0])
	assert.Equal(t, "Travel & Transportation", cats[1])
	assert.Equal(t, "Charity & Donations", cats[len(cats)-1])
}

func TestParseStaticTable_Errors(t *testing.T) {
	_, err := ParseStaticTable([]byte("categories: [unterminated"))
	require.Error(t, err)

	_, err = ParseStaticTable([]byte("categories:\n  - keywords: [a]\n"))
	require.Error(t, err)
}

func TestParseStaticTable_Custom(t *testing.T) {
	table, err := ParseStaticTable([]byte(`
categories:
  - name: Pets
    keywords: [vet, "c++"]
`))
	require.NoError(t, err)

	got, ok := table.Match("paid the VET")
	require.True(t, ok)
	assert.Equal(t, "Pets", got)
}

func TestMatchRules(t *testing.T) {
	rules := []api.CategoryRule{
		{Pattern: "uber", Category: "Commute"},
		{Pattern: "uber eats", Category: "Takeout"},
		{Pattern: "MATO", Category: "Treats"},
	}

	tests := []struct {
		haystack string
		want     string
		ok       bool
	}{
		{"UBER EATS order", "Commute", true},
		{"Zomato", "Treats", true},
		{"rent", "", false},
	}
	for _, tc := range tests {
		got, ok := MatchRules(tc.haystack, rules)
		assert.Equal(t, tc.ok, ok, tc.haystack)
		assert.Equal(t, tc.want, got, tc.haystack)
	}
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		rules    api.RuleLister
		rawText  string
		merchant string
		want     string
	}{
		{
			name:     "owner rule beats built-in table",
			rules:    staticRules(api.CategoryRule{Pattern: "zomato", Category: "Treats"}),
			rawText:  "Rs. 10 debited",
			merchant: "Zomato",
			want:     "Treats",
		},
		{
			name:    "owner rule matches raw text",
			rules:   staticRules(api.CategoryRule{Pattern: "acme corp", Category: "Work"}),
			rawText: "Payment to ACME CORP ltd",
			want:    "Work",
		},
		{
			name:     "falls back to built-in table",
			rules:    staticRules(api.CategoryRule{Pattern: "acme", Category: "Work"}),
			merchant: "Uber",
			want:     "Travel & Transportation",
		},
		{
			name:     "no rules and no keyword",
			rules:    staticRules(),
			merchant: "Unknown Vendor",
			rawText:  "ref 42",
			want:     api.Uncategorized,
		},
		{
			name: "rule lookup failure skips owner tier",
			rules: ruleListerFunc(func(context.Context, int64) ([]api.CategoryRule, error) {
				return nil, errors.New("connection refused")
			}),
			merchant: "Swiggy",
			want:     "Food & Dining",
		},
		{
			name:     "nil rule lister",
			merchant: "Spotify",
			want:     "Entertainment & Streaming",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(tc.rules, nil, nil)
			assert.Equal(t, tc.want, r.Resolve(ctx, 1, tc.rawText, tc.merchant))
		})
	}
}

func TestResolver_PassesOwner(t *testing.T) {
	var gotOwner int64
	r := NewResolver(ruleListerFunc(func(_ context.Context, ownerID int64) ([]api.CategoryRule, error) {
		gotOwner = ownerID
		return nil, nil
	}), nil, nil)

	r.Resolve(context.Background(), 42, "", "")
	assert.Equal(t, int64(42), gotOwner)
}

func TestResolver_Idempotent(t *testing.T) {
	r := NewResolver(staticRules(api.CategoryRule{Pattern: "coffee", Category: "Caffeine"}), nil, nil)
	ctx := context.Background()

	first := r.Resolve(ctx, 1, "Blue Tokai coffee", "")
	second := r.Resolve(ctx, 1, "Blue Tokai coffee", "")
	assert.Equal(t, "Caffeine", first)
	assert.Equal(t, first, second)
}

func TestResolver_ConcurrentUse(t *testing.T) {
	r := NewResolver(staticRules(), nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "Food & Dining", r.Resolve(ctx, 1, "", "Dominos"))
		}()
	}
	wg.Wait()
}
