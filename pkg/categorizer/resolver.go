// Package categorizer assigns spending categories to transactions.
//
// Resolution has two tiers tried in order. An owner's own rules match by
// case-insensitive substring containment on the lowercased haystack. The
// built-in StaticTable matches whole keywords with full-string regular
// expressions on the haystack as given. The first hit wins and
// api.Uncategorized is returned when neither tier matches.
package categorizer

import (
	"context"
	"log/slog"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// Resolver picks a category for a transaction. It never fails.
type Resolver struct {
	rules  api.RuleLister
	static *StaticTable
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil static table means DefaultStaticTable.
func NewResolver(rules api.RuleLister, static *StaticTable, logger *slog.Logger) *Resolver {
	if static == nil {
		static = DefaultStaticTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{rules: rules, static: static, logger: logger}
}

// Resolve returns the category for the given owner, raw text and merchant.
// A failed rule lookup is logged and the owner tier is skipped.
func (r *Resolver) Resolve(ctx context.Context, ownerID int64, rawText, merchant string) string {
	haystack := Haystack(merchant, rawText)

	if r.rules != nil {
		rules, err := r.rules.ListRules(ctx, ownerID)
		if err != nil {
			r.logger.Warn("failed to list rules, using built-in table only",
				"owner_id", ownerID,
				"error", err,
			)
		} else if category, ok := MatchRules(haystack, rules); ok {
			return category
		}
	}

	if category, ok := r.static.Match(haystack); ok {
		return category
	}
	return api.Uncategorized
}
