package categorizer

import (
	"strings"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// MatchRules returns the category of the first rule whose pattern is a
// case-insensitive substring of haystack. Rules are tried in the given order.
func MatchRules(haystack string, rules []api.CategoryRule) (string, bool) {
	lower := strings.ToLower(haystack)
	for _, r := range rules {
		if strings.Contains(lower, strings.ToLower(r.Pattern)) {
			return r.Category, true
		}
	}
	return "", false
}

// Haystack joins merchant and raw text into the string matched by both tiers.
func Haystack(merchant, rawText string) string {
	return merchant + " " + rawText
}
