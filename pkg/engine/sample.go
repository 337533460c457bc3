package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/spendwise/pkg/api"
)

type sample struct {
	merchant, category, description string
	amount                          int64
}

// The advertised categories are overwritten by the resolver like any manual entry.
var samples = []sample{
	{"Amazon", "Shopping", "Online shopping for electronics", -1500},
	{"Uber", "Transportation", "Ride to office", -250},
	{"Zomato", "Food & Dining", "Lunch delivery", -450},
	{"Swiggy", "Food & Dining", "Dinner delivery", -320},
	{"Ola", "Transportation", "Ride home", -180},
	{"Flipkart", "Shopping", "Clothing purchase", -800},
	{"Netflix", "Entertainment", "Monthly subscription", -499},
	{"Hospital", "Healthcare", "Medical checkup", -1200},
	{"School", "Education", "Tuition fees", -5000},
	{"Salary", "Income", "Monthly salary", 50000},
}

// SampleRequests returns a fixed set of manual transactions stamped at now.
func SampleRequests(now time.Time) []api.TransactionRequest {
	reqs := make([]api.TransactionRequest, 0, len(samples))
	for _, s := range samples {
		amount := decimal.NewFromInt(s.amount)
		reqs = append(reqs, api.TransactionRequest{
			Origin:          api.OriginManual,
			RawText:         s.description,
			Amount:          &amount,
			Currency:        api.DefaultCurrency,
			Merchant:        s.merchant,
			Category:        s.category,
			TransactionTime: now,
		})
	}
	return reqs
}

// Seed classifies the sample transactions for an owner. Individual failures
// are logged and skipped; the number created is returned.
func (c *Classifier) Seed(ctx context.Context, ownerID int64, now time.Time) int {
	created := 0
	for _, req := range SampleRequests(now) {
		if _, err := c.Classify(ctx, ownerID, req); err != nil {
			c.logger.Debug("skipping sample transaction", "merchant", req.Merchant, "error", err)
			continue
		}
		created++
	}
	return created
}
