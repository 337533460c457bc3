// Package writer defines the export row layout shared by the csv, json and
// sheets writers.
package writer

import (
	"context"
	"time"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// Writer exports a finite list of transactions.
type Writer interface {
	Write(ctx context.Context, txns []api.Transaction) error
}

// Row is the flat export form of a transaction.
type Row struct {
	ID       int64  `csv:"id" json:"id"`
	Time     string `csv:"transaction_time" json:"transaction_time"`
	Origin   string `csv:"origin" json:"origin"`
	Merchant string `csv:"merchant" json:"merchant"`
	Amount   string `csv:"amount" json:"amount"`
	Currency string `csv:"currency" json:"currency"`
	Category string `csv:"category" json:"category"`
	RawText  string `csv:"raw_text" json:"raw_text,omitempty"`
}

// Header is the column order of Row.
var Header = []string{"ID", "Date/Time", "Origin", "Merchant", "Amount", "Currency", "Category", "Raw Text"}

// NewRow flattens a transaction. Amounts keep their sign and exact digits.
func NewRow(t api.Transaction) Row {
	return Row{
		ID:       t.ID,
		Time:     t.TransactionTime.Format(time.RFC3339),
		Origin:   string(t.Origin),
		Merchant: t.Merchant,
		Amount:   t.Amount.String(),
		Currency: t.Currency,
		Category: t.Category,
		RawText:  t.RawText,
	}
}

// Rows flattens transactions in order.
func Rows(txns []api.Transaction) []Row {
	rows := make([]Row, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, NewRow(t))
	}
	return rows
}

// Values returns the row as spreadsheet cells in Header order.
func (r Row) Values() []any {
	return []any{r.ID, r.Time, r.Origin, r.Merchant, r.Amount, r.Currency, r.Category, r.RawText}
}
