// Package smsparser extracts transactions from Indian bank alert SMS text.
//
// Only one alert dialect is understood:
//
//	Rs. 1,234 debited to A/c XX1234 on 05-07-2024 at 10:15 AM for Zomato Order. Avl Bal Rs.500
//
// The intraday time is part of the grammar but discarded; transactions are
// dated at midnight of the parsed day.
package smsparser

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// ErrNoMatch is returned when the text is not a bank alert, e.g. an OTP or promotion.
var ErrNoMatch = api.ErrUnparseableSMS

// ErrInvalidDate is returned when the alert grammar matches but the date does not exist.
var ErrInvalidDate = errors.New("invalid transaction date")

const dateLayout = "02-01-2006"

var alertPattern = regexp.MustCompile(
	`(?i)Rs\.?\s?(\d[\d,]*(?:\.\d+)?)\s+(debited|credited)\s+(?:to|from)\s+A/c\s+\w+\s+` +
		`on\s+(\d{2}-\d{2}-\d{4})\s+at\s+\d{1,2}:\d{2}\s+(?:AM|PM)\s+for\s+(.+?)(?:\.|\s+Avl\s+Bal|$)`,
)

// Parser turns alert text into unsaved, uncategorized transactions.
type Parser struct {
	loc    *time.Location
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLocation sets the time zone used for the parsed calendar date. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// New creates a parser.
func New(logger *slog.Logger, opts ...Option) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Parser{loc: time.UTC, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts a transaction candidate from text. Non-alert text yields ErrNoMatch.
func (p *Parser) Parse(text string) (api.Transaction, error) {
	m := alertPattern.FindStringSubmatch(text)
	if m == nil {
		p.logger.Debug("text does not match alert grammar", "length", len(text))
		return api.Transaction{}, ErrNoMatch
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return api.Transaction{}, fmt.Errorf("parsing amount %q: %w", m[1], api.ErrUnparseableSMS)
	}
	if strings.EqualFold(m[2], "debited") {
		amount = amount.Neg()
	}

	day, err := time.ParseInLocation(dateLayout, m[3], p.loc)
	if err != nil || day.Before(api.MinTransactionTime) || !day.Before(api.MaxTransactionTime) {
		return api.Transaction{}, fmt.Errorf("%w %q: %w", ErrInvalidDate, m[3], api.ErrUnparseableSMS)
	}

	return api.Transaction{
		Origin:          api.OriginSMS,
		RawText:         text,
		Amount:          amount,
		Currency:        api.DefaultCurrency,
		Merchant:        strings.TrimSpace(m[4]),
		Category:        api.Uncategorized,
		TransactionTime: day,
	}, nil
}
