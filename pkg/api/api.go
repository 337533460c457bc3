// Package api defines the core interfaces and data structures for spendwise.
package api

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Origin tags where a transaction came from.
type Origin string

const (
	// OriginManual marks transactions entered by hand.
	OriginManual Origin = "MANUAL"
	// OriginSMS marks transactions parsed from bank SMS text.
	OriginSMS Origin = "SMS"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	return o == OriginManual || o == OriginSMS
}

const (
	// DefaultCurrency is used whenever a transaction does not name one.
	DefaultCurrency = "INR"
	// Uncategorized is the category assigned when no rule matches.
	Uncategorized = "Uncategorized"
	// MaxBatchSize is the largest number of messages accepted in one batch.
	MaxBatchSize = 100
	// MaxPatternLength and MaxCategoryLength bound user rule fields.
	MaxPatternLength  = 100
	MaxCategoryLength = 50
	// MaxRawTextLength bounds TransactionRequest.RawText.
	MaxRawTextLength = 512
	// MaxSMSLength bounds a single batch message.
	MaxSMSLength = 1000
)

// Transaction times must fall in [MinTransactionTime, MaxTransactionTime).
// The sqlite store keeps times as Unix nanoseconds, which cannot represent years
// outside roughly 1678 to 2262.
var (
	MinTransactionTime = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxTransactionTime = time.Date(2200, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Owner is an account that owns rules and transactions.
type Owner struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is a classified money movement. Before it is saved it serves as
// the in-memory candidate and has a zero ID.
type Transaction struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Origin  Origin `json:"origin"`
	RawText string `json:"raw_text,omitempty"`
	// Amount is negative for outflows and positive for inflows.
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Merchant        string          `json:"merchant,omitempty"`
	Category        string          `json:"category"`
	TransactionTime time.Time       `json:"transaction_time"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsSpending reports whether the transaction is an outflow.
func (t Transaction) IsSpending() bool {
	return t.Amount.IsNegative()
}

// TransactionRequest is the caller-supplied input for classifying one transaction.
type TransactionRequest struct {
	Origin  Origin `json:"origin"`
	RawText string `json:"raw_text"`
	// Amount defaults to zero for manual entries when nil.
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty"`
	Merchant string           `json:"merchant,omitempty"`
	// Category is accepted for manual entries but always replaced by the resolver.
	Category        string    `json:"category,omitempty"`
	TransactionTime time.Time `json:"transaction_time"`
}

// Validate checks the request shape. Origin-specific requirements are
// enforced during classification.
func (r TransactionRequest) Validate() error {
	if !r.Origin.Valid() {
		return fmt.Errorf("%w: unknown origin %q", ErrInvalidRequest, r.Origin)
	}
	if utf8.RuneCountInString(r.RawText) > MaxRawTextLength {
		return fmt.Errorf("%w: raw text longer than %d characters", ErrInvalidRequest, MaxRawTextLength)
	}
	if !r.TransactionTime.IsZero() &&
		(r.TransactionTime.Before(MinTransactionTime) || !r.TransactionTime.Before(MaxTransactionTime)) {
		return fmt.Errorf("%w: transaction time %s outside %d-%d",
			ErrInvalidRequest, r.TransactionTime.Format(time.RFC3339), MinTransactionTime.Year(), MaxTransactionTime.Year()-1)
	}
	return nil
}

// SMSMessage is one message of an ingestion batch.
type SMSMessage struct {
	Text string `json:"text"`
	// Timestamp is informational; the date parsed from Text is authoritative.
	Timestamp string `json:"timestamp,omitempty"`
	// Ref identifies the message in its source (line number, mail id).
	Ref string `json:"-"`
}

// Validate checks a single batch message.
func (m SMSMessage) Validate() error {
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("%w: SMS text cannot be empty", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(m.Text) > MaxSMSLength {
		return fmt.Errorf("%w: SMS text cannot exceed %d characters", ErrInvalidRequest, MaxSMSLength)
	}
	return nil
}

// ItemResult is the outcome of one batch message.
type ItemResult struct {
	Index       int          `json:"index"`
	Success     bool         `json:"success"`
	Message     string       `json:"message,omitempty"`
	Error       string       `json:"error,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// BatchResult summarizes a processed batch. Results are in input order.
type BatchResult struct {
	TotalProcessed int          `json:"total_processed"`
	SuccessCount   int          `json:"successful_transactions"`
	FailureCount   int          `json:"failed_transactions"`
	Results        []ItemResult `json:"results"`
}

// CategoryRule maps a substring pattern to a category for one owner.
type CategoryRule struct {
	ID      int64 `json:"id"`
	OwnerID int64 `json:"owner_id"`
	// Pattern is stored lowercase.
	Pattern   string    `json:"pattern"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Period is a half-open time range [From, To). A zero bound is open.
type Period struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !t.Before(p.To) {
		return false
	}
	return true
}

// RuleLister returns an owner's rules in storage order.
type RuleLister interface {
	ListRules(ctx context.Context, ownerID int64) ([]CategoryRule, error)
}

// TransactionSaver persists a classified transaction and returns it with its ID assigned.
type TransactionSaver interface {
	Save(ctx context.Context, txn Transaction) (*Transaction, error)
}

// TransactionLister returns an owner's transactions within a period, newest first.
type TransactionLister interface {
	ListTransactions(ctx context.Context, ownerID int64, period Period) ([]Transaction, error)
}

// OwnerStore manages accounts.
type OwnerStore interface {
	OwnerExists(ctx context.Context, ownerID int64) (bool, error)
	CreateOwner(ctx context.Context, email string) (*Owner, error)
}

// RuleStore manages category rules.
type RuleStore interface {
	RuleLister
	// CreateRule returns ErrDuplicateRule when the owner already has the pattern.
	CreateRule(ctx context.Context, rule CategoryRule) (*CategoryRule, error)
	// GetRule returns ErrRuleNotFound when no rule has the id.
	GetRule(ctx context.Context, ruleID int64) (*CategoryRule, error)
	DeleteRule(ctx context.Context, ruleID int64) error
	RuleExists(ctx context.Context, ownerID int64, pattern string) (bool, error)
}

// TransactionStore persists and queries transactions.
type TransactionStore interface {
	TransactionSaver
	TransactionLister
}

// Store is the full persistence boundary used by the application.
type Store interface {
	OwnerStore
	RuleStore
	TransactionStore
	Close() error
}
