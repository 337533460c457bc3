// Package engine runs transaction classification: parse or build a candidate,
// resolve its category and hand it to storage.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// Parser turns SMS text into a transaction candidate.
type Parser interface {
	Parse(text string) (api.Transaction, error)
}

// CategoryResolver picks the category for a candidate.
type CategoryResolver interface {
	Resolve(ctx context.Context, ownerID int64, rawText, merchant string) string
}

// OwnerChecker reports whether an owner exists.
type OwnerChecker interface {
	OwnerExists(ctx context.Context, ownerID int64) (bool, error)
}

// Classifier classifies single transactions.
type Classifier struct {
	owners   OwnerChecker
	parser   Parser
	resolver CategoryResolver
	saver    api.TransactionSaver
	logger   *slog.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(owners OwnerChecker, parser Parser, resolver CategoryResolver, saver api.TransactionSaver, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		owners:   owners,
		parser:   parser,
		resolver: resolver,
		saver:    saver,
		logger:   logger,
	}
}

// Classify builds a candidate from req, assigns its category and saves it.
// The category in req is never persisted; the resolver's answer always wins.
func (c *Classifier) Classify(ctx context.Context, ownerID int64, req api.TransactionRequest) (*api.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := c.checkOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	return c.classify(ctx, ownerID, req)
}

func (c *Classifier) checkOwner(ctx context.Context, ownerID int64) error {
	ok, err := c.owners.OwnerExists(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("looking up owner %d: %w", ownerID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", api.ErrOwnerNotFound, ownerID)
	}
	return nil
}

func (c *Classifier) classify(ctx context.Context, ownerID int64, req api.TransactionRequest) (*api.Transaction, error) {
	var candidate api.Transaction
	switch req.Origin {
	case api.OriginSMS:
		parsed, err := c.parser.Parse(req.RawText)
		if err != nil {
			c.logger.Debug("sms not parsed", "owner_id", ownerID, "error", err)
			return nil, err
		}
		candidate = parsed

	case api.OriginManual:
		if req.TransactionTime.IsZero() {
			return nil, fmt.Errorf("%w: transaction_time", api.ErrMissingField)
		}
		amount := decimal.Zero
		if req.Amount != nil {
			amount = *req.Amount
		}
		currency := req.Currency
		if currency == "" {
			currency = api.DefaultCurrency
		}
		candidate = api.Transaction{
			Origin:          api.OriginManual,
			RawText:         req.RawText,
			Amount:          amount,
			Currency:        currency,
			Merchant:        req.Merchant,
			Category:        req.Category,
			TransactionTime: req.TransactionTime,
		}

	default:
		return nil, fmt.Errorf("%w: unknown origin %q", api.ErrInvalidRequest, req.Origin)
	}

	candidate.OwnerID = ownerID
	candidate.Category = c.resolver.Resolve(ctx, ownerID, candidate.RawText, candidate.Merchant)

	// Storage errors are returned as-is.
	saved, err := c.saver.Save(ctx, candidate)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("transaction classified",
		"owner_id", ownerID,
		"id", saved.ID,
		"origin", saved.Origin,
		"category", saved.Category,
	)
	return saved, nil
}
