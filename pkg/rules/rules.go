// Package rules manages owner-defined category rules.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// Store is the persistence the service needs.
type Store interface {
	api.RuleStore
	OwnerExists(ctx context.Context, ownerID int64) (bool, error)
}

// Service validates and applies rule changes.
type Service struct {
	store  Store
	logger *slog.Logger
}

// New creates a rule service.
func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// List returns the owner's rules in storage order.
func (s *Service) List(ctx context.Context, ownerID int64) ([]api.CategoryRule, error) {
	rules, err := s.store.ListRules(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	return rules, nil
}

// Create adds a rule. Patterns are unique per owner ignoring case and are
// stored lowercase.
func (s *Service) Create(ctx context.Context, ownerID int64, pattern, category string) (*api.CategoryRule, error) {
	if err := validate(pattern, category); err != nil {
		return nil, err
	}

	ok, err := s.store.OwnerExists(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("looking up owner %d: %w", ownerID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", api.ErrOwnerNotFound, ownerID)
	}

	exists, err := s.store.RuleExists(ctx, ownerID, pattern)
	if err != nil {
		return nil, fmt.Errorf("checking for duplicate rule: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w for pattern: %s", api.ErrDuplicateRule, pattern)
	}

	rule, err := s.store.CreateRule(ctx, api.CategoryRule{
		OwnerID:  ownerID,
		Pattern:  strings.ToLower(pattern),
		Category: category,
	})
	if err != nil {
		return nil, fmt.Errorf("creating rule: %w", err)
	}

	s.logger.Info("rule created", "owner_id", ownerID, "rule_id", rule.ID, "pattern", rule.Pattern)
	return rule, nil
}

// Delete removes a rule the owner owns.
func (s *Service) Delete(ctx context.Context, ownerID, ruleID int64) error {
	rule, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule.OwnerID != ownerID {
		s.logger.Warn("rejected cross-owner rule deletion", "owner_id", ownerID, "rule_id", ruleID)
		return api.ErrForbidden
	}

	if err := s.store.DeleteRule(ctx, ruleID); err != nil {
		return fmt.Errorf("deleting rule %d: %w", ruleID, err)
	}

	s.logger.Info("rule deleted", "owner_id", ownerID, "rule_id", ruleID)
	return nil
}

func validate(pattern, category string) error {
	switch {
	case strings.TrimSpace(pattern) == "":
		return fmt.Errorf("%w: pattern", api.ErrMissingField)
	case strings.TrimSpace(category) == "":
		return fmt.Errorf("%w: category", api.ErrMissingField)
	case utf8.RuneCountInString(pattern) > api.MaxPatternLength:
		return fmt.Errorf("%w: pattern longer than %d characters", api.ErrInvalidRequest, api.MaxPatternLength)
	case utf8.RuneCountInString(category) > api.MaxCategoryLength:
		return fmt.Errorf("%w: category longer than %d characters", api.ErrInvalidRequest, api.MaxCategoryLength)
	}
	return nil
}
