// Package memory provides an in-process store. Data is lost when the process exits.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// Store keeps owners, rules and transactions in memory. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	owners map[int64]api.Owner
	rules  []api.CategoryRule
	txns   []api.Transaction

	lastOwnerID int64
	lastRuleID  int64
	lastTxnID   int64

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		owners: make(map[int64]api.Owner),
		now:    time.Now,
	}
}

// CreateOwner adds an owner with a unique email.
func (s *Store) CreateOwner(_ context.Context, email string) (*api.Owner, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email", api.ErrMissingField)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.owners {
		if strings.EqualFold(o.Email, email) {
			return nil, fmt.Errorf("%w: %s", api.ErrDuplicateOwner, email)
		}
	}

	s.lastOwnerID++
	o := api.Owner{ID: s.lastOwnerID, Email: email, CreatedAt: s.now()}
	s.owners[o.ID] = o
	return &o, nil
}

// OwnerExists reports whether the owner exists.
func (s *Store) OwnerExists(_ context.Context, ownerID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.owners[ownerID]
	return ok, nil
}

// ListRules returns the owner's rules in creation order.
func (s *Store) ListRules(_ context.Context, ownerID int64) ([]api.CategoryRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []api.CategoryRule
	for _, r := range s.rules {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

// CreateRule stores a rule. The pattern is lowercased.
func (s *Store) CreateRule(_ context.Context, rule api.CategoryRule) (*api.CategoryRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owners[rule.OwnerID]; !ok {
		return nil, fmt.Errorf("%w: %d", api.ErrOwnerNotFound, rule.OwnerID)
	}

	rule.Pattern = strings.ToLower(rule.Pattern)
	if s.ruleExistsLocked(rule.OwnerID, rule.Pattern) {
		return nil, fmt.Errorf("%w: %s", api.ErrDuplicateRule, rule.Pattern)
	}

	s.lastRuleID++
	rule.ID = s.lastRuleID
	rule.CreatedAt = s.now()
	s.rules = append(s.rules, rule)
	return &rule, nil
}

// GetRule returns a rule by id.
func (s *Store) GetRule(_ context.Context, ruleID int64) (*api.CategoryRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rules {
		if r.ID == ruleID {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", api.ErrRuleNotFound, ruleID)
}

// DeleteRule removes a rule by id.
func (s *Store) DeleteRule(_ context.Context, ruleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.rules, func(r api.CategoryRule) bool { return r.ID == ruleID })
	if i < 0 {
		return fmt.Errorf("%w: %d", api.ErrRuleNotFound, ruleID)
	}
	s.rules = slices.Delete(s.rules, i, i+1)
	return nil
}

// RuleExists reports whether the owner has a rule with the pattern, ignoring case.
func (s *Store) RuleExists(_ context.Context, ownerID int64, pattern string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ruleExistsLocked(ownerID, pattern), nil
}

func (s *Store) ruleExistsLocked(ownerID int64, pattern string) bool {
	for _, r := range s.rules {
		if r.OwnerID == ownerID && strings.EqualFold(r.Pattern, pattern) {
			return true
		}
	}
	return false
}

// Save appends a transaction and assigns its id.
func (s *Store) Save(_ context.Context, txn api.Transaction) (*api.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owners[txn.OwnerID]; !ok {
		return nil, fmt.Errorf("%w: %d", api.ErrOwnerNotFound, txn.OwnerID)
	}

	s.lastTxnID++
	txn.ID = s.lastTxnID
	txn.CreatedAt = s.now()
	s.txns = append(s.txns, txn)
	return &txn, nil
}

// ListTransactions returns the owner's transactions in the period, newest first.
func (s *Store) ListTransactions(_ context.Context, ownerID int64, period api.Period) ([]api.Transaction, error) {
	s.mu.RLock()
	var out []api.Transaction
	for _, t := range s.txns {
		if t.OwnerID == ownerID && period.Contains(t.TransactionTime) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b api.Transaction) int {
		if c := b.TransactionTime.Compare(a.TransactionTime); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

var _ api.Store = (*Store)(nil)
