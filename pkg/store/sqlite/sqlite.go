// Package sqlite provides a single-file SQLite store for local use.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/spendwise/pkg/api"
)

const schema = `
CREATE TABLE IF NOT EXISTS owners (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_owners_email ON owners (LOWER(email));

CREATE TABLE IF NOT EXISTS category_rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
	pattern TEXT NOT NULL,
	category TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_category_rules_owner_pattern ON category_rules (owner_id, LOWER(pattern));

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
	origin TEXT NOT NULL CHECK (origin IN ('MANUAL', 'SMS')),
	raw_text TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL,
	currency TEXT NOT NULL DEFAULT 'INR',
	merchant TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	transaction_time INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_owner_time ON transactions (owner_id, transaction_time DESC);
`

// Store persists data in a SQLite database file. Amounts are stored as
// decimal strings and times as Unix nanoseconds.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// New opens (creating if needed) the database at path.
func New(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path", api.ErrMissingField)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	logger.Info("opened SQLite database", "path", path)
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// CreateOwner inserts an owner. Emails are unique ignoring case.
func (s *Store) CreateOwner(ctx context.Context, email string) (*api.Owner, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email", api.ErrMissingField)
	}

	o := api.Owner{Email: email, CreatedAt: s.now().UTC()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO owners (email, created_at) VALUES (?, ?)`,
		email, o.CreatedAt.UnixNano(),
	)
	if err != nil {
		if constraint(err) == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("%w: %s", api.ErrDuplicateOwner, email)
		}
		return nil, fmt.Errorf("inserting owner: %w", err)
	}
	if o.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading owner id: %w", err)
	}
	return &o, nil
}

// OwnerExists reports whether the owner exists.
func (s *Store) OwnerExists(ctx context.Context, ownerID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM owners WHERE id = ?)`, ownerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("querying owner: %w", err)
	}
	return exists, nil
}

// ListRules returns the owner's rules in creation order.
func (s *Store) ListRules(ctx context.Context, ownerID int64) ([]api.CategoryRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, pattern, category, created_at
		FROM category_rules
		WHERE owner_id = ?
		ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []api.CategoryRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

// CreateRule inserts a rule with a lowercased pattern.
func (s *Store) CreateRule(ctx context.Context, rule api.CategoryRule) (*api.CategoryRule, error) {
	rule.Pattern = strings.ToLower(rule.Pattern)
	rule.CreatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO category_rules (owner_id, pattern, category, created_at) VALUES (?, ?, ?, ?)`,
		rule.OwnerID, rule.Pattern, rule.Category, rule.CreatedAt.UnixNano(),
	)
	if err != nil {
		switch constraint(err) {
		case sqlite3.ErrConstraintUnique:
			return nil, fmt.Errorf("%w: %s", api.ErrDuplicateRule, rule.Pattern)
		case sqlite3.ErrConstraintForeignKey:
			return nil, fmt.Errorf("%w: %d", api.ErrOwnerNotFound, rule.OwnerID)
		}
		return nil, fmt.Errorf("inserting rule: %w", err)
	}
	if rule.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading rule id: %w", err)
	}
	return &rule, nil
}

// GetRule returns a rule by id.
func (s *Store) GetRule(ctx context.Context, ruleID int64) (*api.CategoryRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, pattern, category, created_at
		FROM category_rules
		WHERE id = ?
	`, ruleID)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", api.ErrRuleNotFound, ruleID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRule removes a rule by id.
func (s *Store) DeleteRule(ctx context.Context, ruleID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM category_rules WHERE id = ?`, ruleID)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", api.ErrRuleNotFound, ruleID)
	}
	return nil
}

// RuleExists reports whether the owner has the pattern, ignoring case.
func (s *Store) RuleExists(ctx context.Context, ownerID int64, pattern string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM category_rules WHERE owner_id = ? AND LOWER(pattern) = LOWER(?))`,
		ownerID, pattern,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("querying rule: %w", err)
	}
	return exists, nil
}

// Save inserts a transaction.
func (s *Store) Save(ctx context.Context, txn api.Transaction) (*api.Transaction, error) {
	txn.CreatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			owner_id, origin, raw_text, amount, currency, merchant, category, transaction_time, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.OwnerID,
		string(txn.Origin),
		txn.RawText,
		txn.Amount.String(),
		txn.Currency,
		txn.Merchant,
		txn.Category,
		txn.TransactionTime.UnixNano(),
		txn.CreatedAt.UnixNano(),
	)
	if err != nil {
		if constraint(err) == sqlite3.ErrConstraintForeignKey {
			return nil, fmt.Errorf("%w: %d", api.ErrOwnerNotFound, txn.OwnerID)
		}
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}
	if txn.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading transaction id: %w", err)
	}
	return &txn, nil
}

// ListTransactions returns the owner's transactions in the period, newest first.
func (s *Store) ListTransactions(ctx context.Context, ownerID int64, period api.Period) ([]api.Transaction, error) {
	query := `
		SELECT id, owner_id, origin, raw_text, amount, currency, merchant, category, transaction_time, created_at
		FROM transactions
		WHERE owner_id = ?`
	args := []any{ownerID}
	if !period.From.IsZero() {
		query += ` AND transaction_time >= ?`
		args = append(args, period.From.UnixNano())
	}
	if !period.To.IsZero() {
		query += ` AND transaction_time < ?`
		args = append(args, period.To.UnixNano())
	}
	query += ` ORDER BY transaction_time DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txns []api.Transaction
	for rows.Next() {
		var (
			t              api.Transaction
			origin, amount string
			when, created  int64
		)
		err := rows.Scan(&t.ID, &t.OwnerID, &origin, &t.RawText, &amount, &t.Currency,
			&t.Merchant, &t.Category, &when, &created)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing stored amount %q: %w", amount, err)
		}
		t.Origin = api.Origin(origin)
		t.TransactionTime = time.Unix(0, when).UTC()
		t.CreatedAt = time.Unix(0, created).UTC()
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return txns, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (api.CategoryRule, error) {
	var (
		r       api.CategoryRule
		created int64
	)
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Pattern, &r.Category, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning rule: %w", err)
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

func constraint(err error) sqlite3.ErrNoExtended {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode
	}
	return 0
}

var _ api.Store = (*Store)(nil)
