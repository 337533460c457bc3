// Package postgres provides a PostgreSQL store for owners, rules and transactions.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/spendwise/pkg/api"
)

//go:embed 001_init.sql
var migrationSQL string

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Config holds the PostgreSQL connection configuration.
type Config struct {
	// DSN, when set, is used instead of the individual connection fields.
	DSN string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
	// ConnectAttempts is how many times the initial ping is tried.
	ConnectAttempts uint
	// ConnectDelay is the pause between ping attempts.
	ConnectDelay time.Duration
}

// Store persists data in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects, verifies the connection and applies migrations.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}
	if cfg.ConnectAttempts == 0 {
		cfg.ConnectAttempts = 5
	}
	if cfg.ConnectDelay == 0 {
		cfg.ConnectDelay = 2 * time.Second
	}

	connStr := cfg.DSN
	if connStr == "" {
		connStr = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
		)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database not ready, retrying", "attempt", n+1, "error", err)
		}),
		retry.Attempts(cfg.ConnectAttempts),
		retry.Delay(cfg.ConnectDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"port", poolConfig.ConnConfig.Port,
		"database", poolConfig.ConnConfig.Database,
	)

	s := &Store{pool: pool, logger: logger}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	s.logger.Info("running database migrations")

	if _, err := s.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}

	s.logger.Info("migrations completed successfully")
	return nil
}

// CreateOwner inserts an owner. Emails are unique ignoring case.
func (s *Store) CreateOwner(ctx context.Context, email string) (*api.Owner, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email", api.ErrMissingField)
	}

	o := api.Owner{Email: email}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO owners (email) VALUES ($1) RETURNING id, created_at`,
		email,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return nil, fmt.Errorf("%w: %s", api.ErrDuplicateOwner, email)
		}
		return nil, fmt.Errorf("inserting owner: %w", err)
	}
	return &o, nil
}

// OwnerExists reports whether the owner exists.
func (s *Store) OwnerExists(ctx context.Context, ownerID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM owners WHERE id = $1)`, ownerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("querying owner: %w", err)
	}
	return exists, nil
}

// ListRules returns the owner's rules in creation order.
func (s *Store) ListRules(ctx context.Context, ownerID int64) ([]api.CategoryRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, pattern, category, created_at
		FROM category_rules
		WHERE owner_id = $1
		ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}

	rules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (api.CategoryRule, error) {
		var r api.CategoryRule
		err := row.Scan(&r.ID, &r.OwnerID, &r.Pattern, &r.Category, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning rules: %w", err)
	}
	return rules, nil
}

// CreateRule inserts a rule with a lowercased pattern.
func (s *Store) CreateRule(ctx context.Context, rule api.CategoryRule) (*api.CategoryRule, error) {
	rule.Pattern = strings.ToLower(rule.Pattern)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO category_rules (owner_id, pattern, category)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, rule.OwnerID, rule.Pattern, rule.Category).Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		switch pgCode(err) {
		case codeUniqueViolation:
			return nil, fmt.Errorf("%w: %s", api.ErrDuplicateRule, rule.Pattern)
		case codeForeignKeyViolation:
			return nil, fmt.Errorf("%w: %d", api.ErrOwnerNotFound, rule.OwnerID)
		}
		return nil, fmt.Errorf("inserting rule: %w", err)
	}
	return &rule, nil
}

// GetRule returns a rule by id.
func (s *Store) GetRule(ctx context.Context, ruleID int64) (*api.CategoryRule, error) {
	var r api.CategoryRule
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, pattern, category, created_at
		FROM category_rules
		WHERE id = $1
	`, ruleID).Scan(&r.ID, &r.OwnerID, &r.Pattern, &r.Category, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", api.ErrRuleNotFound, ruleID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying rule: %w", err)
	}
	return &r, nil
}

// DeleteRule removes a rule by id.
func (s *Store) DeleteRule(ctx context.Context, ruleID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM category_rules WHERE id = $1`, ruleID)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", api.ErrRuleNotFound, ruleID)
	}
	return nil
}

// RuleExists reports whether the owner has the pattern, ignoring case.
func (s *Store) RuleExists(ctx context.Context, ownerID int64, pattern string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM category_rules WHERE owner_id = $1 AND LOWER(pattern) = LOWER($2)
		)
	`, ownerID, pattern).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("querying rule: %w", err)
	}
	return exists, nil
}

// Save inserts a transaction.
func (s *Store) Save(ctx context.Context, txn api.Transaction) (*api.Transaction, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO transactions (
			owner_id, origin, raw_text, amount, currency, merchant, category, transaction_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		txn.OwnerID,
		string(txn.Origin),
		txn.RawText,
		toNumeric(txn.Amount),
		txn.Currency,
		txn.Merchant,
		txn.Category,
		txn.TransactionTime,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return nil, fmt.Errorf("%w: %d", api.ErrOwnerNotFound, txn.OwnerID)
		}
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}
	return &txn, nil
}

// ListTransactions returns the owner's transactions in the period, newest first.
func (s *Store) ListTransactions(ctx context.Context, ownerID int64, period api.Period) ([]api.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, origin, raw_text, amount, currency, merchant, category, transaction_time, created_at
		FROM transactions
		WHERE owner_id = $1
		  AND ($2::timestamptz IS NULL OR transaction_time >= $2)
		  AND ($3::timestamptz IS NULL OR transaction_time < $3)
		ORDER BY transaction_time DESC, id DESC
	`, ownerID, bound(period.From), bound(period.To))
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}

	txns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (api.Transaction, error) {
		var (
			t      api.Transaction
			origin string
			amount pgtype.Numeric
		)
		err := row.Scan(&t.ID, &t.OwnerID, &origin, &t.RawText, &amount, &t.Currency,
			&t.Merchant, &t.Category, &t.TransactionTime, &t.CreatedAt)
		if err != nil {
			return t, err
		}
		t.Origin = api.Origin(origin)
		t.Amount = fromNumeric(amount)
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning transactions: %w", err)
	}
	return txns, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("closed PostgreSQL connection pool")
	}
	return nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func bound(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var _ api.Store = (*Store)(nil)
