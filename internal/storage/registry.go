// Package storage provides a registry of store drivers selectable by name.
package storage

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/config"
	"github.com/ArionMiles/spendwise/pkg/store/memory"
	"github.com/ArionMiles/spendwise/pkg/store/postgres"
	"github.com/ArionMiles/spendwise/pkg/store/sqlite"
)

// Driver opens a store from the application configuration.
type Driver interface {
	// Name returns the value of SPENDWISE_STORE that selects this driver.
	Name() string
	// Description returns a human-readable description.
	Description() string
	// Open creates a ready-to-use store.
	Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (api.Store, error)
}

// Registry manages available store drivers.
type Registry struct {
	drivers map[string]Driver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]Driver)}
}

// Default returns a registry holding the built-in drivers.
func Default() *Registry {
	r := NewRegistry()
	for _, d := range []Driver{memoryDriver{}, sqliteDriver{}, postgresDriver{}} {
		// Built-in names are distinct.
		_ = r.Register(d)
	}
	return r
}

// Register adds a driver.
func (r *Registry) Register(d Driver) error {
	name := d.Name()
	if _, exists := r.drivers[name]; exists {
		return fmt.Errorf("store driver %q already registered", name)
	}
	r.drivers[name] = d
	return nil
}

// Get returns a driver by name.
func (r *Registry) Get(name string) (Driver, error) {
	d, exists := r.drivers[name]
	if !exists {
		return nil, fmt.Errorf("store driver %q not found", name)
	}
	return d, nil
}

// List returns the registered drivers sorted by name.
func (r *Registry) List() []Driver {
	drivers := make([]Driver, 0, len(r.drivers))
	for _, d := range r.drivers {
		drivers = append(drivers, d)
	}
	slices.SortFunc(drivers, func(a, b Driver) int { return cmp.Compare(a.Name(), b.Name()) })
	return drivers
}

// Open opens the store selected by cfg.Store.
func (r *Registry) Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (api.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d, err := r.Get(cfg.Store)
	if err != nil {
		return nil, err
	}
	s, err := d.Open(ctx, cfg, logger.With("component", "store", "driver", d.Name()))
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", d.Name(), err)
	}
	return s, nil
}

type memoryDriver struct{}

func (memoryDriver) Name() string        { return "memory" }
func (memoryDriver) Description() string { return "In-process store, lost on exit" }

func (memoryDriver) Open(context.Context, config.Config, *slog.Logger) (api.Store, error) {
	return memory.New(), nil
}

type sqliteDriver struct{}

func (sqliteDriver) Name() string        { return "sqlite" }
func (sqliteDriver) Description() string { return "Single-file SQLite database" }

func (sqliteDriver) Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (api.Store, error) {
	return sqlite.New(ctx, cfg.SQLitePath, logger)
}

type postgresDriver struct{}

func (postgresDriver) Name() string        { return "postgres" }
func (postgresDriver) Description() string { return "PostgreSQL server" }

func (postgresDriver) Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (api.Store, error) {
	pg := cfg.Postgres
	return postgres.New(ctx, postgres.Config{
		DSN:             pg.DSN,
		Host:            pg.Host,
		Port:            pg.Port,
		Database:        pg.Database,
		User:            pg.User,
		Password:        pg.Password,
		SSLMode:         pg.SSLMode,
		MaxPoolSize:     pg.MaxPoolSize,
		ConnectAttempts: pg.ConnectAttempts,
		ConnectDelay:    pg.ConnectDelay,
	}, logger)
}
