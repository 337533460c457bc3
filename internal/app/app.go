// Package app wires configuration, storage and the classification services
// into a running spendwise instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ArionMiles/spendwise/internal/server"
	"github.com/ArionMiles/spendwise/internal/storage"
	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/categorizer"
	"github.com/ArionMiles/spendwise/pkg/config"
	"github.com/ArionMiles/spendwise/pkg/dashboard"
	"github.com/ArionMiles/spendwise/pkg/engine"
	"github.com/ArionMiles/spendwise/pkg/importer"
	"github.com/ArionMiles/spendwise/pkg/rules"
	"github.com/ArionMiles/spendwise/pkg/smsparser"
)

// App holds the services built from one configuration. Close releases the store.
type App struct {
	Config     config.Config
	Store      api.Store
	Parser     *smsparser.Parser
	Resolver   *categorizer.Resolver
	Classifier *engine.Classifier
	Batch      *engine.BatchProcessor
	Rules      *rules.Service
	Dashboard  *dashboard.Service
	Importer   *importer.Importer

	logger *slog.Logger
}

// New opens the configured store and builds every service on top of it.
func New(ctx context.Context, cfg config.Config, registry *storage.Registry, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = storage.Default()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := registry.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	parser := smsparser.New(logger.With("component", "parser"), smsparser.WithLocation(loc))
	resolver := categorizer.NewResolver(store, categorizer.DefaultStaticTable(), logger.With("component", "resolver"))
	classifier := engine.NewClassifier(store, parser, resolver, store, logger.With("component", "classifier"))

	return &App{
		Config:     cfg,
		Store:      store,
		Parser:     parser,
		Resolver:   resolver,
		Classifier: classifier,
		Batch:      engine.NewBatchProcessor(classifier, logger.With("component", "batch")),
		Rules:      rules.New(store, logger.With("component", "rules")),
		Dashboard:  dashboard.New(store, loc),
		Importer:   importer.New(logger.With("component", "importer")),
		logger:     logger,
	}, nil
}

// Server builds the HTTP API over the app's services.
func (a *App) Server() (*server.Server, error) {
	loc, err := a.Config.Location()
	if err != nil {
		return nil, err
	}
	return server.New(server.Deps{
		Classifier:   a.Classifier,
		Batch:        a.Batch,
		Rules:        a.Rules,
		Dashboard:    a.Dashboard,
		Transactions: a.Store,
		Importer:     a.Importer,
	}, server.Config{
		JWTSecret:  []byte(a.Config.JWTSecret),
		CORSOrigin: a.Config.CORSOrigin,
		WriteLimit: a.Config.WriteRateLimit,
		Location:   loc,
	}, a.logger.With("component", "http"))
}

// Serve runs the HTTP API until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	if a.Config.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}

	srv, err := a.Server()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	a.logger.Info("starting spendwise",
		"store", a.Config.Store,
		"addr", a.Config.HTTPAddr,
		"sms_timezone", a.Config.SMSTimezone,
	)
	if err := srv.Run(ctx, a.Config.HTTPAddr); err != nil {
		return err
	}
	a.logger.Info("spendwise stopped")
	return nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
