// Package server exposes the classification engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/dashboard"
	"github.com/ArionMiles/spendwise/pkg/importer"
)

// Classifier classifies and stores single transactions.
type Classifier interface {
	Classify(ctx context.Context, ownerID int64, req api.TransactionRequest) (*api.Transaction, error)
	Seed(ctx context.Context, ownerID int64, now time.Time) int
}

// BatchProcessor classifies SMS batches.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, ownerID int64, msgs []api.SMSMessage) (*api.BatchResult, error)
}

// RuleService manages owner category rules.
type RuleService interface {
	List(ctx context.Context, ownerID int64) ([]api.CategoryRule, error)
	Create(ctx context.Context, ownerID int64, pattern, category string) (*api.CategoryRule, error)
	Delete(ctx context.Context, ownerID, ruleID int64) error
}

// Dashboard computes spending statistics.
type Dashboard interface {
	Monthly(ctx context.Context, ownerID int64, year, month int) (dashboard.Stats, error)
	Yearly(ctx context.Context, ownerID int64, year int) (dashboard.Stats, error)
}

// Importer splits uploaded files into SMS messages.
type Importer interface {
	Import(r io.Reader, format importer.Format) ([]api.SMSMessage, error)
}

// Deps are the services behind the API.
type Deps struct {
	Classifier   Classifier
	Batch        BatchProcessor
	Rules        RuleService
	Dashboard    Dashboard
	Transactions api.TransactionLister
	Importer     Importer
}

// Config controls the HTTP layer.
type Config struct {
	// JWTSecret verifies bearer tokens.
	JWTSecret []byte
	// CORSOrigin is the allowed origin list. Defaults to "*".
	CORSOrigin string
	// WriteLimit is the number of write requests an owner may make per minute.
	// Zero disables the limit.
	WriteLimit int
	// Location is used for request timestamps without a zone and for
	// default dashboard periods. Defaults to UTC.
	Location *time.Location
	// Now overrides the clock.
	Now func() time.Time
}

// Server is the HTTP API.
type Server struct {
	app    *fiber.App
	deps   Deps
	cfg    Config
	logger *slog.Logger
}

// New builds the fiber application and registers all routes.
func New(deps Deps, cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("%w: JWT secret", api.ErrMissingField)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}

	s := &Server{deps: deps, cfg: cfg, logger: logger}
	s.app = fiber.New(fiber.Config{
		AppName:               "spendwise",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})
	s.routes()
	return s, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listening on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) routes() {
	app := s.app
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(s.logRequests)
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authed := app.Group("/api", requireOwner(s.cfg.JWTSecret))
	write := s.writeLimiter()

	authed.Get("/transactions", s.listTransactions)
	authed.Post("/transactions", write, s.createTransaction)
	authed.Post("/transactions/sms/batch", write, s.processBatch)
	authed.Post("/transactions/sample-data", write, s.createSampleData)
	authed.Post("/sms/upload/:format", write, s.uploadMessages)

	authed.Get("/rules", s.listRules)
	authed.Post("/rules", write, s.createRule)
	authed.Delete("/rules/:id", write, s.deleteRule)

	authed.Get("/dashboard/stats/monthly", s.monthlyStats)
	authed.Get("/dashboard/stats/yearly", s.yearlyStats)
}

func (s *Server) writeLimiter() fiber.Handler {
	if s.cfg.WriteLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        s.cfg.WriteLimit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, ok := c.Locals(ownerKey).(int64); ok {
				return fmt.Sprint(id)
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		},
	})
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
	)
	return err
}
