// Package csv writes transactions as CSV.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/writer"
)

// Config holds configuration for the CSV writer.
type Config struct {
	// FilePath is the output file. Rows are appended; the header is written
	// only when the file is new or empty.
	FilePath string
	// Output, when set, receives the CSV instead of FilePath (header always written).
	Output io.Writer
}

// Writer writes transactions to CSV.
type Writer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a CSV writer.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Output == nil && cfg.FilePath == "" {
		return nil, fmt.Errorf("%w: csv file path", api.ErrMissingField)
	}
	return &Writer{cfg: cfg, logger: logger}, nil
}

// Write writes all transactions.
func (w *Writer) Write(_ context.Context, txns []api.Transaction) error {
	if w.cfg.Output != nil {
		return marshal(w.cfg.Output, writer.Rows(txns), true)
	}

	f, err := os.OpenFile(w.cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening csv file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}

	if err := marshal(f, writer.Rows(txns), stat.Size() == 0); err != nil {
		return err
	}
	w.logger.Info("wrote transactions to csv", "file", w.cfg.FilePath, "count", len(txns))
	return f.Close()
}

func marshal(out io.Writer, rows []writer.Row, header bool) error {
	if len(rows) == 0 && !header {
		return nil
	}
	cw := gocsv.NewSafeCSVWriter(csv.NewWriter(out))

	var err error
	if header {
		err = gocsv.MarshalCSV(rows, cw)
	} else {
		err = gocsv.MarshalCSVWithoutHeaders(rows, cw)
	}
	if err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
