// Package json writes transactions as an indented JSON array.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/writer"
)

// Config holds configuration for the JSON writer.
type Config struct {
	// FilePath is the output file. Rows already in the file are kept and the
	// new rows appended after them.
	FilePath string
	// Output, when set, receives the JSON instead of FilePath.
	Output io.Writer
}

// Writer writes transactions to JSON.
type Writer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a JSON writer.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Output == nil && cfg.FilePath == "" {
		return nil, fmt.Errorf("%w: json file path", api.ErrMissingField)
	}
	return &Writer{cfg: cfg, logger: logger}, nil
}

// Write writes all transactions.
func (w *Writer) Write(_ context.Context, txns []api.Transaction) error {
	rows := writer.Rows(txns)

	if w.cfg.Output != nil {
		return encode(w.cfg.Output, rows)
	}

	existing, err := w.loadExisting()
	if err != nil {
		return err
	}
	all := append(existing, rows...)

	// Write the whole array to a sibling file and swap it in.
	tmp, err := os.CreateTemp(filepath.Dir(w.cfg.FilePath), ".spendwise-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, all); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.cfg.FilePath); err != nil {
		return fmt.Errorf("replacing json file: %w", err)
	}

	w.logger.Info("wrote transactions to json",
		"file", w.cfg.FilePath,
		"batch_count", len(rows),
		"total_count", len(all),
	)
	return nil
}

func (w *Writer) loadExisting() ([]writer.Row, error) {
	data, err := os.ReadFile(w.cfg.FilePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading json file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var rows []writer.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding existing json file: %w", err)
	}
	return rows, nil
}

func encode(out io.Writer, rows []writer.Row) error {
	if rows == nil {
		rows = []writer.Row{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
