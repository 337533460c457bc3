// Package sheets appends transactions to a Google Sheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/writer"
)

// Scopes are the OAuth scopes needed by the writer.
var Scopes = []string{sheets.SpreadsheetsScope}

// Defaults for Config.
const (
	DefaultBatchSize  = 500
	DefaultRetryDelay = 60 * time.Second
)

// Config holds configuration for the Sheets writer.
type Config struct {
	// SheetTitle is the title for a new spreadsheet (if SheetID is empty or unreadable).
	SheetTitle string
	// SheetID is the ID of an existing spreadsheet to use.
	SheetID string
	// SheetName is the name of the sheet within the spreadsheet.
	SheetName string
	// BatchSize is the number of rows sent per append call.
	BatchSize int
	// RetryDelay is the wait after a rate-limited append.
	RetryDelay time.Duration
}

// Writer writes transactions to a Google Sheet.
type Writer struct {
	client        *sheets.Service
	spreadsheetID string
	cfg           Config
	logger        *slog.Logger
}

// New creates a writer, opening cfg.SheetID or creating a new spreadsheet
// with a header row.
func New(ctx context.Context, httpClient *http.Client, cfg Config, logger *slog.Logger) (*Writer, error) {
	return NewWithOptions(ctx, cfg, logger, option.WithHTTPClient(httpClient))
}

// NewWithOptions is New with explicit client options.
func NewWithOptions(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SheetName == "" {
		return nil, fmt.Errorf("%w: sheet name", api.ErrMissingField)
	}
	if cfg.SheetID == "" && cfg.SheetTitle == "" {
		return nil, fmt.Errorf("%w: sheet id or title", api.ErrMissingField)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	client, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	w := &Writer{client: client, cfg: cfg, logger: logger}
	if w.spreadsheetID, err = w.initSpreadsheet(ctx); err != nil {
		return nil, fmt.Errorf("initializing spreadsheet: %w", err)
	}
	return w, nil
}

func (w *Writer) initSpreadsheet(ctx context.Context) (string, error) {
	if w.cfg.SheetID != "" {
		s, err := w.client.Spreadsheets.Get(w.cfg.SheetID).Context(ctx).Do()
		if err == nil {
			w.logger.Info("using existing spreadsheet", "title", s.Properties.Title, "id", w.cfg.SheetID)
			return s.SpreadsheetId, nil
		}
		if w.cfg.SheetTitle == "" {
			return "", fmt.Errorf("getting spreadsheet %s: %w", w.cfg.SheetID, err)
		}
		w.logger.Warn("failed to get spreadsheet, will create new one", "id", w.cfg.SheetID, "error", err)
	}

	s, err := w.client.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: w.cfg.SheetTitle},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: w.cfg.SheetName}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating spreadsheet: %w", err)
	}
	w.logger.Info("created new spreadsheet", "title", w.cfg.SheetTitle, "id", s.SpreadsheetId)

	header := make([]any, len(writer.Header))
	for i, h := range writer.Header {
		header[i] = h
	}
	_, err = w.client.Spreadsheets.Values.Update(s.SpreadsheetId, w.cfg.SheetName+"!A1",
		&sheets.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("writing headers: %w", err)
	}
	return s.SpreadsheetId, nil
}

// Write appends transactions below the existing rows in batches.
func (w *Writer) Write(ctx context.Context, txns []api.Transaction) error {
	for batch := range slices.Chunk(writer.Rows(txns), w.cfg.BatchSize) {
		if err := w.appendBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) appendBatch(ctx context.Context, rows []writer.Row) error {
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.Values())
	}
	req := &sheets.ValueRange{Values: values}

	err := retry.Do(
		func() error {
			_, err := w.client.Spreadsheets.Values.Append(w.spreadsheetID, w.cfg.SheetName+"!A2", req).
				ValueInputOption("RAW").
				InsertDataOption("INSERT_ROWS").
				Context(ctx).
				Do()
			return err
		},
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				w.logger.Warn("rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(3),
		retry.Delay(w.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("appending batch to sheet: %w", err)
	}

	w.logger.Info("wrote transaction batch", "count", len(rows))
	return nil
}

// SpreadsheetID returns the ID of the spreadsheet being written to.
func (w *Writer) SpreadsheetID() string {
	return w.spreadsheetID
}
