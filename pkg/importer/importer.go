// Package importer splits exported message dumps into SMS messages ready for
// batch classification. Importers never classify or persist anything.
package importer

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// Format names a supported input layout.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatWhatsApp Format = "whatsapp"
	FormatMbox     Format = "mbox"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatCSV, FormatWhatsApp, FormatMbox}
}

// ParseFormat validates a format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown import format %q", api.ErrInvalidRequest, s)
}

// Importer reads message dumps.
type Importer struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Importer.
type Option func(*Importer)

// WithClock sets the clock used to stamp messages that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

// New creates an importer.
func New(logger *slog.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Importer{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import reads all messages from r in the given format.
func (i *Importer) Import(r io.Reader, format Format) ([]api.SMSMessage, error) {
	var (
		msgs []api.SMSMessage
		err  error
	)
	switch format {
	case FormatText:
		msgs, err = i.Text(r)
	case FormatCSV:
		msgs, err = i.CSV(r)
	case FormatWhatsApp:
		msgs, err = i.WhatsApp(r)
	case FormatMbox:
		msgs, err = i.Mbox(r)
	default:
		return nil, fmt.Errorf("%w: unknown import format %q", api.ErrInvalidRequest, format)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s input: %w", format, err)
	}

	i.logger.Debug("imported messages", "format", format, "count", len(msgs))
	return msgs, nil
}

// localTimestamp formats a wall-clock time without zone, as the batch API expects.
func localTimestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}
