package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ArionMiles/spendwise/internal/app"
	"github.com/ArionMiles/spendwise/internal/storage"
	"github.com/ArionMiles/spendwise/pkg/api"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4")).MarginBottom(1)
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))

	printer = message.NewPrinter(language.English)
)

// openApp builds the application from the loaded configuration.
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg, storage.Default(), logger)
}

// money renders an amount with thousands separators, e.g. "-1,234.50 INR".
func money(amount decimal.Decimal, currency string) string {
	s := printer.Sprintf("%.2f", amount.Round(2).InexactFloat64())
	if currency == "" {
		return s
	}
	return s + " " + currency
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, headerStyle.Render(h))
	}
	fmt.Fprintln(tw)
	return tw
}

// parsePeriod reads optional YYYY-MM-DD bounds; to is exclusive.
func parsePeriod(from, to string, loc *time.Location) (api.Period, error) {
	var p api.Period
	var err error
	if from != "" {
		if p.From, err = time.ParseInLocation(time.DateOnly, from, loc); err != nil {
			return p, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if p.To, err = time.ParseInLocation(time.DateOnly, to, loc); err != nil {
			return p, fmt.Errorf("--to: %w", err)
		}
	}
	return p, nil
}
