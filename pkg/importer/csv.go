package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// csvRow is one record of a "timestamp,message_text" export.
type csvRow struct {
	Timestamp string `csv:"timestamp"`
	Text      string `csv:"message_text"`
}

// CSV reads a two-column export of timestamp and message text. The first line
// is a header and is skipped; columns are taken by position, so any header
// names work. Unquoted commas in the message text are kept: everything after
// the first column is text. Rows without text are skipped.
func (i *Importer) CSV(r io.Reader) ([]api.SMSMessage, error) {
	var rows []*csvRow
	if err := gocsv.UnmarshalCSV(newTwoColumnReader(r), &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding csv: %w", err)
	}

	msgs := make([]api.SMSMessage, 0, len(rows))
	for n, row := range rows {
		text := strings.TrimSpace(row.Text)
		if text == "" {
			continue
		}
		msgs = append(msgs, api.SMSMessage{
			Text:      text,
			Timestamp: strings.TrimSpace(row.Timestamp),
			Ref:       fmt.Sprintf("row %d", n+2),
		})
	}
	return msgs, nil
}

// twoColumnReader folds every record into at most two fields, joining the
// overflow back with commas. The first record is replaced with the csvRow
// header names.
type twoColumnReader struct {
	r          *csv.Reader
	headerSeen bool
}

func newTwoColumnReader(in io.Reader) *twoColumnReader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return &twoColumnReader{r: r}
}

func (t *twoColumnReader) Read() ([]string, error) {
	rec, err := t.r.Read()
	if err != nil {
		return nil, err
	}
	if !t.headerSeen {
		t.headerSeen = true
		return []string{"timestamp", "message_text"}, nil
	}
	if len(rec) > 2 {
		rec = []string{rec[0], strings.Join(rec[1:], ",")}
	}
	for len(rec) < 2 {
		rec = append(rec, "")
	}
	return rec, nil
}

func (t *twoColumnReader) ReadAll() ([][]string, error) {
	var out [][]string
	for {
		rec, err := t.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}
