package importer

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// whatsAppLine matches "[dd/MM/yy, HH:mm] sender: text".
var whatsAppLine = regexp.MustCompile(`^\[(\d{1,2}/\d{1,2}/\d{2}, \d{1,2}:\d{2})\] .*?: (.*)$`)

const whatsAppLayout = "02/01/06, 15:04"

// WhatsApp reads a chat export and keeps one message per timestamped line.
// Lines whose timestamp does not parse strictly as dd/MM/yy, HH:mm are
// skipped with a warning.
func (i *Importer) WhatsApp(r io.Reader) ([]api.SMSMessage, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var msgs []api.SMSMessage
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		m := whatsAppLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		ts, err := time.Parse(whatsAppLayout, m[1])
		if err != nil {
			i.logger.Warn("skipping chat line with unreadable timestamp", "line", lineNo, "timestamp", m[1])
			continue
		}
		msgs = append(msgs, api.SMSMessage{
			Text:      m[2],
			Timestamp: ts.Format("2006-01-02T15:04"),
			Ref:       fmt.Sprintf("line %d", lineNo),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning line %d: %w", lineNo+1, err)
	}
	return msgs, nil
}
