package importer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// Text reads one message per line. Blank lines and lines starting with '#'
// are skipped. A line of the form "timestamp|sender|text" keeps its timestamp;
// any other line is taken whole and stamped with the current time.
func (i *Importer) Text(r io.Reader) ([]api.SMSMessage, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var msgs []api.SMSMessage
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		msg := api.SMSMessage{Ref: fmt.Sprintf("line %d", lineNo)}
		if parts := strings.SplitN(line, "|", 3); len(parts) == 3 {
			msg.Timestamp = strings.TrimSpace(parts[0])
			msg.Text = strings.TrimSpace(parts[2])
		} else {
			msg.Timestamp = localTimestamp(i.now())
			msg.Text = line
		}
		msgs = append(msgs, msg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning line %d: %w", lineNo+1, err)
	}
	return msgs, nil
}
