package importer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/emersion/go-mbox"
	"golang.org/x/net/html/charset"

	"github.com/ArionMiles/spendwise/pkg/api"
)

// Mbox reads an mbox archive (for example an SMS-to-email forward or a mail
// client export) and returns one message per mail, using its text body.
// Plain text parts are preferred; HTML-only mails are reduced to text.
// Mails without a usable body are skipped with a warning.
func (i *Importer) Mbox(r io.Reader) ([]api.SMSMessage, error) {
	mr := mbox.NewReader(r)

	var msgs []api.SMSMessage
	for n := 1; ; n++ {
		raw, err := mr.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading message %d: %w", n, err)
		}

		m, err := mail.ReadMessage(raw)
		if err != nil {
			i.logger.Warn("skipping malformed mail", "message", n, "error", err)
			continue
		}

		body, err := mailText(m.Header.Get("Content-Type"), m.Header.Get("Content-Transfer-Encoding"), m.Body)
		if err != nil {
			i.logger.Warn("skipping mail with unreadable body", "message", n, "error", err)
			continue
		}
		body = CollapseWhitespace(body)
		if body == "" {
			i.logger.Warn("skipping mail without text body", "message", n)
			continue
		}

		msg := api.SMSMessage{Text: body, Ref: fmt.Sprintf("message %d", n)}
		if id := m.Header.Get("Message-Id"); id != "" {
			msg.Ref = id
		}
		if date, err := m.Header.Date(); err == nil {
			msg.Timestamp = date.Format("2006-01-02T15:04:05Z07:00")
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// mailText returns the best text rendering of a MIME entity.
func mailText(contentType, transferEncoding string, body io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain; charset=us-ascii"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("parsing content type: %w", err)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartText(params["boundary"], body)
	}
	if mediaType != "text/plain" && mediaType != "text/html" {
		return "", nil
	}

	decoded, err := decodeBody(transferEncoding, params["charset"], body)
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return HTMLText(bytes.NewReader(decoded))
	}
	return string(decoded), nil
}

func multipartText(boundary string, body io.Reader) (string, error) {
	if boundary == "" {
		return "", errors.New("multipart body without boundary")
	}

	var plain, html string
	mpr := multipart.NewReader(body, boundary)
	for {
		part, err := mpr.NextRawPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading part: %w", err)
		}

		text, err := mailText(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			return "", err
		}
		mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		switch {
		case plain == "" && (mediaType == "text/plain" || mediaType == ""):
			plain = text
		case html == "" && text != "":
			html = text
		}
	}
	if strings.TrimSpace(plain) != "" {
		return plain, nil
	}
	return html, nil
}

func decodeBody(transferEncoding, charsetLabel string, body io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	case "base64":
		body = base64.NewDecoder(base64.StdEncoding, newlineStripper{body})
	}

	if charsetLabel != "" && !strings.EqualFold(charsetLabel, "utf-8") && !strings.EqualFold(charsetLabel, "us-ascii") {
		r, err := charset.NewReaderLabel(charsetLabel, body)
		if err != nil {
			return nil, fmt.Errorf("decoding charset %q: %w", charsetLabel, err)
		}
		body = r
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}

// newlineStripper drops CR and LF so base64 bodies wrapped at 76 columns decode.
type newlineStripper struct{ r io.Reader }

func (s newlineStripper) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	j := 0
	for _, b := range p[:n] {
		if b != '\r' && b != '\n' {
			p[j] = b
			j++
		}
	}
	return j, err
}
