// Package gmail fetches bank notification mails from Gmail as SMS messages.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/importer"
)

// Scopes are the OAuth scopes needed to read mails and mark them as read.
var Scopes = []string{gmail.GmailModifyScope}

var errStop = errors.New("stop paging")

const (
	user        = "me"
	unreadLabel = "UNREAD"
	pageSize    = 100
)

// Reader reads messages from a Gmail mailbox.
type Reader struct {
	svc    *gmail.Service
	logger *slog.Logger
}

// New creates a reader using an authorized HTTP client.
func New(ctx context.Context, httpClient *http.Client, logger *slog.Logger) (*Reader, error) {
	return NewWithOptions(ctx, logger, option.WithHTTPClient(httpClient))
}

// NewWithOptions creates a reader with explicit client options, for example
// a custom endpoint.
func NewWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return &Reader{svc: svc, logger: logger}, nil
}

// Fetch returns up to limit messages matching query, oldest first. Each
// message's Ref is its Gmail id. Messages without a text body are skipped.
// A limit of zero or less means no limit.
func (r *Reader) Fetch(ctx context.Context, query string, limit int) ([]api.SMSMessage, error) {
	ids, err := r.list(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	r.logger.Info("found messages", "query", query, "count", len(ids))

	msgs := make([]api.SMSMessage, 0, len(ids))
	for _, id := range ids {
		msg, err := r.svc.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("getting message %s: %w", id, err)
		}

		body := extractBody(msg.Payload)
		if body == "" {
			r.logger.Warn("empty message body", "message_id", id, "subject", header(msg.Payload, "Subject"))
			continue
		}
		msgs = append(msgs, api.SMSMessage{
			Text:      body,
			Timestamp: time.UnixMilli(msg.InternalDate).UTC().Format(time.RFC3339),
			Ref:       id,
		})
	}

	// The API lists newest first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *Reader) list(ctx context.Context, query string, limit int) ([]string, error) {
	var ids []string
	call := r.svc.Users.Messages.List(user).Q(query).MaxResults(pageSize)
	err := call.Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			if limit > 0 && len(ids) >= limit {
				return errStop
			}
			ids = append(ids, m.Id)
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return ids, nil
}

// MarkRead removes the UNREAD label from the given messages. Failures are
// logged and counted; the number of messages marked is returned.
func (r *Reader) MarkRead(ctx context.Context, ids ...string) int {
	marked := 0
	for _, id := range ids {
		_, err := r.svc.Users.Messages.Modify(user, id, &gmail.ModifyMessageRequest{
			RemoveLabelIds: []string{unreadLabel},
		}).Context(ctx).Do()
		if err != nil {
			r.logger.Warn("failed to mark message as read", "message_id", id, "error", err)
			continue
		}
		r.logger.Debug("marked message as read", "message_id", id)
		marked++
	}
	return marked
}

// extractBody returns the message text on a single line. A text/plain part is
// preferred anywhere in the tree; otherwise the first text/html part is
// reduced to its visible text.
func extractBody(p *gmail.MessagePart) string {
	if p == nil {
		return ""
	}
	if text := findPart(p, "text/plain"); text != "" {
		return importer.CollapseWhitespace(text)
	}
	if markup := findPart(p, "text/html"); markup != "" {
		text, err := importer.HTMLText(strings.NewReader(markup))
		if err != nil {
			return ""
		}
		return importer.CollapseWhitespace(text)
	}
	return ""
}

func findPart(p *gmail.MessagePart, mimeType string) string {
	if p.MimeType == mimeType && p.Body != nil && p.Body.Data != "" {
		if data, err := decode(p.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, child := range p.Parts {
		if text := findPart(child, mimeType); text != "" {
			return text
		}
	}
	return ""
}

// decode accepts padded and unpadded base64url.
func decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func header(p *gmail.MessagePart, name string) string {
	if p == nil {
		return ""
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
