package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/bobysf12/mail-cli/internal/provider"
)

// mapMessage converts the Gmail wire representation into the normalized
// record. A message is read iff its labels do not contain UNREAD.
func mapMessage(msg *gmailapi.Message) provider.Message {
	fromName, fromEmail := splitAddress(headerValue(msg, "From"))

	rec := provider.Message{
		ID:        msg.Id,
		ThreadID:  msg.ThreadId,
		Subject:   headerValue(msg, "Subject"),
		FromEmail: fromEmail,
		FromName:  fromName,
		Snippet:   msg.Snippet,
		Read:      !hasLabel(msg.LabelIds, labelUnread),
		LabelIDs:  msg.LabelIds,
	}

	// InternalDate is epoch milliseconds; zero means unknown.
	if msg.InternalDate > 0 {
		rec.ReceivedAt = time.UnixMilli(msg.InternalDate).UTC()
	}

	return rec
}

// headerValue returns the value of the named payload header,
// case-insensitively, or "".
func headerValue(msg *gmailapi.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// splitAddress parses a From header into display name and address. Headers
// that fail RFC 5322 parsing fall back to the raw value as the address.
func splitAddress(from string) (name, email string) {
	if from == "" {
		return "", ""
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return "", from
	}
	return addr.Name, addr.Address
}

func hasLabel(labelIDs []string, id string) bool {
	for _, l := range labelIDs {
		if l == id {
			return true
		}
	}
	return false
}

// messageBody extracts the plain-text body: the top-level payload body when
// present, otherwise the first text/plain part. Empty when neither exists.
func messageBody(msg *gmailapi.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		return decodeBody(msg.Payload.Body.Data)
	}
	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			return decodeBody(part.Body.Data)
		}
	}
	return ""
}

// decodeBody decodes Gmail's URL-safe base64 payload data, tolerating both
// padded and unpadded forms.
func decodeBody(data string) string {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}
