package imapmail

import (
	"net/mail"
	"strings"
	"time"
)

// MessageRecord is the hydrated form of one message. Plain hydration fills
// the envelope fields and Body; full hydration additionally fills TextBody,
// HTMLBody, the unsubscribe headers, and HasAttachments.
type MessageRecord struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	// Date is the Date header as sent, preserved as free text. Use ParseDate
	// to interpret it.
	Date string `json:"date,omitempty"`
	// Body is the concatenated plain-text content.
	Body string `json:"body,omitempty"`

	// Full-hydration fields.
	TextBody            string `json:"text_body,omitempty"`
	HTMLBody            string `json:"html_body,omitempty"`
	ListUnsubscribe     string `json:"list_unsubscribe,omitempty"`
	ListUnsubscribePost string `json:"list_unsubscribe_post,omitempty"`
	HasAttachments      bool   `json:"has_attachments,omitempty"`
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339,
	"2 Jan 2006 15:04:05 -0700",
}

// ParseDate interprets the free-text Date header of a record. It tries the
// RFC 5322 grammar first and falls back through common legacy layouts. The
// second return reports whether any layout matched.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(value); err == nil {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
