package imapmail

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// parseRecord hydrates one raw RFC 822 message. Plain mode extracts the
// envelope and plain-text body; full mode additionally collects the HTML
// body, the unsubscribe headers, and attachment presence.
//
// Unknown charsets are tolerated: go-message still yields the parts it can
// decode, and the envelope headers survive.
func parseRecord(id string, raw []byte, full bool) (MessageRecord, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && mr == nil {
		return MessageRecord{}, fmt.Errorf("imapmail: parsing message %s failed: %w", id, err)
	}
	defer mr.Close()

	rec := MessageRecord{ID: id}
	header := mr.Header
	rec.Subject, _ = header.Subject()
	rec.From = addressHeader(header, "From")
	rec.To = addressHeader(header, "To")
	rec.Date = header.Get("Date")
	if full {
		rec.ListUnsubscribe = header.Get("List-Unsubscribe")
		rec.ListUnsubscribePost = header.Get("List-Unsubscribe-Post")
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken part ends the walk; what was decoded so far stands.
			break
		}
		switch ph := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := ph.ContentType()
			content, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				rec.Body += string(content)
				if full {
					rec.TextBody += string(content)
				}
			case strings.HasPrefix(contentType, "text/html"):
				if full {
					rec.HTMLBody += string(content)
				}
			}
		case *mail.AttachmentHeader:
			rec.HasAttachments = true
		}
	}
	return rec, nil
}

// addressHeader renders an address header as display text, falling back to
// the raw header value when the address list does not parse.
func addressHeader(header mail.Header, key string) string {
	addrs, err := header.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return header.Get(key)
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.Name, a.Address))
			continue
		}
		parts = append(parts, a.Address)
	}
	return strings.Join(parts, ", ")
}
