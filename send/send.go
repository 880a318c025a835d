// Package send delivers outgoing mail through an SMTP endpoint with
// STARTTLS and plain authentication, assembling the MIME message locally so
// reply threading headers survive.
package send

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

// Config carries the SMTP endpoint and credentials.
type Config struct {
	Host     string
	Port     int
	Address  string
	Password string
}

// Message is one outgoing transmission.
type Message struct {
	To      []string
	Cc      []string
	Subject string
	Body    string
	// InReplyTo and References thread the message under an existing
	// conversation. Values are Message-IDs with or without angle brackets.
	InReplyTo  string
	References []string
}

// Sender transmits messages through the configured endpoint. Each Send opens
// its own connection.
type Sender struct {
	cfg Config
}

// NewSender returns a sender for cfg.
func NewSender(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send transmits msg and returns the generated Message-ID.
func (s *Sender) Send(msg Message) (string, error) {
	recipients := uniqueRecipients(msg.To, msg.Cc)
	if len(recipients) == 0 {
		return "", errors.New("send: at least one recipient is required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return "", errors.New("send: message body is required")
	}

	messageID := generateMessageID(s.cfg.Address)
	raw := buildOutgoingMessage(s.cfg.Address, msg, messageID)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	client, err := smtp.DialStartTLS(addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return "", fmt.Errorf("send: SMTP dial failed: %w", err)
	}
	defer client.Close()

	auth := sasl.NewPlainClient("", s.cfg.Address, s.cfg.Password)
	if err := client.Auth(auth); err != nil {
		return "", fmt.Errorf("send: SMTP auth failed: %w", err)
	}
	if err := client.Mail(s.cfg.Address, nil); err != nil {
		return "", fmt.Errorf("send: MAIL FROM failed: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt, nil); err != nil {
			return "", fmt.Errorf("send: RCPT TO %q failed: %w", rcpt, err)
		}
	}
	writer, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("send: DATA failed: %w", err)
	}
	if _, err := writer.Write(raw); err != nil {
		writer.Close()
		return "", fmt.Errorf("send: writing message failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("send: finishing message failed: %w", err)
	}
	if err := client.Quit(); err != nil {
		return "", fmt.Errorf("send: QUIT failed: %w", err)
	}
	return messageID, nil
}

func buildOutgoingMessage(from string, msg Message, messageID string) []byte {
	subject := sanitizeHeader(msg.Subject)
	if subject == "" {
		subject = "(no subject)"
	}

	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", strings.Join(uniqueRecipients(msg.To), ", ")),
		fmt.Sprintf("Subject: %s", subject),
		fmt.Sprintf("Date: %s", time.Now().Format(time.RFC1123Z)),
		fmt.Sprintf("Message-ID: %s", normalizeMessageID(messageID)),
		"MIME-Version: 1.0",
	}
	if cc := uniqueRecipients(msg.Cc); len(cc) > 0 {
		headers = append(headers, fmt.Sprintf("Cc: %s", strings.Join(cc, ", ")))
	}
	if inReplyTo := normalizeMessageID(msg.InReplyTo); inReplyTo != "" {
		headers = append(headers, fmt.Sprintf("In-Reply-To: %s", inReplyTo))
	}
	if len(msg.References) > 0 {
		references := make([]string, 0, len(msg.References))
		for _, reference := range msg.References {
			if normalized := normalizeMessageID(reference); normalized != "" {
				references = append(references, normalized)
			}
		}
		if len(references) > 0 {
			headers = append(headers, fmt.Sprintf("References: %s", strings.Join(references, " ")))
		}
	}
	headers = append(headers, `Content-Type: text/plain; charset="UTF-8"`)

	var builder strings.Builder
	builder.WriteString(strings.Join(headers, "\r\n"))
	builder.WriteString("\r\n\r\n")
	builder.WriteString(normalizeBody(msg.Body))
	builder.WriteString("\r\n")
	return []byte(builder.String())
}

func uniqueRecipients(groups ...[]string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 8)
	for _, group := range groups {
		for _, recipient := range group {
			recipient = strings.TrimSpace(recipient)
			if recipient == "" {
				continue
			}
			if _, ok := seen[recipient]; ok {
				continue
			}
			seen[recipient] = struct{}{}
			out = append(out, recipient)
		}
	}
	return out
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	return strings.TrimSpace(body)
}

func generateMessageID(address string) string {
	domain := "localhost"
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		domain = address[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

func normalizeMessageID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "<") && strings.HasSuffix(value, ">") {
		return value
	}
	return "<" + strings.Trim(value, "<>") + ">"
}
