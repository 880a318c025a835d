package unsub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single unsubscribe request when the caller passes
// no explicit timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes limits how much of the response body is scanned for
// confirmation phrases.
const maxResponseBytes = 1 << 20

var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

var confirmationPhrases = []string{
	"unsubscribed",
	"removed",
	"opted out",
	"no longer receive",
	"successfully unsubscribed",
	"email address has been removed",
}

// Result is the outcome of one unsubscribe attempt. Confirmed is purely
// informational: its absence does not negate Success.
type Result struct {
	Method     Method `json:"method"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Confirmed  bool   `json:"confirmed,omitempty"`
	Message    string `json:"message"`
}

// MailtoSender executes a mailto unsubscribe through an outbound transport.
type MailtoSender interface {
	SendUnsubscribe(address string) error
}

// Executor performs unsubscribe requests. The zero-value http.Client follows
// redirects, matching what a browser click would do.
type Executor struct {
	client *http.Client
	sender MailtoSender
}

// NewExecutor returns an executor using client for HTTP methods and sender
// for mailto methods. A nil client falls back to a default one; a nil sender
// makes mailto methods report manual action.
func NewExecutor(client *http.Client, sender MailtoSender) *Executor {
	if client == nil {
		client = &http.Client{}
	}
	return &Executor{client: client, sender: sender}
}

// Execute performs one unsubscribe method. A non-positive timeout falls back
// to DefaultTimeout. Failures are reported in the Result, not as an error:
// the attempt itself is the outcome.
func (e *Executor) Execute(ctx context.Context, method Method, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	result := Result{Method: method}

	switch method.Kind {
	case KindMailto:
		e.executeMailto(method, &result)
	case KindHTTP:
		e.executeHTTP(ctx, method, timeout, &result)
	default:
		result.Message = fmt.Sprintf("unsupported unsubscribe method %q", method.Kind)
	}
	return result
}

func (e *Executor) executeMailto(method Method, result *Result) {
	if e.sender == nil {
		result.Message = "mailto unsubscribe requires an outbound sender; send the email manually"
		return
	}
	if err := e.sender.SendUnsubscribe(method.Target); err != nil {
		result.Message = fmt.Sprintf("unsubscribe mail to %s failed: %v", method.Target, err)
		return
	}
	result.Success = true
	result.Message = fmt.Sprintf("unsubscribe mail sent to %s", method.Target)
}

func (e *Executor) executeHTTP(ctx context.Context, method Method, timeout time.Duration, result *Result) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpMethod := http.MethodGet
	var body io.Reader
	if method.OneClick {
		// RFC 8058 requires a POST with this exact form body.
		httpMethod = http.MethodPost
		body = strings.NewReader("List-Unsubscribe=One-Click")
	}
	req, err := http.NewRequestWithContext(ctx, httpMethod, method.Target, body)
	if err != nil {
		result.Message = fmt.Sprintf("invalid unsubscribe URL: %v", err)
		return
	}
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}
	if method.OneClick {
		req.Header.Set("List-Unsubscribe", "One-Click")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			result.Message = fmt.Sprintf("request timed out after %s", timeout)
			return
		}
		result.Message = fmt.Sprintf("could not reach unsubscribe URL: %v", err)
		return
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		result.Success = true
		result.Message = fmt.Sprintf("unsubscribe request successful (HTTP %d)", resp.StatusCode)
	default:
		result.Message = fmt.Sprintf("unsubscribe request failed with HTTP %d", resp.StatusCode)
		return
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return
	}
	lower := strings.ToLower(string(content))
	for _, phrase := range confirmationPhrases {
		if strings.Contains(lower, phrase) {
			result.Confirmed = true
			result.Message += " - confirmation detected in response"
			break
		}
	}
}
