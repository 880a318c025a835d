package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailsweep/mailsweep/imapmail"
	"github.com/mailsweep/mailsweep/unsub"
)

// ErrConfirmationRequired guards Unsubscribe: the caller must pass
// confirm=true to actually execute a request against a third party.
var ErrConfirmationRequired = errors.New("sweep: unsubscribe requires explicit confirmation")

// UnsubReport lists the unsubscribe methods found in one message.
type UnsubReport struct {
	ID          string         `json:"id"`
	Subject     string         `json:"subject"`
	From        string         `json:"from"`
	Methods     []unsub.Method `json:"methods"`
	HasOneClick bool           `json:"has_one_click"`
}

// ScanReport summarizes unsubscribe opportunities across a mailbox window.
type ScanReport struct {
	Scanned           int          `json:"scanned"`
	OneClickAvailable int          `json:"one_click_available"`
	Opportunities     []UnsubReport `json:"opportunities,omitempty"`
}

// FindUnsubscribe discovers the unsubscribe methods in one message.
func (c *Client) FindUnsubscribe(id, mailbox string) (UnsubReport, error) {
	rec, err := c.MessageFull(id, mailbox)
	if err != nil {
		return UnsubReport{}, err
	}
	methods := unsub.Extract(rec)
	return UnsubReport{
		ID:          rec.ID,
		Subject:     rec.Subject,
		From:        rec.From,
		Methods:     methods,
		HasOneClick: unsub.HasOneClick(methods),
	}, nil
}

// ScanUnsubscribe sweeps the last days days of mailbox (default 30, at most
// limit messages, default 50) and reports every message carrying at least
// one unsubscribe method, newest first.
func (c *Client) ScanUnsubscribe(mailbox string, days, limit int) (ScanReport, error) {
	if days <= 0 {
		days = 30
	}
	if limit <= 0 {
		limit = 50
	}
	var report ScanReport
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), true, func(sess imapmail.Session) error {
		ids, err := sess.Search(imapmail.SearchQuery{Since: time.Now().AddDate(0, 0, -days)})
		if err != nil {
			return err
		}
		if len(ids) > limit {
			ids = ids[len(ids)-limit:]
		}
		fetched := imapmail.FetchManyFull(sess, ids, c.chunkSize)
		for i := len(ids) - 1; i >= 0; i-- {
			rec, ok := fetched.Records[ids[i]]
			if !ok {
				continue
			}
			report.Scanned++
			methods := unsub.Extract(rec)
			if len(methods) == 0 {
				continue
			}
			entry := UnsubReport{
				ID:          rec.ID,
				Subject:     rec.Subject,
				From:        rec.From,
				Methods:     methods,
				HasOneClick: unsub.HasOneClick(methods),
			}
			if entry.HasOneClick {
				report.OneClickAvailable++
			}
			report.Opportunities = append(report.Opportunities, entry)
		}
		return nil
	})
	if err != nil {
		return ScanReport{}, err
	}
	return report, nil
}

// Unsubscribe executes one discovered unsubscribe method. confirm must be
// true; methodIndex selects from the methods FindUnsubscribe reports. The
// outcome of the attempt itself lands in the Result, not in the error.
func (c *Client) Unsubscribe(ctx context.Context, id, mailbox string, methodIndex int, confirm bool, timeout time.Duration) (unsub.Result, error) {
	if !confirm {
		return unsub.Result{}, ErrConfirmationRequired
	}
	report, err := c.FindUnsubscribe(id, mailbox)
	if err != nil {
		return unsub.Result{}, err
	}
	if len(report.Methods) == 0 {
		return unsub.Result{}, fmt.Errorf("sweep: no unsubscribe methods found in message %s", id)
	}
	if methodIndex < 0 || methodIndex >= len(report.Methods) {
		return unsub.Result{}, fmt.Errorf("sweep: method index %d out of range (0-%d)", methodIndex, len(report.Methods)-1)
	}
	result := c.executor.Execute(ctx, report.Methods[methodIndex], timeout)
	c.logger.Info("unsubscribe attempted",
		"message", id,
		"target", result.Method.Target,
		"success", result.Success)
	return result, nil
}
