package sweep

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mailsweep/mailsweep/imapmail"
)

// previewChars bounds the body preview in summaries.
const previewChars = 500

// Summary is a lightweight search result row.
type Summary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date,omitempty"`
	Preview string `json:"preview,omitempty"`
}

// Search returns summaries of the most recent messages matching q, newest
// first. limit <= 0 defaults to 10.
func (c *Client) Search(q imapmail.SearchQuery, mailbox string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Summary
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), true, func(sess imapmail.Session) error {
		ids, err := sess.Search(q)
		if err != nil {
			return err
		}
		if len(ids) > limit {
			ids = ids[len(ids)-limit:]
		}
		out = c.summarize(sess, ids)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SearchFiltered is Search with junk excluded. It over-fetches (twice the
// limit) so that dropping junk still tends to fill the requested page.
func (c *Client) SearchFiltered(q imapmail.SearchQuery, mailbox string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Summary
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), true, func(sess imapmail.Session) error {
		ids, err := sess.Search(q)
		if err != nil {
			return err
		}
		if fetchLimit := limit * 2; len(ids) > fetchLimit {
			ids = ids[len(ids)-fetchLimit:]
		}
		fetched := imapmail.FetchMany(sess, ids, c.chunkSize)
		for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
			rec, ok := fetched.Records[ids[i]]
			if !ok {
				continue
			}
			if c.classifier.Analyze(rec).IsLikelyJunk {
				continue
			}
			out = append(out, summaryOf(rec))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Recent returns summaries of messages received in the last days days.
func (c *Client) Recent(mailbox string, days, limit int) ([]Summary, error) {
	if days <= 0 {
		days = 7
	}
	return c.Search(imapmail.SearchQuery{
		Since: time.Now().AddDate(0, 0, -days),
	}, mailbox, limit)
}

// Message hydrates one message with envelope and plain-text body.
func (c *Client) Message(id, mailbox string) (imapmail.MessageRecord, error) {
	return c.fetchOne(id, mailbox, false)
}

// MessageFull hydrates one message including HTML body, unsubscribe headers,
// and attachment presence.
func (c *Client) MessageFull(id, mailbox string) (imapmail.MessageRecord, error) {
	return c.fetchOne(id, mailbox, true)
}

// Messages bulk-hydrates the identified messages. Per-id failures land in
// the result's Missing map instead of failing the call.
func (c *Client) Messages(ids []string, mailbox string) (imapmail.FetchResult, error) {
	var result imapmail.FetchResult
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), true, func(sess imapmail.Session) error {
		result = imapmail.FetchMany(sess, ids, c.chunkSize)
		return nil
	})
	return result, err
}

// SenderStats aggregates one sender's traffic.
type SenderStats struct {
	Sender            string   `json:"sender"`
	Count             int      `json:"count"`
	LikelyMailingList bool     `json:"likely_mailing_list"`
	LatestDate        string   `json:"latest_date,omitempty"`
	SampleSubjects    []string `json:"sample_subjects,omitempty"`
}

var mailingListTokens = []string{"newsletter", "noreply", "no-reply", "marketing", "updates", "notifications"}

// MailingListSenders aggregates recent traffic by sender and flags likely
// mailing lists. minCount drops senders seen fewer times; days bounds the
// window (default 30).
func (c *Client) MailingListSenders(mailbox string, days, minCount int) ([]SenderStats, error) {
	if days <= 0 {
		days = 30
	}
	if minCount <= 0 {
		minCount = 2
	}
	var out []SenderStats
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), true, func(sess imapmail.Session) error {
		ids, err := sess.Search(imapmail.SearchQuery{Since: time.Now().AddDate(0, 0, -days)})
		if err != nil {
			return err
		}
		fetched := imapmail.FetchMany(sess, ids, c.chunkSize)

		bySender := map[string]*SenderStats{}
		var order []string
		for _, id := range ids {
			rec, ok := fetched.Records[id]
			if !ok {
				continue
			}
			sender := strings.TrimSpace(rec.From)
			if sender == "" {
				continue
			}
			stats, ok := bySender[sender]
			if !ok {
				stats = &SenderStats{Sender: sender}
				bySender[sender] = stats
				order = append(order, sender)
			}
			stats.Count++
			stats.LatestDate = rec.Date
			if len(stats.SampleSubjects) < 3 {
				stats.SampleSubjects = append(stats.SampleSubjects, rec.Subject)
			}
		}
		for _, sender := range order {
			stats := bySender[sender]
			if stats.Count < minCount {
				continue
			}
			stats.LikelyMailingList = looksLikeMailingList(stats.Sender, stats.Count)
			out = append(out, *stats)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Count != out[j].Count {
				return out[i].Count > out[j].Count
			}
			return out[i].Sender < out[j].Sender
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func looksLikeMailingList(sender string, count int) bool {
	lower := strings.ToLower(sender)
	for _, token := range mailingListTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return count >= 5
}

func (c *Client) fetchOne(id, mailbox string, full bool) (imapmail.MessageRecord, error) {
	var rec imapmail.MessageRecord
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), true, func(sess imapmail.Session) error {
		var result imapmail.FetchResult
		if full {
			result = imapmail.FetchManyFull(sess, []string{id}, c.chunkSize)
		} else {
			result = imapmail.FetchMany(sess, []string{id}, c.chunkSize)
		}
		found, ok := result.Records[id]
		if !ok {
			if reason := result.Missing[id]; reason != nil {
				return fmt.Errorf("sweep: message %s: %w", id, reason)
			}
			return fmt.Errorf("sweep: message %s not found", id)
		}
		rec = found
		return nil
	})
	return rec, err
}

// summarize hydrates ids and returns summaries newest first, skipping ids
// that could not be hydrated.
func (c *Client) summarize(sess imapmail.Session, ids []string) []Summary {
	fetched := imapmail.FetchMany(sess, ids, c.chunkSize)
	out := make([]Summary, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		rec, ok := fetched.Records[ids[i]]
		if !ok {
			continue
		}
		out = append(out, summaryOf(rec))
	}
	return out
}

func summaryOf(rec imapmail.MessageRecord) Summary {
	return Summary{
		ID:      rec.ID,
		Subject: rec.Subject,
		From:    rec.From,
		Date:    rec.Date,
		Preview: preview(rec.Body),
	}
}

func preview(body string) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= previewChars {
		return body
	}
	return string(runes[:previewChars]) + "..."
}
