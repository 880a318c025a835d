package sweep

import (
	"fmt"

	"github.com/mailsweep/mailsweep/imapmail"
	"github.com/mailsweep/mailsweep/junk"
)

// FilterAction selects what FilterJunk does with detected junk.
type FilterAction string

const (
	// FilterAnalyze only reports; nothing is mutated.
	FilterAnalyze FilterAction = "analyze"
	// FilterMoveToSpam additionally moves detected junk into SpamMailbox.
	FilterMoveToSpam FilterAction = "move_to_spam"
)

// FilterReport is the outcome of one FilterJunk run.
type FilterReport struct {
	Analyzed     int                 `json:"analyzed"`
	JunkDetected int                 `json:"junk_detected"`
	Results      []junk.Analysis     `json:"results,omitempty"`
	MovedToSpam  imapmail.BulkResult `json:"moved_to_spam"`
}

// AnalyzeJunk scores a single message.
func (c *Client) AnalyzeJunk(id, mailbox string) (junk.Analysis, error) {
	rec, err := c.Message(id, mailbox)
	if err != nil {
		return junk.Analysis{}, err
	}
	return c.classifier.Analyze(rec), nil
}

// FilterJunk analyzes the most recent limit messages of mailbox and, with
// FilterMoveToSpam, moves everything likely junk into SpamMailbox in one
// grouped bulk call. An empty action defaults to FilterAnalyze.
func (c *Client) FilterJunk(mailbox string, limit int, action FilterAction) (FilterReport, error) {
	switch action {
	case "":
		action = FilterAnalyze
	case FilterAnalyze, FilterMoveToSpam:
	default:
		return FilterReport{}, fmt.Errorf("sweep: unsupported filter action %q", action)
	}
	if limit <= 0 {
		limit = 50
	}

	var report FilterReport
	readOnly := action == FilterAnalyze
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), readOnly, func(sess imapmail.Session) error {
		ids, err := sess.Search(imapmail.SearchQuery{})
		if err != nil {
			return err
		}
		if len(ids) > limit {
			ids = ids[len(ids)-limit:]
		}
		fetched := imapmail.FetchMany(sess, ids, c.chunkSize)

		var junkIDs []string
		for _, id := range ids {
			rec, ok := fetched.Records[id]
			if !ok {
				continue
			}
			analysis := c.classifier.Analyze(rec)
			report.Analyzed++
			report.Results = append(report.Results, analysis)
			if analysis.IsLikelyJunk {
				report.JunkDetected++
				junkIDs = append(junkIDs, id)
			}
		}
		if action == FilterMoveToSpam && len(junkIDs) > 0 {
			report.MovedToSpam = imapmail.MoveMany(sess, junkIDs, SpamMailbox, c.chunkSize)
			c.logger.Info("moved junk to spam",
				"mailbox", defaultMailbox(mailbox),
				"detected", report.JunkDetected,
				"moved", report.MovedToSpam.Succeeded)
		}
		return nil
	})
	if err != nil {
		return FilterReport{}, err
	}
	return report, nil
}
