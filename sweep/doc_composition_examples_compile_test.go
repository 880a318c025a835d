package sweep_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailsweep/mailsweep/imapmail"
	"github.com/mailsweep/mailsweep/rules"
	"github.com/mailsweep/mailsweep/send"
	"github.com/mailsweep/mailsweep/sweep"
)

// These compositions document how the client primitives combine into real
// workflows. They are compile-checked, not executed.

func composeArchiveStaleNewsletters(c *sweep.Client) (imapmail.BulkResult, error) {
	stats, err := c.MailingListSenders("INBOX", 60, 3)
	if err != nil {
		return imapmail.BulkResult{}, err
	}

	var ids []string
	for _, sender := range stats {
		if !sender.LikelyMailingList {
			continue
		}
		summaries, err := c.Search(imapmail.SearchQuery{From: sender.Sender}, "INBOX", 50)
		if err != nil {
			return imapmail.BulkResult{}, err
		}
		for _, summary := range summaries {
			ids = append(ids, summary.ID)
		}
	}
	if len(ids) == 0 {
		return imapmail.BulkResult{}, nil
	}
	return c.BulkMove(ids, "INBOX", "Archive")
}

func composeSweepJunkThenUnsubscribe(ctx context.Context, c *sweep.Client) error {
	report, err := c.FilterJunk("INBOX", 200, sweep.FilterMoveToSpam)
	if err != nil {
		return err
	}
	fmt.Printf("moved %d junk messages\n", report.MovedToSpam.Succeeded)

	scan, err := c.ScanUnsubscribe("INBOX", 30, 50)
	if err != nil {
		return err
	}
	for _, opportunity := range scan.Opportunities {
		if !opportunity.HasOneClick {
			continue
		}
		result, err := c.Unsubscribe(ctx, opportunity.ID, "INBOX", 0, true, 10*time.Second)
		if err != nil {
			return err
		}
		if !result.Success {
			fmt.Printf("unsubscribe from %s failed: %s\n", opportunity.From, result.Message)
		}
	}
	return nil
}

func composeRuleForFrequentSender(c *sweep.Client, sender string) (rules.Rule, error) {
	name := "archive " + sender
	if len(name) > 60 {
		name = name[:60]
	}
	return c.CreateRule(name,
		[]rules.Condition{{Kind: rules.CondFromContains, Value: sender}},
		[]rules.Action{
			{Kind: rules.ActionMarkAsRead},
			{Kind: rules.ActionMoveToFolder, Value: "Archive"},
		},
		true)
}

func composeReplyToLatestFrom(c *sweep.Client, sender, body string) (string, error) {
	summaries, err := c.Search(imapmail.SearchQuery{From: sender}, "INBOX", 1)
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		return "", fmt.Errorf("no mail from %s", sender)
	}
	latest, err := c.Message(summaries[0].ID, "INBOX")
	if err != nil {
		return "", err
	}

	subject := latest.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}
	return c.Send(send.Message{
		To:      []string{latest.From},
		Subject: subject,
		Body:    body,
	})
}
