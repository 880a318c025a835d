package sweep

import (
	"github.com/mailsweep/mailsweep/imapmail"
)

// Move moves one message between mailboxes.
func (c *Client) Move(id, from, to string) (imapmail.BulkResult, error) {
	return c.BulkMove([]string{id}, from, to)
}

// BulkMove moves the identified messages from one mailbox to another. One
// expunge runs for the whole call.
func (c *Client) BulkMove(ids []string, from, to string) (imapmail.BulkResult, error) {
	var result imapmail.BulkResult
	err := c.gateway.WithMailbox(defaultMailbox(from), false, func(sess imapmail.Session) error {
		result = imapmail.MoveMany(sess, ids, to, c.chunkSize)
		return nil
	})
	if err == nil {
		c.logger.Info("bulk move finished",
			"from", defaultMailbox(from), "to", to,
			"succeeded", result.Succeeded, "failed", result.Failed)
	}
	return result, err
}

// BulkMark adds or removes a flag on the identified messages. Use the
// imapmail.Flag* constants.
func (c *Client) BulkMark(ids []string, mailbox, flag string, add bool) (imapmail.BulkResult, error) {
	var result imapmail.BulkResult
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), false, func(sess imapmail.Session) error {
		result = imapmail.MarkMany(sess, ids, flag, add, c.chunkSize)
		return nil
	})
	return result, err
}

// BulkDelete removes the identified messages: soft (to Trash) by default,
// permanently when permanent is true.
func (c *Client) BulkDelete(ids []string, mailbox string, permanent bool) (imapmail.BulkResult, error) {
	var result imapmail.BulkResult
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), false, func(sess imapmail.Session) error {
		result = imapmail.DeleteMany(sess, ids, permanent, c.chunkSize)
		return nil
	})
	if err == nil {
		c.logger.Info("bulk delete finished",
			"mailbox", defaultMailbox(mailbox), "permanent", permanent,
			"succeeded", result.Succeeded, "failed", result.Failed)
	}
	return result, err
}

// Mailboxes lists all mailboxes known to the server, sorted by name.
func (c *Client) Mailboxes() ([]imapmail.MailboxInfo, error) {
	var out []imapmail.MailboxInfo
	err := c.gateway.WithSession(func(sess imapmail.Session) error {
		boxes, err := sess.List()
		if err != nil {
			return err
		}
		out = boxes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMailbox creates a mailbox.
func (c *Client) CreateMailbox(name string) error {
	return c.gateway.WithSession(func(sess imapmail.Session) error {
		return sess.Create(name)
	})
}

// DeleteMailbox removes a mailbox.
func (c *Client) DeleteMailbox(name string) error {
	return c.gateway.WithSession(func(sess imapmail.Session) error {
		return sess.Remove(name)
	})
}
