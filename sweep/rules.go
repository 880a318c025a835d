package sweep

import (
	"github.com/mailsweep/mailsweep/imapmail"
	"github.com/mailsweep/mailsweep/rules"
)

// Rules lists all filter rules.
func (c *Client) Rules() ([]rules.Rule, error) {
	return c.rules.List()
}

// CreateRule validates and persists a new filter rule. Unknown condition or
// action kinds are rejected and the store is left untouched.
func (c *Client) CreateRule(name string, conds []rules.Condition, acts []rules.Action, enabled bool) (rules.Rule, error) {
	return c.rules.Create(name, conds, acts, enabled)
}

// UpdateRule applies a partial update to a rule.
func (c *Client) UpdateRule(id string, upd rules.Update) (rules.Rule, error) {
	return c.rules.Update(id, upd)
}

// DeleteRule removes a rule.
func (c *Client) DeleteRule(id string) error {
	return c.rules.Delete(id)
}

// ApplyRules runs all enabled rules over the most recent limit messages of
// mailbox in a single pass.
func (c *Client) ApplyRules(mailbox string, limit int) (rules.ApplyResult, error) {
	var result rules.ApplyResult
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), false, func(sess imapmail.Session) error {
		var applyErr error
		result, applyErr = c.engine.Apply(sess, limit)
		return applyErr
	})
	return result, err
}

// ApplyRulesChunked is ApplyRules with the candidate list processed in
// chunks of chunkSize; rule statistics persist after every chunk.
func (c *Client) ApplyRulesChunked(mailbox string, limit, chunkSize int) (rules.ApplyResult, error) {
	var result rules.ApplyResult
	err := c.gateway.WithMailbox(defaultMailbox(mailbox), false, func(sess imapmail.Session) error {
		var applyErr error
		result, applyErr = c.engine.ApplyChunked(sess, limit, chunkSize)
		return applyErr
	})
	return result, err
}
