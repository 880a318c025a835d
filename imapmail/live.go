package imapmail

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Dial connects and authenticates against the IMAP endpoint in cfg, returning
// a live Session. The caller owns the session and must Logout when done.
func Dial(cfg Config) (Session, error) {
	var c *client.Client
	var err error
	if cfg.TLS {
		c, err = client.DialTLS(cfg.addr(), nil)
	} else {
		c, err = client.Dial(cfg.addr())
	}
	if err != nil {
		return nil, fmt.Errorf("imapmail: dialing %s failed: %w", cfg.addr(), err)
	}
	if err := c.Login(cfg.Address, cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imapmail: login failed: %w", err)
	}
	return &liveSession{c: c}, nil
}

type liveSession struct {
	c *client.Client
}

func (s *liveSession) Select(mailbox string, readOnly bool) error {
	if _, err := s.c.Select(mailbox, readOnly); err != nil {
		return fmt.Errorf("imapmail: selecting mailbox %q failed: %w", mailbox, err)
	}
	return nil
}

func (s *liveSession) Search(q SearchQuery) ([]string, error) {
	seqNums, err := s.c.Search(buildSearchCriteria(q))
	if err != nil {
		return nil, fmt.Errorf("imapmail: search failed: %w", err)
	}
	ids := make([]string, 0, len(seqNums))
	for _, n := range seqNums {
		ids = append(ids, strconv.FormatUint(uint64(n), 10))
	}
	return ids, nil
}

func (s *liveSession) Fetch(ids []string) ([]RawMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	set, err := parseIDSet(ids)
	if err != nil {
		return nil, err
	}
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, len(ids)+8)
	done := make(chan error, 1)
	go func() {
		done <- s.c.Fetch(set, items, messages)
	}()

	var readErr error
	out := make([]RawMessage, 0, len(ids))
	for msg := range messages {
		literal := msg.GetBody(section)
		if literal == nil {
			continue
		}
		raw, err := io.ReadAll(literal)
		if err != nil {
			readErr = err
			continue
		}
		out = append(out, RawMessage{
			ID:  strconv.FormatUint(uint64(msg.SeqNum), 10),
			Raw: raw,
		})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imapmail: fetching messages failed: %w", err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("imapmail: reading message body failed: %w", readErr)
	}
	return out, nil
}

func (s *liveSession) Store(ids []string, add bool, flag string) error {
	if len(ids) == 0 {
		return nil
	}
	set, err := parseIDSet(ids)
	if err != nil {
		return err
	}
	op := imap.FlagsOp(imap.AddFlags)
	if !add {
		op = imap.RemoveFlags
	}
	item := imap.FormatFlagsOp(op, true)
	if err := s.c.Store(set, item, []interface{}{flag}, nil); err != nil {
		return fmt.Errorf("imapmail: storing flag %s failed: %w", flag, err)
	}
	return nil
}

func (s *liveSession) Copy(ids []string, mailbox string) error {
	if len(ids) == 0 {
		return nil
	}
	set, err := parseIDSet(ids)
	if err != nil {
		return err
	}
	if err := s.c.Copy(set, mailbox); err != nil {
		return fmt.Errorf("imapmail: copying to %q failed: %w", mailbox, err)
	}
	return nil
}

func (s *liveSession) Expunge() error {
	if err := s.c.Expunge(nil); err != nil {
		return fmt.Errorf("imapmail: expunge failed: %w", err)
	}
	return nil
}

func (s *liveSession) List() ([]MailboxInfo, error) {
	infos := make(chan *imap.MailboxInfo, 32)
	done := make(chan error, 1)
	go func() {
		done <- s.c.List("", "*", infos)
	}()

	var out []MailboxInfo
	for info := range infos {
		out = append(out, MailboxInfo{
			Name:       info.Name,
			Delimiter:  info.Delimiter,
			Attributes: info.Attributes,
		})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imapmail: listing mailboxes failed: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *liveSession) Create(mailbox string) error {
	if err := s.c.Create(mailbox); err != nil {
		return &MailboxError{Mailbox: mailbox, Err: err}
	}
	return nil
}

func (s *liveSession) Remove(mailbox string) error {
	if err := s.c.Delete(mailbox); err != nil {
		return &MailboxError{Mailbox: mailbox, Err: err}
	}
	return nil
}

func (s *liveSession) Close() error {
	return s.c.Close()
}

func (s *liveSession) Logout() error {
	return s.c.Logout()
}

func buildSearchCriteria(q SearchQuery) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	if v := strings.TrimSpace(q.Text); v != "" {
		criteria.Text = append(criteria.Text, v)
	}
	if v := strings.TrimSpace(q.From); v != "" {
		criteria.Header.Add("From", v)
	}
	if v := strings.TrimSpace(q.To); v != "" {
		criteria.Header.Add("To", v)
	}
	if v := strings.TrimSpace(q.Subject); v != "" {
		criteria.Header.Add("Subject", v)
	}
	if q.Unseen {
		criteria.WithoutFlags = append(criteria.WithoutFlags, imap.SeenFlag)
	}
	if !q.Since.IsZero() {
		criteria.Since = q.Since
	}
	if !q.Before.IsZero() {
		criteria.Before = q.Before
	}
	return criteria
}

// parseIDSet builds a protocol sequence set from opaque decimal ids. The ids
// are comma-joined so contiguous runs stay compact on the wire.
func parseIDSet(ids []string) (*imap.SeqSet, error) {
	set, err := imap.ParseSeqSet(strings.Join(ids, ","))
	if err != nil {
		return nil, fmt.Errorf("imapmail: invalid message id set: %w", err)
	}
	return set, nil
}
