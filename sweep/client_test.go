package sweep

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/mailsweep/mailsweep/imapmail"
	"github.com/mailsweep/mailsweep/rules"
	"github.com/nalgeon/be"
)

// memSession is an in-memory imapmail.Session shared across dials.
type memSession struct {
	records  map[string][]byte
	copies   map[string][]string // mailbox -> ids
	stores   []string            // "flag:id" for added flags
	expunges int
	selected string
}

func newMemSession() *memSession {
	return &memSession{records: map[string][]byte{}, copies: map[string][]string{}}
}

func (s *memSession) put(id string, raw []byte) { s.records[id] = raw }

func (s *memSession) Select(mailbox string, readOnly bool) error {
	s.selected = mailbox
	return nil
}

func (s *memSession) Search(imapmail.SearchQuery) ([]string, error) {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memSession) Fetch(ids []string) ([]imapmail.RawMessage, error) {
	var out []imapmail.RawMessage
	for _, id := range ids {
		if raw, ok := s.records[id]; ok {
			out = append(out, imapmail.RawMessage{ID: id, Raw: raw})
		}
	}
	return out, nil
}

func (s *memSession) Store(ids []string, add bool, flag string) error {
	if add {
		for _, id := range ids {
			s.stores = append(s.stores, flag+":"+id)
		}
	}
	return nil
}

func (s *memSession) Copy(ids []string, mailbox string) error {
	s.copies[mailbox] = append(s.copies[mailbox], ids...)
	return nil
}

func (s *memSession) Expunge() error { s.expunges++; return nil }

func (s *memSession) List() ([]imapmail.MailboxInfo, error) {
	return []imapmail.MailboxInfo{{Name: "INBOX"}, {Name: "Trash"}}, nil
}

func (s *memSession) Create(string) error { return nil }
func (s *memSession) Remove(string) error { return nil }
func (s *memSession) Close() error        { return nil }
func (s *memSession) Logout() error       { return nil }

func newTestClient(t *testing.T, sess *memSession, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithDialer(func(imapmail.Config) (imapmail.Session, error) { return sess, nil }),
		WithRuleStore(rules.NewFileStore(filepath.Join(t.TempDir(), "rules.json"))),
	}, opts...)
	return New(Config{ChunkSize: 50}, opts...)
}

func plainRaw(from, subject, body string) []byte {
	return []byte(strings.Join([]string{
		"From: " + from,
		"To: me@example.com",
		"Subject: " + subject,
		"Date: Fri, 14 Jun 2024 10:00:00 +0000",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
		"",
	}, "\r\n"))
}

func unsubRaw(from, subject, header, post string) []byte {
	lines := []string{
		"From: " + from,
		"To: me@example.com",
		"Subject: " + subject,
		"Date: Fri, 14 Jun 2024 10:00:00 +0000",
	}
	if header != "" {
		lines = append(lines, "List-Unsubscribe: "+header)
	}
	if post != "" {
		lines = append(lines, "List-Unsubscribe-Post: "+post)
	}
	lines = append(lines,
		"Content-Type: text/plain; charset=utf-8",
		"",
		"newsletter content",
		"")
	return []byte(strings.Join(lines, "\r\n"))
}

func TestSearchNewestFirstWithPreview(t *testing.T) {
	sess := newMemSession()
	longBody := strings.Repeat("x", 600)
	sess.put("1", plainRaw("a@example.com", "oldest", "short"))
	sess.put("2", plainRaw("b@example.com", "middle", longBody))
	sess.put("3", plainRaw("c@example.com", "newest", "hello"))
	c := newTestClient(t, sess)

	out, err := c.Search(imapmail.SearchQuery{}, "", 10)

	be.Err(t, err, nil)
	be.Equal(t, len(out), 3)
	be.Equal(t, out[0].Subject, "newest")
	be.Equal(t, out[2].Subject, "oldest")
	// Long bodies are truncated with an ellipsis.
	be.Equal(t, len([]rune(out[1].Preview)), 503)
	be.True(t, strings.HasSuffix(out[1].Preview, "..."))
	be.Equal(t, sess.selected, "INBOX")
}

func TestSearchLimitKeepsMostRecent(t *testing.T) {
	sess := newMemSession()
	for i := 1; i <= 5; i++ {
		sess.put(fmt.Sprint(i), plainRaw("a@example.com", fmt.Sprintf("msg %d", i), "b"))
	}
	c := newTestClient(t, sess)

	out, err := c.Search(imapmail.SearchQuery{}, "INBOX", 2)

	be.Err(t, err, nil)
	be.Equal(t, len(out), 2)
	be.Equal(t, out[0].Subject, "msg 5")
	be.Equal(t, out[1].Subject, "msg 4")
}

func TestSearchFilteredExcludesJunk(t *testing.T) {
	sess := newMemSession()
	sess.put("1", plainRaw("friend@example.com", "lunch plans", "noon?"))
	sess.put("2", plainRaw("scam@win.example", "URGENT ACTION REQUIRED!!!!", "click here now to claim"))
	sess.put("3", plainRaw("friend@example.com", "re: lunch", "works"))
	c := newTestClient(t, sess)

	out, err := c.SearchFiltered(imapmail.SearchQuery{}, "", 10)

	be.Err(t, err, nil)
	be.Equal(t, len(out), 2)
	for _, s := range out {
		be.True(t, !strings.Contains(s.Subject, "URGENT"))
	}
}

func TestMessageNotFound(t *testing.T) {
	c := newTestClient(t, newMemSession())

	_, err := c.Message("42", "")

	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "42"))
}

func TestMessagesReportsMissing(t *testing.T) {
	sess := newMemSession()
	sess.put("1", plainRaw("a@example.com", "here", "b"))
	c := newTestClient(t, sess)

	result, err := c.Messages([]string{"1", "2"}, "")

	be.Err(t, err, nil)
	be.Equal(t, len(result.Records), 1)
	be.True(t, result.Missing["2"] != nil)
}

func TestFilterJunkAnalyzeDoesNotMutate(t *testing.T) {
	sess := newMemSession()
	sess.put("1", plainRaw("scam@win.example", "URGENT ACTION REQUIRED!!!!", "winner lottery claim"))
	sess.put("2", plainRaw("friend@example.com", "hi", "hello"))
	c := newTestClient(t, sess)

	report, err := c.FilterJunk("", 50, FilterAnalyze)

	be.Err(t, err, nil)
	be.Equal(t, report.Analyzed, 2)
	be.Equal(t, report.JunkDetected, 1)
	be.Equal(t, len(sess.copies), 0)
	be.Equal(t, sess.expunges, 0)
}

func TestFilterJunkMoveToSpam(t *testing.T) {
	sess := newMemSession()
	sess.put("1", plainRaw("scam@win.example", "URGENT ACTION REQUIRED!!!!", "winner lottery claim"))
	sess.put("2", plainRaw("friend@example.com", "hi", "hello"))
	c := newTestClient(t, sess)

	report, err := c.FilterJunk("", 50, FilterMoveToSpam)

	be.Err(t, err, nil)
	be.Equal(t, report.JunkDetected, 1)
	be.Equal(t, report.MovedToSpam.Succeeded, 1)
	be.Equal(t, sess.copies[SpamMailbox], []string{"1"})
	be.Equal(t, sess.expunges, 1)
}

func TestFilterJunkRejectsUnknownAction(t *testing.T) {
	c := newTestClient(t, newMemSession())

	_, err := c.FilterJunk("", 10, "shred")

	be.True(t, err != nil)
}

func TestFindUnsubscribe(t *testing.T) {
	sess := newMemSession()
	sess.put("1", unsubRaw("news@letters.example", "weekly",
		"<https://letters.example/unsub?u=1>, <mailto:unsub@letters.example>",
		"List-Unsubscribe=One-Click"))
	c := newTestClient(t, sess)

	report, err := c.FindUnsubscribe("1", "")

	be.Err(t, err, nil)
	be.Equal(t, len(report.Methods), 2)
	be.True(t, report.HasOneClick)
	be.Equal(t, report.From, "news@letters.example")
}

func TestScanUnsubscribe(t *testing.T) {
	sess := newMemSession()
	sess.put("1", unsubRaw("news@letters.example", "weekly", "<https://letters.example/u/1>", ""))
	sess.put("2", plainRaw("friend@example.com", "hi", "no links"))
	sess.put("3", unsubRaw("deals@shop.example", "deals", "<https://shop.example/u/2>", "List-Unsubscribe=One-Click"))
	c := newTestClient(t, sess)

	report, err := c.ScanUnsubscribe("", 30, 50)

	be.Err(t, err, nil)
	be.Equal(t, report.Scanned, 3)
	be.Equal(t, len(report.Opportunities), 2)
	be.Equal(t, report.OneClickAvailable, 1)
	// Newest first.
	be.Equal(t, report.Opportunities[0].ID, "3")
}

func TestUnsubscribeRequiresConfirm(t *testing.T) {
	c := newTestClient(t, newMemSession())

	_, err := c.Unsubscribe(context.Background(), "1", "", 0, false, 0)

	be.True(t, errors.Is(err, ErrConfirmationRequired))
}

func TestUnsubscribeExecutesSelectedMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("you are unsubscribed"))
	}))
	defer srv.Close()

	sess := newMemSession()
	sess.put("1", unsubRaw("news@letters.example", "weekly", "<"+srv.URL+"/u/1>", ""))
	c := newTestClient(t, sess, WithHTTPClient(srv.Client()))

	result, err := c.Unsubscribe(context.Background(), "1", "", 0, true, 0)

	be.Err(t, err, nil)
	be.True(t, result.Success)
	be.True(t, result.Confirmed)
}

func TestUnsubscribeMethodIndexOutOfRange(t *testing.T) {
	sess := newMemSession()
	sess.put("1", unsubRaw("news@letters.example", "weekly", "<https://letters.example/u/1>", ""))
	c := newTestClient(t, sess)

	_, err := c.Unsubscribe(context.Background(), "1", "", 5, true, 0)

	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "out of range"))
}

func TestMailingListSenders(t *testing.T) {
	sess := newMemSession()
	sess.put("1", plainRaw("noreply@shop.example", "sale one", "x"))
	sess.put("2", plainRaw("noreply@shop.example", "sale two", "x"))
	sess.put("3", plainRaw("noreply@shop.example", "sale three", "x"))
	sess.put("4", plainRaw("friend@example.com", "hi", "x"))
	c := newTestClient(t, sess)

	stats, err := c.MailingListSenders("", 30, 2)

	be.Err(t, err, nil)
	be.Equal(t, len(stats), 1)
	be.Equal(t, stats[0].Sender, "noreply@shop.example")
	be.Equal(t, stats[0].Count, 3)
	be.True(t, stats[0].LikelyMailingList)
	be.Equal(t, len(stats[0].SampleSubjects), 3)
}

func TestBulkMoveAndDelete(t *testing.T) {
	sess := newMemSession()
	c := newTestClient(t, sess)

	moved, err := c.BulkMove([]string{"1", "2"}, "INBOX", "Archive")
	be.Err(t, err, nil)
	be.Equal(t, moved.Succeeded, 2)
	be.Equal(t, sess.copies["Archive"], []string{"1", "2"})

	deleted, err := c.BulkDelete([]string{"3"}, "INBOX", false)
	be.Err(t, err, nil)
	be.Equal(t, deleted.Succeeded, 1)
	be.Equal(t, sess.copies[imapmail.TrashMailbox], []string{"3"})
}

func TestRulesEndToEnd(t *testing.T) {
	sess := newMemSession()
	sess.put("1", plainRaw("bot@news.example.com", "daily digest", "content"))
	sess.put("2", plainRaw("friend@example.com", "hi", "hello"))
	c := newTestClient(t, sess)

	_, err := c.CreateRule("archive news",
		[]rules.Condition{{Kind: rules.CondFromContains, Value: "news.example"}},
		[]rules.Action{{Kind: rules.ActionMoveToFolder, Value: "Archive"}, {Kind: rules.ActionMarkAsRead}},
		true)
	be.Err(t, err, nil)

	result, err := c.ApplyRules("", 0)

	be.Err(t, err, nil)
	be.Equal(t, result.Processed, 2)
	be.Equal(t, result.Matched, 1)
	be.Equal(t, sess.copies["Archive"], []string{"1"})
	be.Equal(t, sess.stores[0], imapmail.FlagSeen+":1")

	listed, err := c.Rules()
	be.Err(t, err, nil)
	be.Equal(t, listed[0].EmailsProcessed, 1)
	be.True(t, !listed[0].LastApplied.IsZero())
}

func TestCreateRuleFailsClosed(t *testing.T) {
	c := newTestClient(t, newMemSession())

	_, err := c.CreateRule("bad",
		[]rules.Condition{{Kind: "sniff_test"}},
		[]rules.Action{{Kind: rules.ActionMarkAsRead}},
		true)

	be.True(t, errors.Is(err, rules.ErrInvalidCondition))
	listed, listErr := c.Rules()
	be.Err(t, listErr, nil)
	be.Equal(t, len(listed), 0)
}

func TestMailboxes(t *testing.T) {
	c := newTestClient(t, newMemSession())

	boxes, err := c.Mailboxes()

	be.Err(t, err, nil)
	be.Equal(t, len(boxes), 2)
	be.Equal(t, boxes[0].Name, "INBOX")
}
