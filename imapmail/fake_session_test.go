package imapmail

import (
	"fmt"
	"sort"
	"strings"
)

// fakeSession is an in-memory Session for tests. Messages live in records;
// failure modes are toggled per test.
type fakeSession struct {
	records map[string][]byte

	// failChunkFetch fails any Fetch addressing more than one id.
	failChunkFetch bool
	// failFetchIDs always fail, even when fetched alone.
	failFetchIDs map[string]bool
	// failChunkStore fails any Store addressing more than one id.
	failChunkStore bool
	// failStoreIDs always fail to store, even alone.
	failStoreIDs map[string]bool
	// failCopyIDs fail any Copy whose id set includes them.
	failCopyIDs map[string]bool
	failExpunge bool

	fetchCalls  [][]string
	storeCalls  []storeCall
	copyCalls   []copyCall
	expunges    int
	selected    string
	readOnly    bool
	closed      bool
	loggedOut   bool
	selectErr   error
	searchIDs   []string
	mailboxes   []string
	createdBox  []string
	removedBox  []string
}

type storeCall struct {
	ids  []string
	add  bool
	flag string
}

type copyCall struct {
	ids     []string
	mailbox string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		records:      map[string][]byte{},
		failFetchIDs: map[string]bool{},
		failStoreIDs: map[string]bool{},
		failCopyIDs:  map[string]bool{},
	}
}

func (s *fakeSession) put(id string, raw []byte) {
	s.records[id] = raw
}

func (s *fakeSession) Select(mailbox string, readOnly bool) error {
	if s.selectErr != nil {
		return s.selectErr
	}
	s.selected = mailbox
	s.readOnly = readOnly
	return nil
}

func (s *fakeSession) Search(q SearchQuery) ([]string, error) {
	if s.searchIDs != nil {
		return s.searchIDs, nil
	}
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fakeSession) Fetch(ids []string) ([]RawMessage, error) {
	s.fetchCalls = append(s.fetchCalls, append([]string(nil), ids...))
	if s.failChunkFetch && len(ids) > 1 {
		return nil, fmt.Errorf("fetch of %d ids refused", len(ids))
	}
	var out []RawMessage
	for _, id := range ids {
		if s.failFetchIDs[id] {
			if len(ids) == 1 {
				return nil, fmt.Errorf("message %s unavailable", id)
			}
			continue
		}
		raw, ok := s.records[id]
		if !ok {
			continue
		}
		out = append(out, RawMessage{ID: id, Raw: raw})
	}
	return out, nil
}

func (s *fakeSession) Store(ids []string, add bool, flag string) error {
	if s.failChunkStore && len(ids) > 1 {
		return fmt.Errorf("store of %d ids refused", len(ids))
	}
	for _, id := range ids {
		if s.failStoreIDs[id] {
			return fmt.Errorf("store %s refused", id)
		}
	}
	s.storeCalls = append(s.storeCalls, storeCall{
		ids:  append([]string(nil), ids...),
		add:  add,
		flag: flag,
	})
	return nil
}

func (s *fakeSession) Copy(ids []string, mailbox string) error {
	for _, id := range ids {
		if s.failCopyIDs[id] {
			return fmt.Errorf("copy %s refused", id)
		}
	}
	s.copyCalls = append(s.copyCalls, copyCall{
		ids:     append([]string(nil), ids...),
		mailbox: mailbox,
	})
	return nil
}

func (s *fakeSession) Expunge() error {
	if s.failExpunge {
		return fmt.Errorf("expunge refused")
	}
	s.expunges++
	return nil
}

func (s *fakeSession) List() ([]MailboxInfo, error) {
	out := make([]MailboxInfo, 0, len(s.mailboxes))
	for _, name := range s.mailboxes {
		out = append(out, MailboxInfo{Name: name, Delimiter: "/"})
	}
	return out, nil
}

func (s *fakeSession) Create(mailbox string) error {
	s.createdBox = append(s.createdBox, mailbox)
	return nil
}

func (s *fakeSession) Remove(mailbox string) error {
	s.removedBox = append(s.removedBox, mailbox)
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSession) Logout() error {
	s.loggedOut = true
	return nil
}

// flagged returns ids that had flag added, in call order, without duplicates.
func (s *fakeSession) flagged(flag string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, call := range s.storeCalls {
		if !call.add || call.flag != flag {
			continue
		}
		for _, id := range call.ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// copiedTo returns ids copied into mailbox, in call order.
func (s *fakeSession) copiedTo(mailbox string) []string {
	var out []string
	for _, call := range s.copyCalls {
		if call.mailbox != mailbox {
			continue
		}
		out = append(out, call.ids...)
	}
	return out
}

// chunkFetchCount counts Fetch calls addressing more than one id.
func (s *fakeSession) chunkFetchCount() int {
	n := 0
	for _, call := range s.fetchCalls {
		if len(call) > 1 {
			n++
		}
	}
	return n
}

// rawMessage assembles a minimal single-part RFC 822 message for tests.
func rawMessage(from, to, subject, date, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	if date != "" {
		fmt.Fprintf(&b, "Date: %s\r\n", date)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// rawMultipartMessage assembles a multipart/alternative message with plain
// and HTML parts, optional unsubscribe headers, and an optional attachment.
func rawMultipartMessage(from, subject, textBody, htmlBody, listUnsub, listUnsubPost string, attachment bool) []byte {
	const boundary = "b0undary42"
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	b.WriteString("To: me@example.com\r\n")
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n")
	if listUnsub != "" {
		fmt.Fprintf(&b, "List-Unsubscribe: %s\r\n", listUnsub)
	}
	if listUnsubPost != "" {
		fmt.Fprintf(&b, "List-Unsubscribe-Post: %s\r\n", listUnsubPost)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(textBody)
	b.WriteString("\r\n")

	if htmlBody != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(htmlBody)
		b.WriteString("\r\n")
	}

	if attachment {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: application/pdf\r\n")
		b.WriteString("Content-Disposition: attachment; filename=\"invoice.pdf\"\r\n\r\n")
		b.WriteString("%PDF-1.4 fake\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
