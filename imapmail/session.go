package imapmail

import (
	"errors"
	"strings"
	"time"
)

// SearchQuery is the typed selection surface for server-side search. Zero
// fields are omitted from the generated criteria; a zero query matches every
// message in the selected mailbox.
type SearchQuery struct {
	// Text matches anywhere in headers or body.
	Text string
	// From, To and Subject match the corresponding headers.
	From    string
	To      string
	Subject string
	// Unseen restricts the search to messages without the seen flag.
	Unseen bool
	// Since and Before bound the internal message date.
	Since  time.Time
	Before time.Time
}

// RawMessage is one fetched message prior to hydration.
type RawMessage struct {
	ID  string
	Raw []byte
}

// MailboxInfo describes one mailbox known to the server.
type MailboxInfo struct {
	Name       string   `json:"name"`
	Delimiter  string   `json:"delimiter,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
}

// Standard flags accepted by Store.
const (
	FlagSeen    = `\Seen`
	FlagFlagged = `\Flagged`
	FlagDeleted = `\Deleted`
)

// Session is the narrow transport contract higher layers operate against.
// Identifiers are opaque decimal strings valid only within this session and
// the currently selected mailbox. Implementations do not need to be safe for
// concurrent use; callers issue commands strictly sequentially.
type Session interface {
	// Select opens a mailbox. Fetch, Search, Store, Copy and Expunge require
	// a selected mailbox.
	Select(mailbox string, readOnly bool) error
	// Search returns the identifiers matching q, in mailbox order.
	Search(q SearchQuery) ([]string, error)
	// Fetch retrieves the full raw content of the identified messages. The
	// response may omit identifiers the server no longer knows.
	Fetch(ids []string) ([]RawMessage, error)
	// Store adds (add=true) or removes a flag on the identified messages.
	Store(ids []string, add bool, flag string) error
	// Copy copies the identified messages into another mailbox.
	Copy(ids []string, mailbox string) error
	// Expunge permanently removes messages flagged deleted from the selected
	// mailbox.
	Expunge() error
	// List enumerates all mailboxes.
	List() ([]MailboxInfo, error)
	// Create and Remove administer mailboxes.
	Create(mailbox string) error
	Remove(mailbox string) error
	// Close closes the selected mailbox without expunging.
	Close() error
	// Logout ends the session.
	Logout() error
}

// DialFunc opens an authenticated session against cfg.
type DialFunc func(cfg Config) (Session, error)

// Gateway opens exactly one session around each logical operation. Sessions
// are never shared or reused across operations.
type Gateway struct {
	cfg  Config
	dial DialFunc
}

// NewGateway returns a gateway dialing the live IMAP transport in cfg.
func NewGateway(cfg Config) *Gateway {
	return NewGatewayDial(cfg, Dial)
}

// NewGatewayDial returns a gateway using a custom dial function. Tests and
// alternative transports use this.
func NewGatewayDial(cfg Config, dial DialFunc) *Gateway {
	return &Gateway{cfg: cfg, dial: dial}
}

// WithSession runs op inside a fresh session without selecting a mailbox.
// Logout is guaranteed on every exit path.
func (g *Gateway) WithSession(op func(Session) error) error {
	sess, err := g.dial(g.cfg)
	if err != nil {
		return &TransportError{Op: "connect", Err: err}
	}
	defer sess.Logout()
	return op(sess)
}

// WithMailbox selects mailbox inside a fresh session and runs op. The
// mailbox is closed and the session logged out on every exit path, including
// op failures. A failed select reports *MailboxError and op never runs.
func (g *Gateway) WithMailbox(mailbox string, readOnly bool, op func(Session) error) error {
	if strings.TrimSpace(mailbox) == "" {
		return &MailboxError{Mailbox: mailbox, Err: errors.New("name is required")}
	}
	sess, err := g.dial(g.cfg)
	if err != nil {
		return &TransportError{Op: "connect", Err: err}
	}
	defer sess.Logout()
	if err := sess.Select(mailbox, readOnly); err != nil {
		return &MailboxError{Mailbox: mailbox, Err: err}
	}
	defer sess.Close()
	return op(sess)
}
