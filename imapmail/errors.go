package imapmail

import "fmt"

// TransportError reports a connection-level or authentication-level failure.
// It aborts the whole operation; no partial results accompany it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("imapmail: %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MailboxError reports that a named mailbox could not be selected, created,
// or removed.
type MailboxError struct {
	Mailbox string
	Err     error
}

func (e *MailboxError) Error() string {
	return fmt.Sprintf("imapmail: mailbox %q: %v", e.Mailbox, e.Err)
}

func (e *MailboxError) Unwrap() error { return e.Err }
