// Package imapmail provides the IMAP transport layer for mailbox
// maintenance: scoped session acquisition, chunked batch fetching with
// per-item fallback, and grouped bulk mutations.
//
// The package is built around a narrow Session interface so that higher
// layers (and tests) never touch the wire protocol directly. A Gateway opens
// exactly one authenticated session around each logical operation and
// guarantees mailbox close and logout on every exit path.
//
// Message identifiers are opaque decimal strings scoped to the currently
// selected mailbox. They are only comparable within a single session.
package imapmail
