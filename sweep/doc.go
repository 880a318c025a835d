// Package sweep composes the mailbox-maintenance toolkit behind one client:
// search and hydration, bulk move/mark/delete, junk analysis and filtering,
// unsubscribe discovery and execution, persistent filter rules, mailbox
// administration, and outbound send.
//
// Every operation opens its own IMAP session through the gateway and cleans
// it up before returning; the client holds no connection state between
// calls. Chunked work inside an operation runs strictly sequentially within
// that one session.
package sweep
