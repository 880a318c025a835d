// Package mailsweep is a lightweight index for the subpackages in this module.
//
// This root package is documentation-only. Import specific subpackages to use
// concrete helpers.
//
// Available subpackages:
//   - github.com/mailsweep/mailsweep/imapmail
//     IMAP session management, chunked batch fetching, and bulk mutations.
//   - github.com/mailsweep/mailsweep/junk
//     Heuristic junk-mail scoring against configurable pattern sets.
//   - github.com/mailsweep/mailsweep/unsub
//     Unsubscribe-link discovery and execution.
//   - github.com/mailsweep/mailsweep/rules
//     Persistent filter rules and the engine that applies them in bulk.
//   - github.com/mailsweep/mailsweep/send
//     Outbound SMTP delivery with reply threading.
//   - github.com/mailsweep/mailsweep/sweep
//     The high-level client composing all of the above.
//   - github.com/mailsweep/mailsweep/browser
//     Opening URLs (for example, unsubscribe pages) in the local browser.
//   - github.com/mailsweep/mailsweep/config
//     Configuration loading from file and environment.
//
// Discovery workflow:
//   - Run: go doc github.com/mailsweep/mailsweep
//   - Then drill in with:
//     go doc github.com/mailsweep/mailsweep/sweep
//     go doc github.com/mailsweep/mailsweep/imapmail
//     go doc github.com/mailsweep/mailsweep/rules
package mailsweep
