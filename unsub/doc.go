// Package unsub discovers and executes unsubscribe mechanisms.
//
// Discovery walks three sources in priority order: the List-Unsubscribe
// header (RFC 2369, with the RFC 8058 one-click upgrade), anchor tags in the
// HTML body, and bare URLs in the text body. Duplicate targets are dropped
// first-wins, so the header-derived entry survives when the same URL also
// appears in the body.
//
// Execution performs the HTTP request (POST for one-click, GET otherwise)
// with browser-like headers and reports success plus whether the response
// text contained a confirmation phrase. Mailto methods are executed through
// an optional MailtoSender; without one they report as requiring manual
// action.
package unsub
