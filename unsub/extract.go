package unsub

import (
	"regexp"
	"strings"

	"github.com/mailsweep/mailsweep/imapmail"
)

// Kind distinguishes how an unsubscribe method is executed.
type Kind string

const (
	KindMailto Kind = "mailto"
	KindHTTP   Kind = "http"
)

// Source records where a method was discovered.
type Source string

const (
	SourceHeader   Source = "header"
	SourceHTMLBody Source = "html_body"
	SourceTextBody Source = "text_body"
)

// Method is one discovered unsubscribe mechanism. Target is a mail address
// for KindMailto and an http(s) URL for KindHTTP.
type Method struct {
	Kind     Kind   `json:"kind"`
	Target   string `json:"target"`
	OneClick bool   `json:"one_click,omitempty"`
	Source   Source `json:"source"`
}

var (
	headerMailtoPattern = regexp.MustCompile(`<mailto:([^>]+)>`)
	headerHTTPPattern   = regexp.MustCompile(`<(https?://[^>]+)>`)

	htmlAnchorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<a[^>]*href=["']([^"']*unsubscribe[^"']*)["'][^>]*>`),
		regexp.MustCompile(`(?i)<a[^>]*href=["']([^"']*opt.?out[^"']*)["'][^>]*>`),
		regexp.MustCompile(`(?i)<a[^>]*href=["']([^"']*remove[^"']*)["'][^>]*>`),
	}

	textPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)unsubscribe.*?https?://[^\s<>"]+`),
		regexp.MustCompile(`(?i)https?://[^\s<>"]*unsubscribe[^\s<>"]*`),
		regexp.MustCompile(`(?i)https?://[^\s<>"]*opt.?out[^\s<>"]*`),
		regexp.MustCompile(`(?i)https?://[^\s<>"]*remove[^\s<>"]*`),
	}

	urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)
)

// Extract discovers the unsubscribe methods in a fully hydrated message.
// Header methods come first, then HTML anchors, then text URLs; duplicate
// targets keep the earliest occurrence.
func Extract(msg imapmail.MessageRecord) []Method {
	var methods []Method

	if header := msg.ListUnsubscribe; header != "" {
		for _, m := range headerMailtoPattern.FindAllStringSubmatch(header, -1) {
			methods = append(methods, Method{Kind: KindMailto, Target: m[1], Source: SourceHeader})
		}
		for _, m := range headerHTTPPattern.FindAllStringSubmatch(header, -1) {
			methods = append(methods, Method{Kind: KindHTTP, Target: m[1], Source: SourceHeader})
		}
	}

	// RFC 8058: the one-click marker applies to the header-derived URLs.
	if strings.Contains(msg.ListUnsubscribePost, "List-Unsubscribe=One-Click") {
		for i := range methods {
			if methods[i].Kind == KindHTTP {
				methods[i].OneClick = true
			}
		}
	}

	for _, p := range htmlAnchorPatterns {
		for _, m := range p.FindAllStringSubmatch(msg.HTMLBody, -1) {
			if strings.HasPrefix(m[1], "http") {
				methods = append(methods, Method{Kind: KindHTTP, Target: m[1], Source: SourceHTMLBody})
			}
		}
	}

	text := msg.TextBody
	if text == "" {
		text = msg.Body
	}
	for _, p := range textPatterns {
		for _, m := range p.FindAllString(text, -1) {
			if url := urlPattern.FindString(m); url != "" {
				methods = append(methods, Method{Kind: KindHTTP, Target: url, Source: SourceTextBody})
			}
		}
	}

	return dedupe(methods)
}

// HasOneClick reports whether any method supports one-click unsubscribe.
func HasOneClick(methods []Method) bool {
	for _, m := range methods {
		if m.OneClick {
			return true
		}
	}
	return false
}

func dedupe(methods []Method) []Method {
	seen := make(map[string]struct{}, len(methods))
	out := make([]Method, 0, len(methods))
	for _, m := range methods {
		if _, ok := seen[m.Target]; ok {
			continue
		}
		seen[m.Target] = struct{}{}
		out = append(out, m)
	}
	return out
}
