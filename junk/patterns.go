package junk

import "regexp"

// PatternSet holds the regex heuristics the classifier scores against.
// Patterns are matched against lowercased text, so they should be written in
// lowercase. The set is plain data: callers may build their own or extend
// DefaultPatterns.
type PatternSet struct {
	// Subject patterns score +2 each.
	Subject []*regexp.Regexp
	// Sender patterns score +1 each.
	Sender []*regexp.Regexp
	// Body patterns score +2 each.
	Body []*regexp.Regexp
}

var defaultSubjectPatterns = []string{
	`urgent.*action.*required`,
	`congratulations.*won`,
	`free.*money|money.*free`,
	`limited.*time.*offer`,
	`act.*now|click.*here`,
	`viagra|cialis|pharmacy`,
	`increase.*size`,
	`lose.*weight.*fast`,
	`make.*money.*fast`,
	`nigerian.*prince`,
	`tax.*refund`,
	`security.*alert`,
	`re:.*re:.*re:`,
}

var defaultSenderPatterns = []string{
	`noreply@.*\.tk$`,
	`.*@.*\.ml$`,
	`.*@.*\.ga$`,
	`admin@.*`,
	`support@.*`,
	`security@.*`,
}

var defaultBodyPatterns = []string{
	`click.*here.*now`,
	`urgent.*respond`,
	`verify.*account.*immediately`,
	`suspended.*account`,
	`winner.*lottery`,
	`inheritance.*million`,
	`bitcoin.*investment`,
	`crypto.*opportunity`,
}

// DefaultPatterns returns the built-in pattern set.
func DefaultPatterns() PatternSet {
	return PatternSet{
		Subject: compileAll(defaultSubjectPatterns),
		Sender:  compileAll(defaultSenderPatterns),
		Body:    compileAll(defaultBodyPatterns),
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
