package junk

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mailsweep/mailsweep/imapmail"
)

// Likelihood is the banded junk verdict.
type Likelihood string

const (
	LikelihoodUnlikely Likelihood = "unlikely"
	LikelihoodLow      Likelihood = "low"
	LikelihoodMedium   Likelihood = "medium"
	LikelihoodHigh     Likelihood = "high"
)

// likelyJunkThreshold is the score at which a message counts as junk for
// filtering purposes. It coincides with the medium band.
const likelyJunkThreshold = 2

// Analysis is the junk verdict for one message. Indicators name every signal
// that contributed to the score.
type Analysis struct {
	ID           string     `json:"id"`
	Score        int        `json:"score"`
	Likelihood   Likelihood `json:"likelihood"`
	IsLikelyJunk bool       `json:"is_likely_junk"`
	Indicators   []string   `json:"indicators,omitempty"`
}

// Classifier scores messages against a pattern set. It is stateless and safe
// for concurrent use.
type Classifier struct {
	patterns PatternSet
}

// NewClassifier returns a classifier over patterns.
func NewClassifier(patterns PatternSet) *Classifier {
	return &Classifier{patterns: patterns}
}

// Analyze scores one hydrated message. Adding signals can only raise the
// score, never lower it.
func (c *Classifier) Analyze(msg imapmail.MessageRecord) Analysis {
	subject := strings.ToLower(msg.Subject)
	sender := strings.ToLower(msg.From)
	body := strings.ToLower(msg.Body)

	analysis := Analysis{ID: msg.ID}
	for _, p := range c.patterns.Subject {
		if p.MatchString(subject) {
			analysis.Score += 2
			analysis.Indicators = append(analysis.Indicators, "suspicious subject pattern: "+p.String())
		}
	}
	for _, p := range c.patterns.Sender {
		if p.MatchString(sender) {
			analysis.Score += 1
			analysis.Indicators = append(analysis.Indicators, "suspicious sender pattern: "+p.String())
		}
	}
	for _, p := range c.patterns.Body {
		if p.MatchString(body) {
			analysis.Score += 2
			analysis.Indicators = append(analysis.Indicators, "suspicious body content: "+p.String())
		}
	}

	// Caps ratio is computed on the original-case subject.
	if runes := []rune(msg.Subject); len(runes) > 10 {
		upper := 0
		for _, r := range runes {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if float64(upper)/float64(len(runes)) > 0.5 {
			analysis.Score++
			analysis.Indicators = append(analysis.Indicators, "excessive capital letters in subject")
		}
	}

	exclamations := strings.Count(msg.Subject, "!") + strings.Count(truncateRunes(msg.Body, 500), "!")
	if exclamations > 3 {
		analysis.Score++
		analysis.Indicators = append(analysis.Indicators, fmt.Sprintf("excessive exclamation marks (%d)", exclamations))
	}

	analysis.Likelihood = bandFor(analysis.Score)
	analysis.IsLikelyJunk = analysis.Score >= likelyJunkThreshold
	return analysis
}

func bandFor(score int) Likelihood {
	switch {
	case score >= 4:
		return LikelihoodHigh
	case score >= 2:
		return LikelihoodMedium
	case score >= 1:
		return LikelihoodLow
	default:
		return LikelihoodUnlikely
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
