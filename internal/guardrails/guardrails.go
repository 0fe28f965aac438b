package guardrails

import (
	"regexp"
	"strings"
)

const (
	// DefaultMaxInputLen caps sanitized input to limit prompt abuse.
	DefaultMaxInputLen = 2000
	// DefaultMaxReplyWords caps assistant replies before they reach the caller.
	DefaultMaxReplyWords = 200

	truncationMarker = "[Response truncated due to length]"
)

var injectionChars = regexp.MustCompile("[<>{}\\[\\]$`\\\\]")

// RejectionMessage is returned verbatim to callers whose question falls
// outside the allowed subject domain.
const RejectionMessage = "This assistant only answers culture-related questions. " +
	"Please rephrase your question to focus on arts, traditions, heritage, " +
	"history, or any other cultural topics."

// RuleTable holds the lexical accept rules for the topic gate. Keywords are
// matched as lowercase substrings; patterns run against the lowercased text.
type RuleTable struct {
	Keywords []string
	Patterns []*regexp.Regexp
}

// DefaultRules returns the built-in cultural-domain rule table.
func DefaultRules() RuleTable {
	return RuleTable{
		Keywords: []string{
			"culture", "cultural", "art", "arts", "music", "literature", "tradition",
			"heritage", "festival", "custom", "society", "language", "dance",
			"ritual", "belief", "museum", "history", "film", "painting",
			"architecture", "sculpture", "folklore", "mythology", "religion",
			"philosophy", "anthropology", "archaeology", "ethnic", "national identity",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(cultural|artistic|historical|traditional).*(practice|aspect|significance|context)`),
			regexp.MustCompile(`(work|piece) of (art|literature|music)`),
			regexp.MustCompile(`(historical|cultural) (event|period|figure|monument)`),
			regexp.MustCompile(`(traditional|folk) (dance|music|costume|craft)`),
			regexp.MustCompile(`^(how|what|when|where|why).*(culture|art|history|tradition)`),
		},
	}
}

// Gate is the lexical topic gate plus the input/output hygiene helpers.
// It is stateless after construction and safe for concurrent use.
type Gate struct {
	rules       RuleTable
	maxInputLen int
}

func NewGate(rules RuleTable, maxInputLen int) *Gate {
	if maxInputLen <= 0 {
		maxInputLen = DefaultMaxInputLen
	}
	return &Gate{rules: rules, maxInputLen: maxInputLen}
}

// Sanitize strips injection-prone characters and hard-truncates the input.
// It never fails and is idempotent.
func (g *Gate) Sanitize(text string) string {
	text = injectionChars.ReplaceAllString(text, "")
	if len(text) > g.maxInputLen {
		text = text[:g.maxInputLen]
	}
	return text
}

// Classify reports whether the text is in the allowed subject domain. When it
// is not, the second return value carries the user-facing explanation.
func (g *Gate) Classify(text string) (bool, string) {
	lower := strings.ToLower(text)

	for _, kw := range g.rules.Keywords {
		if strings.Contains(lower, kw) {
			return true, ""
		}
	}
	for _, p := range g.rules.Patterns {
		if p.MatchString(lower) {
			return true, ""
		}
	}
	return false, RejectionMessage
}

// EnforceOutputLength trims text to at most maxWords words, backing up to the
// nearest sentence end within the trimmed span when one exists. Inputs within
// the budget pass through untouched.
func EnforceOutputLength(text string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultMaxReplyWords
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}

	truncated := strings.Join(words[:maxWords], " ")
	end := -1
	for _, stop := range []string{".", "?", "!"} {
		if i := strings.LastIndex(truncated, stop); i > end {
			end = i
		}
	}
	if end > 0 {
		return truncated[:end+1] + " " + truncationMarker
	}
	return truncated + "... " + truncationMarker
}
