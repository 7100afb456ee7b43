package moderation

import (
	"regexp"
	"strings"
)

// wordPattern matches a run of word characters followed by any trailing
// punctuation or symbol characters. Whitespace between matches passes
// through untouched, so censoring never shifts token boundaries.
var wordPattern = regexp.MustCompile(`(\w+)([\p{P}\p{S}]*)`)

// Engine rewrites prohibited words into masking runs of '#'. It is
// stateless after construction and safe for concurrent use.
type Engine struct {
	prohibited map[string]struct{}
}

// NewEngine builds an Engine from the given word forms. Membership checks
// are case-insensitive.
func NewEngine(words []string) *Engine {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Engine{prohibited: set}
}

// IsProhibited reports whether the single word form is in the prohibited set.
func (e *Engine) IsProhibited(word string) bool {
	_, ok := e.prohibited[strings.ToLower(word)]
	return ok
}

// Censor replaces each prohibited word with a '#' run of equal length,
// preserving trailing punctuation and all non-word text exactly. It is
// deterministic and idempotent: a fully masked run never matches the
// prohibited set again.
func (e *Engine) Censor(text string) string {
	censored, _ := e.CensorDetect(text)
	return censored
}

// CensorDetect censors the text and reports in a single pass whether any
// prohibited word was present. Deriving the flag here avoids re-tokenizing
// the original and censored strings on the send path.
func (e *Engine) CensorDetect(text string) (string, bool) {
	matches := wordPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, false
	}

	var b strings.Builder
	b.Grow(len(text))

	offended := false
	last := 0
	for _, m := range matches {
		// m[0]:m[1] whole match, m[2]:m[3] word, m[4]:m[5] punctuation
		b.WriteString(text[last:m[0]])

		word := text[m[2]:m[3]]
		if e.IsProhibited(word) {
			offended = true
			b.WriteString(strings.Repeat("#", len(word)))
			b.WriteString(text[m[4]:m[5]])
		} else {
			b.WriteString(text[m[0]:m[1]])
		}
		last = m[1]
	}
	b.WriteString(text[last:])

	return b.String(), offended
}

// WasCensored compares the whitespace-split tokens of the original and
// censored texts and reports whether any token differs case-insensitively.
// If the token counts ever diverge the comparison stops at the shorter
// sequence; censoring preserves token boundaries so this is a defensive
// limit, not an error.
func WasCensored(original, censored string) bool {
	origTokens := strings.Fields(original)
	censTokens := strings.Fields(censored)

	n := len(origTokens)
	if len(censTokens) < n {
		n = len(censTokens)
	}
	for i := 0; i < n; i++ {
		if !strings.EqualFold(origTokens[i], censTokens[i]) {
			return true
		}
	}
	return false
}
