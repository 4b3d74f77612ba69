package asr

import "strings"

// curlyQuoteReplacer normalizes the handful of Unicode punctuation
// characters a recognizer commonly emits in place of ASCII quotes.
var curlyQuoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", // left/right single quote
	"“", "\"", "”", "\"", // left/right double quote
)

// CleanToken normalizes a single recognized token: strip parenthesized
// substrings, normalize curly quotes to ASCII, retain only alphanumerics,
// apostrophes, hyphens, and spaces, then trim.
func CleanToken(text string) string {
	text = stripParenthesized(text)
	text = curlyQuoteReplacer.Replace(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r == '\'' || r == '-' || r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// stripParenthesized removes every "(...)" substring, including the
// parentheses themselves. Unbalanced parentheses drop everything from the
// first "(" onward.
func stripParenthesized(text string) string {
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
