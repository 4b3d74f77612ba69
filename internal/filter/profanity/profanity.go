// Package profanity implements the profanity lexicon oracle: an exact
// set-membership matcher loaded once from a newline-delimited lexicon file,
// enriched with a phonetic fuzzy fallback so a mis-transcribed word close
// to a lexicon entry still gets caught.
package profanity

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.85
)

// Option configures a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetic candidate to be accepted by [Matcher.ContainsFuzzy]. Default 0.85
// — deliberately stricter than free-text entity matching, since a false
// positive here mutes audio the exact contract would have let through.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) { m.phoneticThreshold = threshold }
}

// Matcher is the profanity lexicon oracle. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	exact             map[string]struct{}
	entries           []string // for phonetic scanning
	codes             []map[string]struct{}
	phoneticThreshold float64
}

// New builds a Matcher from an already-normalized set of lexicon entries
// (bigram concatenations included, per §4.7).
func New(entries []string, opts ...Option) *Matcher {
	m := &Matcher{
		exact:             make(map[string]struct{}, len(entries)),
		phoneticThreshold: defaultPhoneticThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	for _, e := range entries {
		e = Normalize(e)
		if e == "" {
			continue
		}
		if _, ok := m.exact[e]; ok {
			continue
		}
		m.exact[e] = struct{}{}
		m.entries = append(m.entries, e)
		m.codes = append(m.codes, doubleMetaphoneCodes(e))
	}
	return m
}

// Load reads a newline-delimited lexicon file: UTF-8 text, one token per
// line, blank lines and lines starting with "#" ignored.
func Load(path string, opts ...Option) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("profanity: open lexicon: %w", err)
	}
	defer f.Close()
	return parse(f, opts...)
}

func parse(r io.Reader, opts ...Option) (*Matcher, error) {
	var entries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("profanity: read lexicon: %w", err)
	}
	return New(entries, opts...), nil
}

// Normalize lowercases text and strips all non-alphanumeric, non-space
// characters, matching the normalization the censor applies before lookup.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Contains reports whether normalizedWord (already normalized by the
// caller) is an exact lexicon entry. This is the §4.7 contract the Censor
// relies on.
func (m *Matcher) Contains(normalizedWord string) bool {
	_, ok := m.exact[normalizedWord]
	return ok
}

// ContainsFuzzy reports whether normalizedWord is either an exact match or
// phonetically close (Double Metaphone overlap plus a Jaro-Winkler score at
// or above the configured threshold) to a lexicon entry. Enrichment beyond
// the exact §4.7 contract, for recognizer misspellings of known profanity.
func (m *Matcher) ContainsFuzzy(normalizedWord string) bool {
	if m.Contains(normalizedWord) {
		return true
	}
	if normalizedWord == "" {
		return false
	}

	wordCodes := doubleMetaphoneCodes(normalizedWord)
	for i, entry := range m.entries {
		if !codesOverlap(wordCodes, m.codes[i]) {
			continue
		}
		if matchr.JaroWinkler(normalizedWord, entry, false) >= m.phoneticThreshold {
			return true
		}
	}
	return false
}

func doubleMetaphoneCodes(word string) map[string]struct{} {
	p, s := matchr.DoubleMetaphone(word)
	codes := make(map[string]struct{}, 2)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
