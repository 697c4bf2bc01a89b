// Package normalize reduces raw company names to canonical comparison keys.
//
// Two raw names that normalize to the same key are treated as the same
// company by the exact match tier, so every rule here is deliberately
// conservative: the rules only remove decoration (case, punctuation,
// diacritics, legal suffixes) and expand a fixed set of abbreviations that
// filing databases shorten inconsistently.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key is the canonical comparison form of a raw company name. Keys are
// lowercase, space-separated tokens with punctuation, diacritics, and
// trailing legal suffixes removed.
type Key string

// Empty is the reserved key for names that normalize to nothing
// (empty or whitespace-only input).
const Empty Key = ""

// Abbreviations that source databases shorten inconsistently. Expanded on
// token boundaries before suffix stripping so that "Acme Corp" and
// "Acme Corporation" meet at the same key.
var abbreviations = map[string]string{
	"intl": "international",
	"natl": "national",
	"corp": "corporation",
	"inc":  "incorporated",
	"mfg":  "manufacturing",
	"tech": "technology",
	"sys":  "systems",
}

// Legal-entity suffixes stripped only when they are trailing tokens.
// "Co" embedded mid-name ("Co Steel") is part of the name and stays.
var legalSuffixes = map[string]bool{
	"incorporated": true,
	"corporation":  true,
	"company":      true,
	"limited":      true,
	"group":        true,
	"co":           true,
	"ltd":          true,
	"llc":          true,
	"plc":          true,
	"sa":           true,
	"nv":           true,
	"gmbh":         true,
	"ag":           true,
	"kk":           true,
	"holdings":     true,
	"holding":      true,
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name maps a raw company name to its canonical key. It is total: no input
// is an error, and empty or whitespace-only input maps to Empty.
func Name(raw string) Key {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Empty
	}

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "'", "")

	// Punctuation becomes token boundaries. Hyphenated names split into
	// their parts so "Hewlett-Packard" and "Hewlett Packard" agree.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	if len(tokens) == 0 {
		return Empty
	}

	for i, tok := range tokens {
		if full, ok := abbreviations[tok]; ok {
			tokens[i] = full
		}
	}

	// Strip trailing legal suffixes, but never down to nothing: a name
	// that is all suffix tokens ("Co Ltd") keeps its first token rather
	// than collapsing into the reserved empty key.
	for len(tokens) > 1 && legalSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	return Key(strings.Join(tokens, " "))
}

// Tokens returns the key's space-separated tokens. Empty keys yield nil.
func (k Key) Tokens() []string {
	if k == Empty {
		return nil
	}
	return strings.Fields(string(k))
}
