package match

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/joelkehle/entitymatch/internal/normalize"
)

// tokenSetScore scores two canonical keys 0-100 using a token-set ratio:
// both keys are split into token sets, and the score is the best edit-based
// similarity among the sorted intersection and the two intersection-plus-
// remainder strings. Token order differences and one-sided extra tokens
// ("Acme" vs "Acme Industries Worldwide") are forgiven; genuinely different
// tokens are not.
func tokenSetScore(a, b normalize.Key) int {
	if a == normalize.Empty || b == normalize.Empty {
		return 0
	}
	if a == b {
		return 100
	}

	setA := tokenSet(a)
	setB := tokenSet(b)

	var common, onlyA, onlyB []string
	for tok := range setA {
		if setB[tok] {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if !setA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	full1 := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	full2 := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := editScore(full1, full2)
	if base != "" {
		if s := editScore(base, full1); s > best {
			best = s
		}
		if s := editScore(base, full2); s > best {
			best = s
		}
	}
	return best
}

// editScore is the normalized Levenshtein similarity of two strings on a
// 0-100 scale.
func editScore(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}
	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}
	if maxLen == 0 {
		return 100
	}
	distance := levenshtein.ComputeDistance(s1, s2)
	return int(100 * (1 - float64(distance)/float64(maxLen)))
}

func tokenSet(k normalize.Key) map[string]bool {
	set := map[string]bool{}
	for _, tok := range k.Tokens() {
		set[tok] = true
	}
	return set
}

// commonTokenCount is the tie-break metric: the number of tokens two keys
// share.
func commonTokenCount(a, b normalize.Key) int {
	setA := tokenSet(a)
	n := 0
	for _, tok := range b.Tokens() {
		if setA[tok] {
			n++
		}
	}
	return n
}
