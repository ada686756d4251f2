package assistant

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const tokenPunct = ".,!?;:"

// Normalize lower-cases s, strips punctuation around every token and
// collapses whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.Join(Words(s), " ")
}

// Words returns the normalized tokens of s.
func Words(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, tokenPunct)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Similarity is the Ratcliff/Obershelp ratio of a and b over characters:
// 2*M / (len(a)+len(b)) where M is the size of the matching blocks.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// containsPhrase reports whether phrase occurs in words as a contiguous
// run of whole words.
func containsPhrase(words []string, phrase string) bool {
	target := strings.Fields(phrase)
	if len(target) == 0 || len(target) > len(words) {
		return false
	}
	for i := 0; i+len(target) <= len(words); i++ {
		match := true
		for j, w := range target {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// primaryCandidate picks the alternative with the most words. The first
// one wins on ties.
func primaryCandidate(candidates []string) string {
	best, bestWords := "", -1
	for _, c := range candidates {
		n := len(strings.Fields(c))
		if n > bestWords {
			best, bestWords = c, n
		}
	}
	return strings.TrimSpace(best)
}
