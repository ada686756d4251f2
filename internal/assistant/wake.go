package assistant

import "strings"

type WakeResult int

const (
	WakeNone WakeResult = iota
	WakeDetected
	WakeExit
)

func (r WakeResult) String() string {
	switch r {
	case WakeDetected:
		return "wake"
	case WakeExit:
		return "exit"
	default:
		return "none"
	}
}

// WakeThreshold is the minimum Similarity for a fuzzy wake match.
const WakeThreshold = 0.82

var (
	wakePhrases = []string{"hey sagar", "sagar", "multihat", "hello"}
	exitTerms   = []string{"exit", "quit", "stop", "close assistant"}
)

// ClassifyWake inspects every transcript alternative of one short capture.
// An exit term in any alternative takes precedence over a wake phrase.
func ClassifyWake(candidates []string) WakeResult {
	for _, c := range candidates {
		if IsExitCommand(c) {
			return WakeExit
		}
	}
	for _, c := range candidates {
		if IsWakeWord(c) {
			return WakeDetected
		}
	}
	return WakeNone
}

// IsExitCommand matches exit terms as whole words, never as substrings.
func IsExitCommand(text string) bool {
	words := Words(text)
	if len(words) == 0 {
		return false
	}
	for _, term := range exitTerms {
		if containsPhrase(words, term) {
			return true
		}
	}
	return false
}

// IsWakeWord tries an exact match, then a contained phrase, then the fuzzy
// ratio, across all wake phrases for each step.
func IsWakeWord(text string) bool {
	norm := Normalize(text)
	if norm == "" {
		return false
	}
	for _, w := range wakePhrases {
		if norm == w {
			return true
		}
	}
	for _, w := range wakePhrases {
		if strings.Contains(norm, w) {
			return true
		}
	}
	for _, w := range wakePhrases {
		if Similarity(norm, w) >= WakeThreshold {
			return true
		}
	}
	return false
}
