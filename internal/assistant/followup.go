package assistant

import "strings"

// DefaultMinCommandWords is the word count below which an utterance is
// considered too short to dispatch without a follow-up capture.
const DefaultMinCommandWords = 4

var (
	trailingNouns = map[string]bool{
		"youtube": true, "video": true, "videos": true,
		"link": true, "links": true, "learning": true, "learn": true,
	}

	prepositions = map[string]bool{
		"for": true, "about": true, "on": true, "of": true, "to": true,
		"with": true, "regarding": true, "concerning": true,
	}

	incompleteLeadIns = []string{
		"tell me about",
		"can you",
		"could you",
		"i want to",
		"i want",
		"show me",
		"what is",
		"how to",
		"search for",
		"look up",
	}
)

// IsQuickCommand reports whether utterance is a built-in command that is
// complete however short it is.
func IsQuickCommand(utterance string) bool {
	norm := Normalize(utterance)
	if norm == "" {
		return false
	}
	if editorOpenPhrases[norm] || editorClosePhrases[norm] {
		return true
	}
	if _, ok := navigationShortcuts[norm]; ok {
		return true
	}
	if hasVerb(norm, "play") || hasVerb(norm, "search") {
		return true
	}
	return IsGoodbye(norm)
}

// NeedsFollowup reports whether utterance looks cut off: too few words or an
// ending that cannot stand on its own. Quick commands never need one.
func NeedsFollowup(utterance string, minWords int) bool {
	if IsQuickCommand(utterance) {
		return false
	}
	if minWords <= 0 {
		minWords = DefaultMinCommandWords
	}
	words := Words(utterance)
	if len(words) < minWords {
		return true
	}

	last := words[len(words)-1]
	if trailingNouns[last] || prepositions[last] {
		return true
	}
	if len(words) >= 2 && len(last) <= 3 && prepositions[words[len(words)-2]] {
		return true
	}

	norm := strings.Join(words, " ")
	for _, lead := range incompleteLeadIns {
		if norm == lead || strings.HasSuffix(norm, " "+lead) {
			return true
		}
	}
	return false
}
