package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsFollowup(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		minWords  int
		want      bool
	}{
		{"below minimum word count", "what is the", 4, true},
		{"long enough question", "what is the weather today", 4, false},
		{"trailing noun", "show me some funny videos", 4, true},
		{"trailing youtube", "find a cooking channel on youtube", 4, true},
		{"short word after preposition", "i want to learn about go", 4, true},
		{"short word not after preposition", "tell me about the cat", 4, false},
		{"ends with lead-in", "could you please tell me about", 4, true},
		{"bare lead-in", "so can you", 2, true},
		{"ends with preposition", "give me some ideas for", 4, true},
		{"zero minimum uses default", "hi there friend", 0, true},
		{"empty utterance", "", 4, true},
		{"quick command is exempt", "open google", 4, false},
		{"three word quick command is exempt", "open stack overflow", 4, false},
		{"play is exempt", "play", 4, false},
		{"farewell is exempt", "bye", 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsFollowup(tt.utterance, tt.minWords))
		})
	}
}

func TestIsQuickCommand(t *testing.T) {
	for _, cmd := range []string{
		"open google", "Open YouTube.", "open stackoverflow", "open stack overflow",
		"open vs code", "close visual studio code",
		"play despacito", "search: weather", "goodbye", "good bye",
	} {
		assert.True(t, IsQuickCommand(cmd), cmd)
	}

	for _, cmd := range []string{"", "open the door", "what is the time", "tell me about"} {
		assert.False(t, IsQuickCommand(cmd), cmd)
	}
}

func TestFixedCommandsNeverNeedFollowup(t *testing.T) {
	for phrase := range navigationShortcuts {
		assert.False(t, NeedsFollowup(phrase, DefaultMinCommandWords), phrase)
	}
	for phrase := range editorOpenPhrases {
		assert.False(t, NeedsFollowup(phrase, DefaultMinCommandWords), phrase)
	}
	for phrase := range editorClosePhrases {
		assert.False(t, NeedsFollowup(phrase, DefaultMinCommandWords), phrase)
	}
	for _, term := range goodbyeTerms {
		assert.False(t, NeedsFollowup(term, DefaultMinCommandWords), term)
	}
}
