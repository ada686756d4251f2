package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func frame(level float32) []float32 {
	f := make([]float32, frameSize)
	for i := range f {
		f[i] = level
	}
	return f
}

func TestFrameRMS(t *testing.T) {
	assert.InDelta(t, 0.5, frameRMS(frame(0.5)), 1e-6)
	assert.InDelta(t, 0.5, frameRMS([]float32{0.5, -0.5}), 1e-6)
	assert.Zero(t, frameRMS(nil))
}

func TestAmbientThreshold(t *testing.T) {
	assert.InDelta(t, 0.03, ambientThreshold(0.02), 1e-9)
	assert.Equal(t, minThreshRMS, ambientThreshold(0.001))
}

func TestPhraseGate_NoSpeechBeforeTimeout(t *testing.T) {
	g := newPhraseGate(0.1, 100*time.Millisecond, 2*time.Second)

	done := false
	n := 0
	for !done {
		done = g.feed(frame(0.01))
		n++
	}

	assert.Equal(t, 5, n)
	assert.False(t, g.speaking)
	assert.Empty(t, g.out)
}

func TestPhraseGate_EndsOnSilence(t *testing.T) {
	g := newPhraseGate(0.1, time.Second, 10*time.Second)

	for i := 0; i < 3; i++ {
		assert.False(t, g.feed(frame(0.01)))
	}
	for i := 0; i < 10; i++ {
		assert.False(t, g.feed(frame(0.5)))
	}

	silent := 0
	for !g.feed(frame(0.01)) {
		silent++
	}

	assert.True(t, g.speaking)
	assert.Equal(t, g.silenceFrames-1, silent)
	assert.Len(t, g.out, (10+g.silenceFrames)*frameSize)
}

func TestPhraseGate_PhraseLimit(t *testing.T) {
	g := newPhraseGate(0.1, time.Second, 200*time.Millisecond)

	n := 0
	for !g.feed(frame(0.5)) {
		n++
	}

	assert.Equal(t, 9, n)
	assert.Len(t, g.out, 10*frameSize)
}

func TestPhraseGate_ShortPauseKeepsRecording(t *testing.T) {
	g := newPhraseGate(0.1, time.Second, 10*time.Second)

	g.feed(frame(0.5))
	for i := 0; i < g.silenceFrames-1; i++ {
		assert.False(t, g.feed(frame(0.0)))
	}
	assert.False(t, g.feed(frame(0.5)))
	assert.Zero(t, g.silent)
}
