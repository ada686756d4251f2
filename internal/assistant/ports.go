package assistant

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSpeech means the capture timed out before speech started.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrUnintelligible means audio was captured but produced no transcript.
	ErrUnintelligible = errors.New("speech not understood")
	// ErrTranscription means the speech-to-text backend itself failed.
	ErrTranscription = errors.New("transcription failed")
	// ErrSourceClosed means the audio source has nothing more to give.
	ErrSourceClosed = errors.New("audio source closed")
	// ErrNotInstalled means an external program could not be located.
	ErrNotInstalled = errors.New("not installed")
)

// Capturer records one phrase of mono 16 kHz PCM. It returns ErrNoSpeech
// when nothing starts within timeout and stops after phraseLimit.
type Capturer interface {
	Capture(ctx context.Context, timeout, phraseLimit time.Duration) ([]float32, error)
	Calibrate(ctx context.Context, d time.Duration) error
}

// Transcriber turns a capture into zero or more alternative transcripts.
// Backend failures are wrapped with ErrTranscription.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) ([]string, error)
}

type Speaker interface {
	Speak(text string) error
}

// Chatter is the language-model backend used for open-ended replies.
type Chatter interface {
	Complete(ctx context.Context, history []Turn, message string) (string, error)
}

type Browser interface {
	OpenURL(ctx context.Context, url string) error
}

// Editor starts and stops the external code editor.
type Editor interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
}

type SongLookup interface {
	Lookup(name string) (string, bool)
}

// Chimer plays a short cue when the wake word is recognised.
type Chimer interface {
	Chime() error
}

// Ducker lowers other audio streams while the assistant is active.
type Ducker interface {
	Duck(ctx context.Context) error
	Unduck(ctx context.Context) error
}

// Observer receives a copy of every dialogue event.
type Observer interface {
	Observe(Event)
}
