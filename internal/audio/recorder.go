package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"sagar/internal/assistant"
)

const (
	sampleRate = 16000
	frameSize  = 320 // 20ms
	frameDur   = time.Second * frameSize / sampleRate

	defaultThreshRMS = 0.015
	minThreshRMS     = 0.005
	ambientFactor    = 1.5
	silenceDuration  = 600 * time.Millisecond
)

// Recorder captures single phrases from the default input device. Speech is
// told apart from background by an RMS energy gate whose threshold Calibrate
// derives from ambient noise.
type Recorder struct {
	mu        sync.Mutex
	threshold float64
}

func NewRecorder() *Recorder { return &Recorder{threshold: defaultThreshRMS} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

func (r *Recorder) Threshold() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold
}

// Calibrate listens for d and sets the gate to the ambient level times 1.5.
func (r *Recorder) Calibrate(ctx context.Context, d time.Duration) error {
	frames := int(d / frameDur)
	if frames < 1 {
		frames = 1
	}

	var sum float64
	n := 0
	err := r.stream(ctx, func(buf []float32) bool {
		sum += frameRMS(buf)
		n++
		return n >= frames
	})
	if err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}

	th := ambientThreshold(sum / float64(n))

	r.mu.Lock()
	r.threshold = th
	r.mu.Unlock()

	log.Debug("Calibrated microphone", "threshold", th, "frames", n)
	return nil
}

// Capture waits up to timeout for speech to start and records until 600ms of
// silence or phraseLimit, whichever comes first.
func (r *Recorder) Capture(ctx context.Context, timeout, phraseLimit time.Duration) ([]float32, error) {
	g := newPhraseGate(r.Threshold(), timeout, phraseLimit)

	if err := r.stream(ctx, g.feed); err != nil {
		return nil, err
	}
	if !g.speaking {
		return nil, assistant.ErrNoSpeech
	}

	return g.out, nil
}

// stream feeds 20ms frames to fn until it returns true or ctx is done.
func (r *Recorder) stream(ctx context.Context, fn func([]float32) bool) error {
	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stream.Read(); err != nil {
			return err
		}
		if fn(buf) {
			return nil
		}
	}
}

func ambientThreshold(ambient float64) float64 {
	return math.Max(ambient*ambientFactor, minThreshRMS)
}

// phraseGate decides frame by frame where a phrase starts and ends.
type phraseGate struct {
	threshold     float64
	onsetFrames   int
	maxFrames     int
	silenceFrames int

	speaking bool
	waited   int
	silent   int
	out      []float32
}

func newPhraseGate(threshold float64, timeout, phraseLimit time.Duration) *phraseGate {
	g := &phraseGate{
		threshold:     threshold,
		onsetFrames:   int(timeout / frameDur),
		maxFrames:     int(phraseLimit / frameDur),
		silenceFrames: int(silenceDuration / frameDur),
	}
	if g.onsetFrames < 1 {
		g.onsetFrames = 1
	}
	if g.maxFrames < 1 {
		g.maxFrames = 1
	}
	return g
}

// feed consumes one frame and reports whether capture is over.
func (g *phraseGate) feed(frame []float32) bool {
	loud := frameRMS(frame) > g.threshold

	if !g.speaking {
		if !loud {
			g.waited++
			return g.waited >= g.onsetFrames
		}
		g.speaking = true
		g.out = make([]float32, 0, g.maxFrames*len(frame))
	}

	g.out = append(g.out, frame...)

	if loud {
		g.silent = 0
	} else {
		g.silent++
		if g.silent >= g.silenceFrames {
			return true
		}
	}

	return len(g.out) >= g.maxFrames*len(frame)
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
