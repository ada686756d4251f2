package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"sagar/internal/assistant"
	"sagar/pkg/audioconv"
)

// Replay stands in for the microphone: every Capture returns the next audio
// file of a directory, in name order.
type Replay struct {
	mu    sync.Mutex
	files []string
	next  int
}

func NewReplay(dir string) (*Replay, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("replay dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !audioconv.Supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	log.Info("Replaying audio files", "dir", dir, "count", len(files))
	return &Replay{files: files}, nil
}

func (r *Replay) Calibrate(context.Context, time.Duration) error { return nil }

// Capture decodes the next file, cut to phraseLimit. Silent files yield
// ErrNoSpeech and an exhausted directory ErrSourceClosed.
func (r *Replay) Capture(ctx context.Context, _, phraseLimit time.Duration) ([]float32, error) {
	r.mu.Lock()
	if r.next >= len(r.files) {
		r.mu.Unlock()
		return nil, assistant.ErrSourceClosed
	}
	path := r.files[r.next]
	r.next++
	r.mu.Unlock()

	opt := audioconv.Options{}
	if phraseLimit > 0 {
		opt.MaxSamples = int(phraseLimit.Seconds() * audioconv.SampleRate)
	}

	pcm, err := audioconv.Decode(ctx, path, opt)
	if err != nil {
		return nil, err
	}

	log.Debug("Replayed", "file", filepath.Base(path), "samples", len(pcm))

	for i := 0; i+frameSize <= len(pcm); i += frameSize {
		if frameRMS(pcm[i:i+frameSize]) > minThreshRMS {
			return pcm, nil
		}
	}
	return nil, assistant.ErrNoSpeech
}
