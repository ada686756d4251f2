package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"
)

type Mode int

const (
	ModeWakeWaiting Mode = iota
	ModeActiveListening
)

func (m Mode) String() string {
	if m == ModeActiveListening {
		return "active"
	}
	return "waiting"
}

type EventKind string

const (
	EventWake  EventKind = "wake"
	EventExit  EventKind = "exit"
	EventHeard EventKind = "heard"
	EventReply EventKind = "reply"
	EventMode  EventKind = "mode"
)

// Event is a dialogue milestone published to an Observer.
type Event struct {
	Kind EventKind `json:"kind"`
	Mode string    `json:"mode"`
	Text string    `json:"text,omitempty"`
	At   time.Time `json:"at"`
}

func newEvent(kind EventKind, mode Mode, text string) Event {
	return Event{Kind: kind, Mode: mode.String(), Text: text, At: time.Now()}
}

const (
	greeting     = "Sagar voice assistant starting. Say 'hey sagar' to activate."
	wakeReply    = "Yes boss. How can I assist you?"
	shutdownText = "Goodbye. Shutting down."
	interruptBye = "Goodbye."
	serviceError = "Speech service error. Please check your internet connection."

	maxFollowupCaptures = 2
)

// SessionConfig holds the capture thresholds of the dialogue loop.
type SessionConfig struct {
	ListenTimeout   time.Duration
	PhraseTimeLimit time.Duration

	WakeTimeout     time.Duration
	WakePhraseLimit time.Duration

	AmbientAdjust            time.Duration
	WakeRecalibrateEvery     int
	RecalibrateAfterFailures int

	MinCommandWords     int
	FollowupTimeout     time.Duration
	FollowupPhraseLimit time.Duration
	FollowupMaxCaptures int

	// RetryDelay is the pause after a transcription service error or an
	// unexpected capture failure.
	RetryDelay time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ListenTimeout:            20 * time.Second,
		PhraseTimeLimit:          6 * time.Second,
		WakeTimeout:              5 * time.Second,
		WakePhraseLimit:          2 * time.Second,
		AmbientAdjust:            800 * time.Millisecond,
		WakeRecalibrateEvery:     5,
		RecalibrateAfterFailures: 3,
		MinCommandWords:          DefaultMinCommandWords,
		FollowupTimeout:          4 * time.Second,
		FollowupPhraseLimit:      5 * time.Second,
		FollowupMaxCaptures:      maxFollowupCaptures,
		RetryDelay:               500 * time.Millisecond,
	}
}

// Deps are the speech collaborators of a Session. Chimer, Ducker and
// Observer are optional.
type Deps struct {
	Capturer    Capturer
	Transcriber Transcriber
	Speaker     Speaker
	Chimer      Chimer
	Ducker      Ducker
	Observer    Observer
}

// Session is the wake-word / active-listening loop. It is single threaded:
// State and Mode are only touched from Run.
type Session struct {
	cfg  SessionConfig
	deps Deps
	disp *Dispatcher

	state *State
	mode  Mode

	wakeChecks int
	failures   int
}

func NewSession(cfg SessionConfig, deps Deps, disp *Dispatcher) *Session {
	if cfg.FollowupMaxCaptures > maxFollowupCaptures {
		cfg.FollowupMaxCaptures = maxFollowupCaptures
	}
	disp.observer = deps.Observer

	return &Session{
		cfg:   cfg,
		deps:  deps,
		disp:  disp,
		state: NewState(),
		mode:  ModeWakeWaiting,
	}
}

func (s *Session) Mode() Mode { return s.mode }

func (s *Session) State() *State { return s.state }

// Run loops until an exit command is heard in wake mode, the audio source
// closes, or ctx is cancelled. A cancelled ctx is treated as an interrupt and
// answered with a spoken goodbye.
func (s *Session) Run(ctx context.Context) error {
	if s.deps.Capturer == nil || s.deps.Transcriber == nil {
		return errors.New("session needs a capturer and a transcriber")
	}

	log.Info("Assistant starting")
	s.speak(greeting)

	if err := s.calibrate(ctx); err != nil {
		log.Warn("Microphone calibration failed", "err", err)
	}

	for {
		if ctx.Err() != nil {
			return s.interrupted()
		}

		stop, err := s.step(ctx)
		switch {
		case stop:
			return nil
		case ctx.Err() != nil:
			return s.interrupted()
		case errors.Is(err, ErrSourceClosed):
			log.Info("Audio source closed")
			s.leaveActive(context.WithoutCancel(ctx))
			return nil
		case err != nil:
			log.Error("Dialogue step failed", "mode", s.mode, "err", err)
			s.pause(ctx)
		}
	}
}

// step runs one capture-and-classify iteration of the current mode.
func (s *Session) step(ctx context.Context) (stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			stop, err = false, fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	if s.mode == ModeActiveListening {
		return false, s.stepActive(ctx)
	}
	return s.stepWake(ctx)
}

func (s *Session) stepWake(ctx context.Context) (bool, error) {
	if n := s.cfg.WakeRecalibrateEvery; n > 0 && s.wakeChecks%n == 0 {
		if err := s.calibrate(ctx); err != nil {
			log.Warn("Recalibration failed", "err", err)
		}
	}
	s.wakeChecks++

	candidates, err := s.listen(ctx, s.cfg.WakeTimeout, s.cfg.WakePhraseLimit)
	if err != nil {
		return false, s.handleListenError(ctx, err, false)
	}

	log.Info("Heard (wakecheck)", "text", primaryCandidate(candidates))

	switch ClassifyWake(candidates) {
	case WakeExit:
		log.Info("Exit command received, stopping assistant")
		s.observe(EventExit, primaryCandidate(candidates))
		s.speak(shutdownText)
		return true, nil

	case WakeDetected:
		s.observe(EventWake, primaryCandidate(candidates))
		if s.deps.Chimer != nil {
			if err := s.deps.Chimer.Chime(); err != nil {
				log.Warn("Failed to play chime", "err", err)
			}
		}
		s.speak(wakeReply)
		s.enterActive(ctx)
	}

	return false, nil
}

func (s *Session) stepActive(ctx context.Context) error {
	candidates, err := s.listen(ctx, s.cfg.ListenTimeout, s.cfg.PhraseTimeLimit)
	if err != nil {
		return s.handleListenError(ctx, err, true)
	}

	command := s.extend(ctx, primaryCandidate(candidates))
	if ctx.Err() != nil {
		return ctx.Err()
	}

	log.Info("Command", "text", command)
	s.observe(EventHeard, command)

	if s.disp.Dispatch(ctx, s.state, command) {
		s.leaveActive(ctx)
	}
	return nil
}

// extend appends up to FollowupMaxCaptures follow-up captures while the
// command still looks incomplete. Failed captures end the extension.
func (s *Session) extend(ctx context.Context, command string) string {
	for i := 0; i < s.cfg.FollowupMaxCaptures; i++ {
		if !NeedsFollowup(command, s.cfg.MinCommandWords) {
			break
		}

		log.Debug("Listening for follow-up", "command", command, "attempt", i+1)
		candidates, err := s.listen(ctx, s.cfg.FollowupTimeout, s.cfg.FollowupPhraseLimit)
		if err != nil {
			log.Debug("No follow-up", "err", err)
			break
		}

		more := primaryCandidate(candidates)
		if more == "" {
			break
		}
		command = strings.TrimSpace(command + " " + more)
	}
	return command
}

// listen captures one phrase and transcribes it. An empty transcript is
// reported as ErrUnintelligible; a successful one resets the failure count.
func (s *Session) listen(ctx context.Context, timeout, phraseLimit time.Duration) ([]string, error) {
	pcm, err := s.deps.Capturer.Capture(ctx, timeout, phraseLimit)
	if err != nil {
		return nil, err
	}

	candidates, err := s.deps.Transcriber.Transcribe(ctx, pcm)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, ErrUnintelligible
	}

	s.failures = 0
	return out, nil
}

// handleListenError applies the retry policy for a failed listen and
// returns the errors that the loop itself has to act on.
func (s *Session) handleListenError(ctx context.Context, err error, active bool) error {
	switch {
	case ctx.Err() != nil, errors.Is(err, ErrSourceClosed):
		return err

	case errors.Is(err, ErrNoSpeech):
		log.Debug("Listening timed out", "mode", s.mode)
		return nil

	case errors.Is(err, ErrUnintelligible):
		s.failures++
		log.Info("Didn't catch that", "failures", s.failures)
		if n := s.cfg.RecalibrateAfterFailures; n > 0 && s.failures >= n {
			s.failures = 0
			if err := s.calibrate(ctx); err != nil {
				log.Warn("Recalibration failed", "err", err)
			}
		}
		return nil

	case errors.Is(err, ErrTranscription):
		log.Error("Speech recognition service error", "mode", s.mode, "err", err)
		if active {
			s.speak(serviceError)
		}
		s.pause(ctx)
		return nil
	}

	return err
}

func (s *Session) enterActive(ctx context.Context) {
	s.mode = ModeActiveListening
	s.observe(EventMode, "")
	if s.deps.Ducker != nil {
		if err := s.deps.Ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck audio", "err", err)
		}
	}
	if err := s.calibrate(ctx); err != nil {
		log.Warn("Recalibration failed", "err", err)
	}
}

func (s *Session) leaveActive(ctx context.Context) {
	if s.mode != ModeActiveListening {
		return
	}
	s.mode = ModeWakeWaiting
	s.observe(EventMode, "")
	if s.deps.Ducker != nil {
		if err := s.deps.Ducker.Unduck(ctx); err != nil {
			log.Warn("Failed to restore audio", "err", err)
		}
	}
}

func (s *Session) interrupted() error {
	log.Info("Interrupt received, stopping assistant")
	s.speak(interruptBye)
	s.leaveActive(context.Background())
	return nil
}

func (s *Session) calibrate(ctx context.Context) error {
	if s.cfg.AmbientAdjust <= 0 {
		return nil
	}
	return s.deps.Capturer.Calibrate(ctx, s.cfg.AmbientAdjust)
}

func (s *Session) pause(ctx context.Context) {
	if s.cfg.RetryDelay <= 0 {
		return
	}
	t := time.NewTimer(s.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Session) speak(text string) {
	if s.deps.Speaker == nil {
		return
	}
	if err := s.deps.Speaker.Speak(text); err != nil {
		log.Warn("Failed to voice out", "err", err)
	}
}

func (s *Session) observe(kind EventKind, text string) {
	if s.deps.Observer != nil {
		s.deps.Observer.Observe(newEvent(kind, s.mode, text))
	}
}
