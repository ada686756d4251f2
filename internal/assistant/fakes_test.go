package assistant

import (
	"context"
	"errors"
	"time"
)

type fakeSpeaker struct {
	said []string
	err  error
}

func (f *fakeSpeaker) Speak(text string) error {
	f.said = append(f.said, text)
	return f.err
}

type fakeBrowser struct {
	opened []string
	err    error
}

func (f *fakeBrowser) OpenURL(_ context.Context, url string) error {
	if f.err != nil {
		return f.err
	}
	f.opened = append(f.opened, url)
	return nil
}

type fakeEditor struct {
	opens, closes int
	openErr       error
	closeErr      error
}

func (f *fakeEditor) Open(context.Context) error {
	f.opens++
	return f.openErr
}

func (f *fakeEditor) Close(context.Context) error {
	f.closes++
	return f.closeErr
}

type fakeSongs map[string]string

func (f fakeSongs) Lookup(name string) (string, bool) {
	url, ok := f[name]
	return url, ok
}

type fakeChat struct {
	reply    string
	err      error
	calls    int
	history  [][]Turn
	messages []string
	panics   bool
}

func (f *fakeChat) Complete(_ context.Context, history []Turn, message string) (string, error) {
	f.calls++
	f.history = append(f.history, history)
	f.messages = append(f.messages, message)
	if f.panics {
		panic("boom")
	}
	return f.reply, f.err
}

// capture is one scripted microphone result: either an error from the
// capturer, an error from the transcriber, or transcript candidates.
type capture struct {
	err           error
	transcribeErr error
	texts         []string
}

func heard(texts ...string) capture { return capture{texts: texts} }

// scriptedMic replays captures in order and reports ErrSourceClosed once the
// script runs out. It implements both Capturer and Transcriber.
type scriptedMic struct {
	script       []capture
	next         int
	calibrations int
	timeouts     []time.Duration
	onCapture    func(n int)
}

func (m *scriptedMic) Capture(ctx context.Context, timeout, _ time.Duration) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.next >= len(m.script) {
		return nil, ErrSourceClosed
	}
	i := m.next
	m.next++
	m.timeouts = append(m.timeouts, timeout)
	if m.onCapture != nil {
		m.onCapture(i)
	}
	if m.script[i].err != nil {
		return nil, m.script[i].err
	}
	return []float32{float32(i)}, nil
}

func (m *scriptedMic) Calibrate(context.Context, time.Duration) error {
	m.calibrations++
	return nil
}

func (m *scriptedMic) Transcribe(_ context.Context, pcm []float32) ([]string, error) {
	if len(pcm) != 1 {
		return nil, errors.New("unexpected capture")
	}
	c := m.script[int(pcm[0])]
	if c.transcribeErr != nil {
		return nil, c.transcribeErr
	}
	return c.texts, nil
}

type recordingObserver struct {
	events []Event
}

func (o *recordingObserver) Observe(e Event) {
	o.events = append(o.events, e)
}

func (o *recordingObserver) kinds() []EventKind {
	out := make([]EventKind, 0, len(o.events))
	for _, e := range o.events {
		out = append(out, e.Kind)
	}
	return out
}

type fakeDucker struct {
	ducks, unducks int
}

func (d *fakeDucker) Duck(context.Context) error {
	d.ducks++
	return nil
}

func (d *fakeDucker) Unduck(context.Context) error {
	d.unducks++
	return nil
}

type fakeChimer struct{ chimes int }

func (c *fakeChimer) Chime() error {
	c.chimes++
	return nil
}
