package router

import (
	"context"
	"sync"

	"github.com/harunnryd/voxd/internal/audio"
	voxErrors "github.com/harunnryd/voxd/internal/errors"
	"github.com/harunnryd/voxd/internal/feedback"
	"github.com/harunnryd/voxd/internal/ipc"
	"github.com/harunnryd/voxd/internal/overlay"

	"github.com/stretchr/testify/mock"
)

type fakeCapturer struct {
	mu           sync.Mutex
	begins       int
	finalizes    int
	beginErr     error
	finalizeErr  error
	beginGate    chan struct{}
	beginEntered chan struct{}
	panicOnBegin bool
}

func (f *fakeCapturer) Begin(ctx context.Context) error {
	if f.beginEntered != nil {
		f.beginEntered <- struct{}{}
	}
	if f.beginGate != nil {
		<-f.beginGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnBegin {
		panic("device exploded")
	}
	f.begins++
	return f.beginErr
}

func (f *fakeCapturer) Finalize(ctx context.Context) (audio.Encoded, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalizes++
	if f.finalizeErr != nil {
		return audio.Encoded{}, f.finalizeErr
	}
	return audio.Encoded{Data: []byte("RIFF"), SampleRate: 16000, Channels: 1, Samples: 16000, Format: audio.FormatWAV}, nil
}

func (f *fakeCapturer) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begins, f.finalizes
}

type fakeTranscriber struct {
	mu      sync.Mutex
	texts   []string
	err     error
	gate    chan struct{}
	calls   int
	prompts []string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, rec audio.Encoded, prompt string) (string, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if rec.Empty() {
		return "", voxErrors.Audio("recording is empty", nil)
	}
	if len(f.texts) > 0 {
		text := f.texts[0]
		f.texts = f.texts[1:]
		return text, nil
	}
	return "hello world", nil
}

type mockInjector struct {
	mock.Mock
}

func (m *mockInjector) Inject(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

type mockClipboard struct {
	mock.Mock
}

func (m *mockClipboard) Copy(text string) error {
	return m.Called(text).Error(0)
}

func (m *mockClipboard) Paste(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []overlay.Notification
}

func (n *recordingNotifier) Notify(note overlay.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) kinds() []overlay.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]overlay.Kind, len(n.sent))
	for i, note := range n.sent {
		out[i] = note.Kind
	}
	return out
}

type fakeBridge struct {
	mu       sync.Mutex
	active   bool
	startErr error
	starts   int
	stops    int
	dropped  uint64
	commands chan ipc.Command
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{commands: make(chan ipc.Command, 8)}
}

func (b *fakeBridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts++
	if b.startErr != nil {
		return b.startErr
	}
	b.active = true
	return nil
}

func (b *fakeBridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	b.active = false
	return nil
}

func (b *fakeBridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *fakeBridge) Drain() int {
	n := 0
	for {
		select {
		case <-b.commands:
			n++
		default:
			return n
		}
	}
}

func (b *fakeBridge) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *fakeBridge) Commands() <-chan ipc.Command {
	return b.commands
}

type recordingPlayer struct {
	mu   sync.Mutex
	cues []feedback.Cue
}

func (p *recordingPlayer) Play(cue feedback.Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cues = append(p.cues, cue)
}

func (p *recordingPlayer) played() []feedback.Cue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]feedback.Cue(nil), p.cues...)
}

type fakeDevices struct {
	devices []audio.Device
	err     error
}

func (f fakeDevices) ListDevices(ctx context.Context) ([]audio.Device, error) {
	return f.devices, f.err
}

type upperDictionary struct {
	mu    sync.Mutex
	calls int
}

func (d *upperDictionary) Substitute(text string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if text == "hello world" {
		return "Hello, World"
	}
	return text
}
