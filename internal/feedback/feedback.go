// Package feedback plays the audible cues around a recording.
package feedback

import (
	"log/slog"
	"sync/atomic"

	"github.com/harunnryd/voxd/internal/concurrency"

	"github.com/gen2brain/beeep"
)

type Cue int

const (
	CueStart Cue = iota
	CueStop
)

func (c Cue) String() string {
	if c == CueStart {
		return "start"
	}
	return "stop"
}

// Player must return immediately. The router calls it from its loop.
type Player interface {
	Play(Cue)
}

type Nop struct{}

func (Nop) Play(Cue) {}

type tone struct {
	freq       float64
	durationMS int
}

var tones = map[Cue]tone{
	CueStart: {freq: 880, durationMS: 90},
	CueStop:  {freq: 523.25, durationMS: 120},
}

// BeepPlayer sounds a short tone on its own goroutine. A cue requested while
// another is still sounding is skipped.
type BeepPlayer struct {
	beep    func(freq float64, durationMS int) error
	busy    atomic.Bool
	skipped atomic.Uint64
}

func NewBeepPlayer() *BeepPlayer {
	return &BeepPlayer{beep: beeep.Beep}
}

func (p *BeepPlayer) Play(c Cue) {
	if !p.busy.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		return
	}

	t := tones[c]
	concurrency.SafeGo(func() {
		defer p.busy.Store(false)
		if err := p.beep(t.freq, t.durationMS); err != nil {
			slog.Debug("Sound cue failed", "cue", c.String(), "error", err)
		}
	}, func(r interface{}) {
		p.busy.Store(false)
		slog.Warn("Sound cue panicked", "cue", c.String(), "panic", r)
	})
}

// Skipped counts cues dropped because the previous one was still playing.
func (p *BeepPlayer) Skipped() uint64 {
	return p.skipped.Load()
}
