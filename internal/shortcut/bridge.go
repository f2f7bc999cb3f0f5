// Package shortcut turns global key chords into router commands.
//
// The hook callback runs on an OS thread that blocks system keyboard input
// while it executes. It only updates chord state and does a non-blocking send.
package shortcut

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/harunnryd/voxd/internal/config"
	"github.com/harunnryd/voxd/internal/ipc"
)

// Hook installs a global keyboard hook. handler runs on the hook thread and
// returns true to swallow the event.
type Hook interface {
	Install(handler func(KeyEvent) bool) (uninstall func() error, err error)
}

// chordState is touched only from the hook callback.
type chordState struct {
	held      map[Key]bool
	swallowed map[Key]bool
}

func (s *chordState) reset() {
	s.held = make(map[Key]bool)
	s.swallowed = make(map[Key]bool)
}

func (s *chordState) modifierHeld() bool {
	return len(s.held) > 0
}

type Bridge struct {
	hook      Hook
	bindings  Bindings
	commands  chan ipc.Command
	state     chordState
	mu        sync.Mutex
	uninstall func() error
	active    atomic.Bool
	dropped   atomic.Uint64
}

func NewBridge(hook Hook, bindings Bindings, queueSize int) *Bridge {
	return &Bridge{
		hook:     hook,
		bindings: bindings,
		commands: make(chan ipc.Command, config.IntOrDefault(queueSize, config.DefaultRouterShortcutQueueSize)),
	}
}

// Commands is the one-way channel toward the router.
func (b *Bridge) Commands() <-chan ipc.Command {
	return b.commands
}

// Start installs the hook. Calling it while active is a no-op.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active.Load() {
		return nil
	}
	if b.hook == nil {
		return fmt.Errorf("keyboard hook not configured")
	}

	// the hook thread is not running yet, so resetting here does not race
	b.state.reset()
	uninstall, err := b.hook.Install(b.handleKey)
	if err != nil {
		return err
	}
	b.uninstall = uninstall
	b.active.Store(true)
	slog.Info("Shortcut bridge started")
	return nil
}

func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active.Load() {
		return nil
	}
	b.active.Store(false)

	var err error
	if b.uninstall != nil {
		err = b.uninstall()
		b.uninstall = nil
	}
	slog.Info("Shortcut bridge stopped", "dropped_commands", b.dropped.Load())
	return err
}

func (b *Bridge) Active() bool {
	return b.active.Load()
}

// Drain discards commands queued but not yet consumed.
func (b *Bridge) Drain() int {
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

// Dropped counts commands lost because the channel was full.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bridge) handleKey(ev KeyEvent) bool {
	if ev.Injected {
		return false
	}

	if b.bindings.isModifier(ev.Key) {
		if ev.Down {
			b.state.held[ev.Key] = true
		} else {
			delete(b.state.held, ev.Key)
		}
		return false
	}

	if !ev.Down {
		if b.state.swallowed[ev.Key] {
			delete(b.state.swallowed, ev.Key)
			return true
		}
		return false
	}

	if !b.state.modifierHeld() {
		return false
	}

	cmd, ok := b.translate(ev.Key)
	if !ok {
		return false
	}

	// auto-repeat while the chord is held
	if b.state.swallowed[ev.Key] {
		return true
	}
	b.state.swallowed[ev.Key] = true

	select {
	case b.commands <- cmd:
	default:
		b.dropped.Add(1)
	}
	return true
}

func (b *Bridge) translate(k Key) (ipc.Command, bool) {
	var cmd ipc.Command
	switch {
	case k == b.bindings.Toggle:
		cmd = ipc.NewCommand(ipc.CmdToggle)
	case isDigit(k):
		cmd = ipc.NewCommand(ipc.CmdPasteStack)
		cmd.StackID = uint32(k - '0')
	case b.bindings.Clear != 0 && k == b.bindings.Clear:
		cmd = ipc.NewCommand(ipc.CmdClearStacks)
	default:
		return ipc.Command{}, false
	}
	cmd.Source = ipc.SourceShortcut
	return cmd, true
}
