package textinput

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/voxd/internal/config"
	voxErrors "github.com/harunnryd/voxd/internal/errors"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// Clipboard copies text and optionally pastes it into the focused window.
type Clipboard interface {
	Copy(text string) error
	Paste(ctx context.Context, text string) error
}

// ClipboardBackend reads and writes the system clipboard.
type ClipboardBackend interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// KeySender sends the paste shortcut.
type KeySender interface {
	SendPaste() error
}

type systemBackend struct{}

func (systemBackend) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemBackend) WriteAll(text string) error { return clipboard.WriteAll(text) }

// keybdSender presses Ctrl+V. The key bonding is created on first use since
// some platforms need a settle delay after opening the virtual keyboard.
type keybdSender struct {
	once sync.Once
	kb   keybd_event.KeyBonding
	err  error
}

func (s *keybdSender) SendPaste() error {
	s.once.Do(func() {
		s.kb, s.err = keybd_event.NewKeyBonding()
	})
	if s.err != nil {
		return s.err
	}
	s.kb.Clear()
	s.kb.HasCTRL(true)
	s.kb.SetKeys(keybd_event.VK_V)
	return s.kb.Launching()
}

// SystemClipboard pastes by swapping the clipboard contents around a Ctrl+V.
type SystemClipboard struct {
	backend ClipboardBackend
	keys    KeySender
	delay   time.Duration
	mu      sync.Mutex
}

func NewSystemClipboard(pasteDelay string) (*SystemClipboard, error) {
	delay, err := config.DurationOrDefault(pasteDelay, config.DefaultInjectionPasteDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid injection.paste_delay: %w", err)
	}
	return newClipboard(systemBackend{}, &keybdSender{}, delay), nil
}

func newClipboard(backend ClipboardBackend, keys KeySender, delay time.Duration) *SystemClipboard {
	return &SystemClipboard{backend: backend, keys: keys, delay: delay}
}

func (c *SystemClipboard) Copy(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.WriteAll(text); err != nil {
		return voxErrors.Injection("write clipboard", err)
	}
	return nil
}

// Paste restores the previous clipboard contents afterwards.
func (c *SystemClipboard) Paste(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	original, readErr := c.backend.ReadAll()
	if err := c.backend.WriteAll(text); err != nil {
		return voxErrors.Injection("write clipboard", err)
	}
	if err := sleepCtx(ctx, c.delay); err != nil {
		return voxErrors.Injection("paste cancelled", err)
	}

	if err := c.keys.SendPaste(); err != nil {
		// leave the text on the clipboard so the user can paste by hand
		return voxErrors.Injection("send paste shortcut", err)
	}

	// the target reads the clipboard asynchronously
	_ = sleepCtx(ctx, c.delay+c.delay/2)
	if readErr == nil {
		if err := c.backend.WriteAll(original); err != nil {
			slog.Warn("Failed to restore clipboard", "error", err)
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
