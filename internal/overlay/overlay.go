// Package overlay tells an optional UI process about stack changes.
// Delivery is best effort: a missing or slow UI never affects a command.
package overlay

import "time"

type Kind string

const (
	KindStackAdded    Kind = "stack_added"
	KindStackAccessed Kind = "stack_accessed"
	KindStacksCleared Kind = "stacks_cleared"
	KindModeChanged   Kind = "mode_changed"
)

type Notification struct {
	Kind      Kind      `json:"kind"`
	StackID   uint32    `json:"stack_id,omitempty"`
	Preview   string    `json:"preview,omitempty"`
	Count     int       `json:"count,omitempty"`
	Enabled   bool      `json:"enabled,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func StackAdded(id uint32, preview string) Notification {
	return Notification{Kind: KindStackAdded, StackID: id, Preview: preview, Timestamp: time.Now().UTC()}
}

func StackAccessed(id uint32) Notification {
	return Notification{Kind: KindStackAccessed, StackID: id, Timestamp: time.Now().UTC()}
}

func StacksCleared(count int) Notification {
	return Notification{Kind: KindStacksCleared, Count: count, Timestamp: time.Now().UTC()}
}

func ModeChanged(enabled bool) Notification {
	return Notification{Kind: KindModeChanged, Enabled: enabled, Timestamp: time.Now().UTC()}
}

// Notifier must return without blocking on the receiver.
type Notifier interface {
	Notify(n Notification)
}

type Nop struct{}

func (Nop) Notify(Notification) {}

// Multi fans a notification out to every notifier.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}
