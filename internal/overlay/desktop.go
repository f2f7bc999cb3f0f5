package overlay

import (
	"fmt"
	"log/slog"

	"github.com/harunnryd/voxd/internal/concurrency"

	"github.com/gen2brain/beeep"
)

const desktopTitle = "voxd"

// DesktopNotifier shows a system notification for each event.
type DesktopNotifier struct {
	notify func(title, message string) error
}

func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

func (d *DesktopNotifier) Notify(n Notification) {
	msg := Message(n)
	if msg == "" {
		return
	}
	concurrency.SafeGo(func() {
		if err := d.notify(desktopTitle, msg); err != nil {
			slog.Debug("Desktop notification failed", "kind", n.Kind, "error", err)
		}
	}, nil)
}

// Message renders a notification as one line of text.
func Message(n Notification) string {
	switch n.Kind {
	case KindStackAdded:
		if n.Preview != "" {
			return fmt.Sprintf("Saved stack %d: %s", n.StackID, n.Preview)
		}
		return fmt.Sprintf("Saved stack %d", n.StackID)
	case KindStackAccessed:
		return fmt.Sprintf("Pasted stack %d", n.StackID)
	case KindStacksCleared:
		return fmt.Sprintf("Cleared %d stacks", n.Count)
	case KindModeChanged:
		if n.Enabled {
			return "Stack mode on"
		}
		return "Stack mode off"
	default:
		return ""
	}
}
