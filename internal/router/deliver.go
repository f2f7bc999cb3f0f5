package router

import (
	"context"
	"errors"
	"log/slog"

	voxErrors "github.com/harunnryd/voxd/internal/errors"
	"github.com/harunnryd/voxd/internal/session"
)

// Delivery values reported in outcomes.
const (
	DeliveryDirect   = "direct"
	DeliveryPaste    = "paste"
	DeliveryCopy     = "copy"
	DeliveryFallback = "clipboard_fallback"
	DeliveryStack    = "stack"
)

// deliver sends text to the focused application. Direct injection falls back
// to a clipboard paste once before giving up.
func (r *Router) deliver(ctx context.Context, mode session.PasteMode, text string) (string, error) {
	clip := r.deps.Clipboard

	switch mode {
	case session.PasteCopy:
		if clip == nil {
			return "", voxErrors.Injection("clipboard unavailable", nil)
		}
		if err := clip.Copy(text); err != nil {
			return "", asInjection("copy to clipboard failed", err)
		}
		return DeliveryCopy, nil

	case session.PasteClip:
		if clip == nil {
			return "", voxErrors.Injection("clipboard unavailable", nil)
		}
		if err := clip.Paste(ctx, text); err != nil {
			return "", asInjection("clipboard paste failed", err)
		}
		return DeliveryPaste, nil
	}

	var injectErr error
	if r.deps.Injector != nil {
		injectErr = r.deps.Injector.Inject(ctx, text)
		if injectErr == nil {
			return DeliveryDirect, nil
		}
		slog.Warn("Direct injection failed, falling back to clipboard paste", "error", injectErr)
	} else {
		injectErr = errors.New("no injector configured")
	}

	if clip == nil {
		return "", voxErrors.Injection("direct injection failed and no clipboard fallback", injectErr)
	}
	if err := clip.Paste(ctx, text); err != nil {
		return "", voxErrors.Injection("direct injection and clipboard fallback both failed", errors.Join(injectErr, err))
	}
	return DeliveryFallback, nil
}

func asInjection(msg string, err error) error {
	if voxErrors.IsCategory(err, voxErrors.ErrInjection) {
		return voxErrors.Wrap(err, msg)
	}
	return voxErrors.Injection(msg, err)
}

func deliveryMessage(delivery string) string {
	switch delivery {
	case DeliveryDirect:
		return "typed into focused window"
	case DeliveryPaste:
		return "pasted into focused window"
	case DeliveryCopy:
		return "copied to clipboard"
	case DeliveryFallback:
		return "pasted via clipboard fallback"
	default:
		return "delivered"
	}
}
