package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/harunnryd/voxd/internal/audio"
	"github.com/harunnryd/voxd/internal/config"
	"github.com/harunnryd/voxd/internal/daemon"
	"github.com/harunnryd/voxd/internal/dictionary"
	"github.com/harunnryd/voxd/internal/feedback"
	"github.com/harunnryd/voxd/internal/ipc"
	"github.com/harunnryd/voxd/internal/overlay"
	"github.com/harunnryd/voxd/internal/router"
	"github.com/harunnryd/voxd/internal/shortcut"
	"github.com/harunnryd/voxd/internal/store"
	"github.com/harunnryd/voxd/internal/textinput"
	"github.com/harunnryd/voxd/internal/transcribe"
)

// RouterComponent builds the collaborators from config and owns the router.
//
// Health reads only atomics: it is called from inside the router loop when a
// client asks for health, and must not wait on a lock held by Stop.
type RouterComponent struct {
	cfg        *config.Config
	runtimeDir string
	health     func() map[string]string
	hook       shortcut.Hook

	router   *router.Router
	notifier *overlay.SocketNotifier

	initialized atomic.Bool
	started     atomic.Bool
	mu          sync.Mutex
}

// NewRouterComponent wires the router. health reports the other components and
// may be nil.
func NewRouterComponent(cfg *config.Config, runtimeDir string, health func() map[string]string) *RouterComponent {
	return &RouterComponent{
		cfg:        cfg,
		runtimeDir: runtimeDir,
		health:     health,
		hook:       shortcut.NewSystemHook(),
	}
}

func (r *RouterComponent) Name() string {
	return "Router"
}

func (r *RouterComponent) Dependencies() []string {
	return []string{"InstanceLock"}
}

func (r *RouterComponent) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("Router init cancelled: %w", ctx.Err())
	default:
	}

	routerCfg, err := router.ConfigFrom(r.cfg)
	if err != nil {
		return err
	}

	captureCfg, err := audio.CaptureConfigFrom(r.cfg.Recording)
	if err != nil {
		return err
	}
	captureCfg.ScratchDir, err = store.ScratchDir(r.runtimeDir, r.cfg.Recording.ScratchDir)
	if err != nil {
		return fmt.Errorf("resolve scratch dir: %w", err)
	}

	transcriber, err := transcribe.New(r.cfg.Transcription)
	if err != nil {
		return fmt.Errorf("init transcription client: %w", err)
	}
	capture := audio.NewFFmpegCapture(captureCfg)

	clipboard, err := textinput.NewSystemClipboard(r.cfg.Injection.PasteDelay)
	if err != nil {
		return err
	}

	deps := router.Deps{
		Capturer:    capture,
		Transcriber: transcriber,
		Dictionary:  dictionary.New(dictionary.NewFileRepository(r.cfg.Dictionary.Path)),
		Clipboard:   clipboard,
		Notifier:    r.buildNotifier(),
		Devices:     capture,
		Checks: []router.HealthCheck{
			{Name: "input_device", Check: capture.CheckDevice},
			{Name: "transcription_api", Check: transcriber.Ping},
		},
		Health: r.health,
	}
	if r.cfg.Feedback.Sounds {
		deps.Sounds = feedback.NewBeepPlayer()
	}

	if r.cfg.Injection.Command == "" {
		slog.Info("No injection.command set, direct mode pastes via clipboard")
	} else if injector, err := textinput.NewCommandInjector(r.cfg.Injection.Command); err != nil {
		slog.Warn("Direct injection disabled, transcripts will be pasted via clipboard", "error", err)
	} else {
		deps.Injector = injector
	}

	if r.cfg.Shortcut.Enabled {
		bindings, err := shortcut.ParseBindings(r.cfg.Shortcut.Modifier, r.cfg.Shortcut.ToggleKey, r.cfg.Shortcut.ClearKey)
		if err != nil {
			return fmt.Errorf("invalid shortcut config: %w", err)
		}
		deps.Bridge = shortcut.NewBridge(r.hook, bindings, r.cfg.Router.ShortcutQueueSize)
	}

	rt, err := router.New(routerCfg, deps)
	if err != nil {
		return err
	}

	r.router = rt
	r.initialized.Store(true)
	slog.Info("Router initialized",
		"component", r.Name(),
		"transcriber", transcriber.Name(),
		"input_format", captureCfg.InputFormat,
		"shortcuts", r.cfg.Shortcut.Enabled,
		"sounds", r.cfg.Feedback.Sounds,
		"scratch_dir", captureCfg.ScratchDir,
	)
	return nil
}

func (r *RouterComponent) buildNotifier() overlay.Notifier {
	var notifiers overlay.Multi

	if path := r.cfg.Overlay.SocketPath; path != "" {
		dialTimeout, err := config.DurationOrDefault(r.cfg.Overlay.DialTimeout, config.DefaultOverlayDialTimeout)
		if err != nil {
			slog.Warn("Invalid overlay.dial_timeout, using default", "error", err)
			dialTimeout, _ = config.DurationOrDefault("", config.DefaultOverlayDialTimeout)
		}
		r.notifier = overlay.NewSocketNotifier(path, dialTimeout)
		notifiers = append(notifiers, r.notifier)
	}
	if r.cfg.Overlay.DesktopNotifications {
		notifiers = append(notifiers, overlay.NewDesktopNotifier())
	}

	if len(notifiers) == 0 {
		return overlay.Nop{}
	}
	return notifiers
}

func (r *RouterComponent) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized.Load() {
		return fmt.Errorf("Router not initialized")
	}

	r.router.Start()
	r.started.Store(true)
	slog.Info("Router started", "component", r.Name())
	return nil
}

func (r *RouterComponent) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.notifier != nil {
		defer r.notifier.Close()
	}

	if !r.started.Load() {
		slog.Info("Router not started, skipping stop", "component", r.Name())
		return nil
	}

	slog.Info("Stopping Router...", "component", r.Name())
	if err := r.router.Stop(ctx); err != nil {
		return err
	}
	r.started.Store(false)
	slog.Info("Router stopped", "component", r.Name())
	return nil
}

func (r *RouterComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if !r.initialized.Load() {
		return &daemon.ComponentHealth{
			Name:    r.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !r.started.Load() {
		return &daemon.ComponentHealth{
			Name:    r.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	if !r.router.Running() {
		return &daemon.ComponentHealth{
			Name:    r.Name(),
			Healthy: false,
			Error:   fmt.Errorf("loop not running"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    r.Name(),
		Healthy: true,
	}, nil
}

// Handler is what the IPC listener serves.
func (r *RouterComponent) Handler() ipc.Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.router == nil {
		return nil
	}
	return r.router
}
