package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/harunnryd/voxd/internal/config"
	"github.com/harunnryd/voxd/internal/daemon"
	"github.com/harunnryd/voxd/internal/ipc"
)

// HandlerSource yields the handler once its owner has been initialized.
type HandlerSource interface {
	Handler() ipc.Handler
}

// IPCListenerComponent binds the command socket during Init, so a second
// daemon fails before anything starts, and serves it after Start.
type IPCListenerComponent struct {
	cfg       *config.IPCConfig
	source    HandlerSource
	dependsOn []string
	listener  *ipc.Listener
	cancel    context.CancelFunc
	done      chan struct{}
	bound     atomic.Bool
	serving   atomic.Bool
	mu        sync.Mutex
}

func NewIPCListenerComponent(cfg *config.IPCConfig, source HandlerSource, dependsOn ...string) *IPCListenerComponent {
	return &IPCListenerComponent{
		cfg:       cfg,
		source:    source,
		dependsOn: dependsOn,
	}
}

func (c *IPCListenerComponent) Name() string {
	return "IPCListener"
}

func (c *IPCListenerComponent) Dependencies() []string {
	return c.dependsOn
}

func (c *IPCListenerComponent) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	handler := c.source.Handler()
	if handler == nil {
		return fmt.Errorf("ipc handler not available")
	}

	readTimeout, err := config.DurationOrDefault(c.cfg.ReadTimeout, config.DefaultIPCReadTimeout)
	if err != nil {
		return fmt.Errorf("parse ipc read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(c.cfg.WriteTimeout, config.DefaultIPCWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse ipc write timeout: %w", err)
	}

	listener, err := ipc.Listen(ipc.ListenerConfig{
		SocketPath:      c.cfg.SocketPath,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		MaxMessageBytes: c.cfg.MaxMessageBytes,
	}, handler)
	if err != nil {
		return err
	}

	c.listener = listener
	c.bound.Store(true)
	slog.Info("IPCListener initialized", "component", c.Name(), "socket", c.cfg.SocketPath)
	return nil
}

func (c *IPCListenerComponent) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound.Load() {
		return fmt.Errorf("IPCListener not initialized")
	}

	serveCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		slog.Info("IPC listener accepting commands", "component", c.Name(), "socket", c.listener.Addr())
		if err := c.listener.Serve(serveCtx); err != nil {
			slog.Error("IPC listener failed", "component", c.Name(), "error", err)
		}
		c.serving.Store(false)
	}(c.done)

	c.serving.Store(true)
	slog.Info("IPCListener started", "component", c.Name())
	return nil
}

func (c *IPCListenerComponent) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listener == nil {
		slog.Info("IPCListener not bound, skipping stop", "component", c.Name())
		return nil
	}

	slog.Info("Stopping IPCListener...", "component", c.Name())
	if c.cancel != nil {
		c.cancel()
	}
	err := c.listener.Close()

	if c.done != nil {
		select {
		case <-c.done:
		case <-ctx.Done():
			return fmt.Errorf("IPCListener stop: %w", ctx.Err())
		}
	}

	c.listener = nil
	c.bound.Store(false)
	c.serving.Store(false)
	slog.Info("IPCListener stopped", "component", c.Name())
	return err
}

func (c *IPCListenerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if !c.bound.Load() {
		return &daemon.ComponentHealth{
			Name:    c.Name(),
			Healthy: false,
			Error:   fmt.Errorf("socket not bound"),
		}, nil
	}

	if !c.serving.Load() {
		return &daemon.ComponentHealth{
			Name:    c.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not serving"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    c.Name(),
		Healthy: true,
	}, nil
}
