package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/harunnryd/voxd/internal/config"
	"github.com/harunnryd/voxd/internal/daemon"
	"github.com/harunnryd/voxd/internal/store"
)

// InstanceLockComponent holds the flock that keeps a second daemon from
// binding the same runtime dir.
type InstanceLockComponent struct {
	runtimeDir string
	daemonCfg  *config.DaemonConfig
	lock       *store.InstanceLock
	held       atomic.Bool
	mu         sync.Mutex
}

func NewInstanceLockComponent(runtimeDir string, daemonCfg *config.DaemonConfig) *InstanceLockComponent {
	return &InstanceLockComponent{
		runtimeDir: runtimeDir,
		daemonCfg:  daemonCfg,
	}
}

func (l *InstanceLockComponent) Name() string {
	return "InstanceLock"
}

func (l *InstanceLockComponent) Dependencies() []string {
	return []string{}
}

func (l *InstanceLockComponent) Init(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("InstanceLock init cancelled: %w", ctx.Err())
	default:
	}

	var daemonCfg config.DaemonConfig
	if l.daemonCfg != nil {
		daemonCfg = *l.daemonCfg
	}
	lockCfg, err := store.LockConfigFrom(daemonCfg)
	if err != nil {
		return err
	}

	lock, err := store.AcquireInstanceLock(ctx, l.runtimeDir, lockCfg)
	if err != nil {
		return err
	}

	l.lock = lock
	l.held.Store(true)
	slog.Info("InstanceLock initialized", "component", l.Name(), "path", store.LockPath(l.runtimeDir))
	return nil
}

func (l *InstanceLockComponent) Start(ctx context.Context) error {
	if !l.held.Load() {
		return fmt.Errorf("InstanceLock not initialized")
	}
	return nil
}

func (l *InstanceLockComponent) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lock == nil {
		slog.Info("InstanceLock not held, skipping stop", "component", l.Name())
		return nil
	}

	l.lock.Unlock()
	l.lock = nil
	l.held.Store(false)
	slog.Info("InstanceLock released", "component", l.Name())
	return nil
}

func (l *InstanceLockComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if !l.held.Load() {
		return &daemon.ComponentHealth{
			Name:    l.Name(),
			Healthy: false,
			Error:   fmt.Errorf("lock not held"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    l.Name(),
		Healthy: true,
	}, nil
}
