package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/voxd/internal/config"

	"github.com/gofrs/flock"
)

// InstanceLock keeps a second daemon from starting against the same runtime dir.
type InstanceLock struct {
	fileLock   *flock.Flock
	lockPath   string
	acquiredAt time.Time
	mu         sync.RWMutex
}

type LockConfig struct {
	LockTimeout time.Duration
	LockRetry   time.Duration
}

func LockConfigFrom(cfg config.DaemonConfig) (LockConfig, error) {
	timeout, err := config.DurationOrDefault(cfg.LockTimeout, config.DefaultDaemonLockTimeout)
	if err != nil {
		return LockConfig{}, fmt.Errorf("invalid daemon.lock_timeout: %w", err)
	}
	retry, err := config.DurationOrDefault(cfg.LockRetry, config.DefaultDaemonLockRetry)
	if err != nil {
		return LockConfig{}, fmt.Errorf("invalid daemon.lock_retry: %w", err)
	}
	return LockConfig{LockTimeout: timeout, LockRetry: retry}, nil
}

func (c LockConfig) maxRetry() int {
	if c.LockRetry <= 0 {
		return 1
	}
	n := int(c.LockTimeout / c.LockRetry)
	if n < 1 {
		n = 1
	}
	return n
}

// AcquireInstanceLock takes the lock in runtimeDir, retrying until the
// timeout or ctx expires. The holder's pid is written into the file.
func AcquireInstanceLock(ctx context.Context, runtimeDir string, cfg LockConfig) (*InstanceLock, error) {
	if err := os.MkdirAll(runtimeDir, 0700); err != nil {
		return nil, fmt.Errorf("create runtime dir: %w", err)
	}

	lockPath := LockPath(runtimeDir)
	l := &InstanceLock{
		fileLock: flock.New(lockPath),
		lockPath: lockPath,
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.LockTimeout)
	defer cancel()

	if err := l.acquireWithRetry(ctx, cfg); err != nil {
		return nil, err
	}

	l.acquiredAt = time.Now()
	if err := os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0600); err != nil {
		slog.Warn("Failed to record pid in lock file", "path", lockPath, "error", err)
	}

	slog.Info("Instance lock acquired",
		"path", lockPath,
		"acquired_at", l.acquiredAt.Format(time.RFC3339Nano),
	)
	return l, nil
}

func (l *InstanceLock) acquireWithRetry(ctx context.Context, cfg LockConfig) error {
	attempts := cfg.maxRetry()
	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("lock acquisition cancelled: %w", ctx.Err())
		default:
			locked, err := l.fileLock.TryLock()
			if err != nil {
				return fmt.Errorf("failed to attempt lock: %w", err)
			}
			if locked {
				return nil
			}

			if i < attempts-1 {
				time.Sleep(cfg.LockRetry)
			}
		}
	}

	holder := ""
	if pid := HolderPID(filepath.Dir(l.lockPath)); pid > 0 {
		holder = fmt.Sprintf(" (pid %d)", pid)
	}
	return fmt.Errorf("another voxd daemon is already running%s; lock %s held (timeout after %v)",
		holder, l.lockPath, cfg.LockTimeout)
}

func (l *InstanceLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLock == nil {
		slog.Warn("Instance lock already released", "path", l.lockPath)
		return
	}

	held := time.Since(l.acquiredAt)
	if err := l.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release instance lock",
			"path", l.lockPath,
			"error", err,
		)
	} else {
		slog.Info("Instance lock released",
			"path", l.lockPath,
			"held_duration_ms", held.Milliseconds(),
		)
	}
	l.fileLock = nil
}

func (l *InstanceLock) IsLocked() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fileLock != nil
}

func (l *InstanceLock) HeldDuration() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.acquiredAt.IsZero() || l.fileLock == nil {
		return 0
	}
	return time.Since(l.acquiredAt)
}

// HolderPID reads the pid recorded by the current or last lock holder.
// It returns 0 when the file is missing or unreadable.
func HolderPID(runtimeDir string) int {
	data, err := os.ReadFile(LockPath(runtimeDir))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
