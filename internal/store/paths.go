package store

import (
	"path/filepath"
	"strings"

	"github.com/harunnryd/voxd/internal/pathutil"
)

// ResolveRuntimeDir expands the configured runtime dir.
// If empty, it falls back to $XDG_RUNTIME_DIR or the temp dir.
func ResolveRuntimeDir(runtimeDir string) (string, error) {
	if trimmed := strings.TrimSpace(runtimeDir); trimmed != "" {
		return pathutil.Expand(trimmed)
	}
	return pathutil.RuntimeDir(), nil
}

// LockPath returns the instance lock file inside a runtime dir.
func LockPath(runtimeDir string) string {
	return filepath.Join(runtimeDir, "voxd.lock")
}

// ScratchDir returns where recordings are staged before upload.
func ScratchDir(runtimeDir, configured string) (string, error) {
	if trimmed := strings.TrimSpace(configured); trimmed != "" {
		return pathutil.Expand(trimmed)
	}
	return filepath.Join(runtimeDir, "voxd-recordings"), nil
}
