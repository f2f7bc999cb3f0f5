package pathutil

import (
	"os"
	"strings"
)

// RuntimeDir returns the directory for sockets and lock files: XDG_RUNTIME_DIR
// when set, otherwise the temp dir.
func RuntimeDir() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); dir != "" {
		return dir
	}
	return os.TempDir()
}
