// Package pathutil resolves user-supplied paths from config and flags.
package pathutil

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Expand resolves $VARS and a leading "~". An empty path stays empty.
func Expand(path string) (string, error) {
	p := os.ExpandEnv(strings.TrimSpace(path))
	if p == "" {
		return "", nil
	}

	rest, ok := cutHome(p)
	if !ok {
		return filepath.Clean(p), nil
	}

	home, err := homeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, rest), nil
}

// Collapse is the inverse of Expand for display: a path under the home dir is
// shown as ~/...
func Collapse(path string) string {
	home, err := homeDir()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(home, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	if rel == "." {
		return "~"
	}
	return "~" + string(filepath.Separator) + rel
}

func cutHome(p string) (string, bool) {
	if p == "~" {
		return "", true
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		return rest, true
	}
	return "", false
}

// homeDir skips candidates that are themselves unexpanded, e.g. HOME=~.
func homeDir() (string, error) {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, home)
	}
	if u, err := user.Current(); err == nil {
		candidates = append(candidates, u.HomeDir)
	}

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if _, unresolved := cutHome(c); c != "" && !unresolved {
			return c, nil
		}
	}
	return "", fmt.Errorf("no usable home directory (HOME=%q)", os.Getenv("HOME"))
}
