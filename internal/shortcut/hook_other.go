//go:build !windows

package shortcut

import (
	"fmt"
	"runtime"

	"github.com/harunnryd/voxd/internal/errors"
)

type unsupportedHook struct{}

// NewSystemHook returns a hook that always fails: global key capture with
// suppression is only implemented for Windows.
func NewSystemHook() Hook {
	return unsupportedHook{}
}

func (unsupportedHook) Install(func(KeyEvent) bool) (func() error, error) {
	return nil, errors.PermissionDenied(fmt.Sprintf("global keyboard hook is not available on %s", runtime.GOOS))
}
