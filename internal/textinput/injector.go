// Package textinput delivers text to the focused application.
package textinput

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	voxErrors "github.com/harunnryd/voxd/internal/errors"

	"github.com/google/shlex"
)

// Injector types text into the focused window.
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// CommandInjector runs a typing tool with the text as its final argument,
// for example `xdotool type --clearmodifiers --`.
type CommandInjector struct {
	argv []string
}

func NewCommandInjector(command string) (*CommandInjector, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, voxErrors.InvalidInput(fmt.Sprintf("invalid injection.command: %v", err))
	}
	if len(argv) == 0 {
		return nil, voxErrors.InvalidInput("injection.command is empty")
	}
	return &CommandInjector{argv: argv}, nil
}

func (c *CommandInjector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	args := append(append([]string{}, c.argv[1:]...), text)
	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return voxErrors.Injection(fmt.Sprintf("%s failed", c.argv[0]), err)
	}

	slog.Debug("Text injected", "tool", c.argv[0], "characters", len([]rune(text)))
	return nil
}
