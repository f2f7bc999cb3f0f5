// Package transcribe sends finished recordings to a speech-to-text backend.
package transcribe

import (
	"context"
	"fmt"

	"github.com/harunnryd/voxd/internal/audio"
	"github.com/harunnryd/voxd/internal/config"
	voxErrors "github.com/harunnryd/voxd/internal/errors"
)

type Transcriber interface {
	Transcribe(ctx context.Context, recording audio.Encoded, prompt string) (string, error)
}

// Client is a Transcriber the daemon can name in logs and check for health.
type Client interface {
	Transcriber
	Name() string
	Ping(ctx context.Context) error
}

// New builds the client for transcription.provider.
func New(cfg config.TranscriptionConfig) (Client, error) {
	switch cfg.Provider {
	case "", config.TranscriptionProviderOpenAI:
		return NewOpenAIClient(cfg)
	case config.TranscriptionProviderGemini:
		return NewGeminiClient(cfg)
	default:
		return nil, voxErrors.InvalidInput(fmt.Sprintf("unknown transcription.provider %q (use %s or %s)",
			cfg.Provider, config.TranscriptionProviderOpenAI, config.TranscriptionProviderGemini))
	}
}
