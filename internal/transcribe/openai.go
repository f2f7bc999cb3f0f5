package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/voxd/internal/audio"
	"github.com/harunnryd/voxd/internal/config"
	voxErrors "github.com/harunnryd/voxd/internal/errors"

	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client   *openai.Client
	model    string
	language string
	prompt   string
	timeout  time.Duration
	mapper   voxErrors.ErrorMapper
}

func NewOpenAIClient(cfg config.TranscriptionConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, voxErrors.InvalidInput("transcription.api_key is empty; set OPENAI_API_KEY")
	}
	timeout, err := config.DurationOrDefault(cfg.RequestTimeout, config.DefaultTranscriptionRequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid transcription.request_timeout: %w", err)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultTranscriptionModel
	}

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
		prompt:   cfg.Prompt,
		timeout:  timeout,
		mapper:   voxErrors.NewDefaultErrorMapper(),
	}, nil
}

func (c *OpenAIClient) Name() string {
	return "openai"
}

// Transcribe uploads the recording. prompt overrides the configured prompt
// for this request only. Silence comes back as an empty string.
func (c *OpenAIClient) Transcribe(ctx context.Context, recording audio.Encoded, prompt string) (string, error) {
	if recording.Empty() || len(recording.Data) == 0 {
		return "", voxErrors.Audio("recording is empty", nil)
	}
	if prompt == "" {
		prompt = c.prompt
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	format := recording.Format
	if format == "" {
		format = audio.FormatWAV
	}

	start := time.Now()
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: "recording." + format,
		Reader:   bytes.NewReader(recording.Data),
		Prompt:   prompt,
		Language: c.language,
	})
	if err != nil {
		mapped := c.mapper.MapError(err)
		slog.Warn("Transcription failed",
			"model", c.model,
			"kind", voxErrors.Category(mapped),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", mapped
	}

	text := strings.TrimSpace(resp.Text)
	slog.Info("Transcription completed",
		"model", c.model,
		"audio_ms", recording.DurationMS(),
		"characters", len([]rune(text)),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// Ping lists models to check the key and the endpoint.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return c.mapper.MapError(err)
	}
	return nil
}
