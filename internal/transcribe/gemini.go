package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/voxd/internal/audio"
	"github.com/harunnryd/voxd/internal/config"
	voxErrors "github.com/harunnryd/voxd/internal/errors"

	"google.golang.org/genai"
)

const geminiInstruction = "Transcribe the speech in this audio recording verbatim. " +
	"Reply with the transcript only, without commentary, labels or quotes. " +
	"If there is no speech, reply with an empty message."

// GeminiClient transcribes by sending the WAV inline to a Gemini model.
type GeminiClient struct {
	client   *genai.Client
	model    string
	language string
	prompt   string
	timeout  time.Duration
	mapper   voxErrors.ErrorMapper
}

func NewGeminiClient(cfg config.TranscriptionConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, voxErrors.InvalidInput("transcription.api_key is empty; set GEMINI_API_KEY")
	}
	timeout, err := config.DurationOrDefault(cfg.RequestTimeout, config.DefaultTranscriptionRequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid transcription.request_timeout: %w", err)
	}

	clientCfg := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSuffix(baseURL, "/") + "/"}
	}
	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = config.DefaultGeminiTranscriptionModel
	}

	return &GeminiClient{
		client:   client,
		model:    model,
		language: cfg.Language,
		prompt:   cfg.Prompt,
		timeout:  timeout,
		mapper:   voxErrors.NewDefaultErrorMapper(),
	}, nil
}

func (c *GeminiClient) Name() string {
	return "gemini"
}

func (c *GeminiClient) instruction(prompt string) string {
	var b strings.Builder
	b.WriteString(geminiInstruction)
	if c.language != "" {
		fmt.Fprintf(&b, " The speaker uses language code %q.", c.language)
	}
	if prompt != "" {
		b.WriteString(" Context and spelling hints: ")
		b.WriteString(prompt)
	}
	return b.String()
}

// Transcribe has the same contract as OpenAIClient.Transcribe.
func (c *GeminiClient) Transcribe(ctx context.Context, recording audio.Encoded, prompt string) (string, error) {
	if recording.Empty() || len(recording.Data) == 0 {
		return "", voxErrors.Audio("recording is empty", nil)
	}
	if prompt == "" {
		prompt = c.prompt
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(c.instruction(prompt)),
			genai.NewPartFromBytes(recording.Data, "audio/wav"),
		}, genai.RoleUser),
	}
	temperature := float32(0)

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{Temperature: &temperature})
	if err != nil {
		mapped := c.mapError(err)
		slog.Warn("Transcription failed",
			"model", c.model,
			"kind", voxErrors.Category(mapped),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", mapped
	}

	var text string
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}
	}
	text = strings.TrimSpace(text)

	slog.Info("Transcription completed",
		"model", c.model,
		"audio_ms", recording.DurationMS(),
		"characters", len([]rune(text)),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// Ping checks the key and model by fetching the model metadata.
func (c *GeminiClient) Ping(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.model, nil); err != nil {
		return c.mapError(err)
	}
	return nil
}

func (c *GeminiClient) mapError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}

	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return voxErrors.Transcription("authentication rejected, check GEMINI_API_KEY", err)
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(err.Error()), "api key") {
			return voxErrors.Transcription("authentication rejected, check GEMINI_API_KEY", err)
		}
	}
	return c.mapper.MapError(err)
}
