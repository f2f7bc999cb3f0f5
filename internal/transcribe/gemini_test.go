package transcribe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harunnryd/voxd/internal/audio"
	"github.com/harunnryd/voxd/internal/config"
	voxErrors "github.com/harunnryd/voxd/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type geminiRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
}

func newGeminiTestClient(t *testing.T, handler http.HandlerFunc, timeout string) *GeminiClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewGeminiClient(config.TranscriptionConfig{
		Provider:       config.TranscriptionProviderGemini,
		BaseURL:        server.URL,
		APIKey:         "gm-test",
		Model:          "gemini-2.5-flash",
		Language:       "ja",
		Prompt:         "default prompt",
		RequestTimeout: timeout,
	})
	require.NoError(t, err)
	return c
}

func writeGeminiText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
		}},
	})
}

func TestGeminiTranscribeSendsInlineAudio(t *testing.T) {
	var (
		path, key string
		req       geminiRequest
	)
	c := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		writeGeminiText(w, "  hello world \n")
	}, "5s")

	text, err := c.Transcribe(context.Background(), testRecording(), "meeting notes")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", path)
	assert.Equal(t, "gm-test", key)
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "user", req.Contents[0].Role)
	require.Len(t, req.Contents[0].Parts, 2)
	assert.Contains(t, req.Contents[0].Parts[0].Text, "meeting notes")
	assert.Contains(t, req.Contents[0].Parts[0].Text, `"ja"`)

	inline := req.Contents[0].Parts[1].InlineData
	require.NotNil(t, inline)
	assert.Equal(t, "audio/wav", inline.MimeType)
	data, err := base64.StdEncoding.DecodeString(inline.Data)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF....WAVE"), data)
}

func TestGeminiTranscribeUsesConfiguredPrompt(t *testing.T) {
	var req geminiRequest
	c := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeGeminiText(w, "")
	}, "5s")

	text, err := c.Transcribe(context.Background(), testRecording(), "")
	require.NoError(t, err)
	assert.Empty(t, text)
	require.Len(t, req.Contents, 1)
	assert.Contains(t, req.Contents[0].Parts[0].Text, "default prompt")
}

func TestGeminiMapsBackendErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		hint   string
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`, "GEMINI_API_KEY"},
		{"bad key", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`, "GEMINI_API_KEY"},
		{"quota", http.StatusTooManyRequests, `{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`, "rate limited"},
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`, "backend error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "5s")

			_, err := c.Transcribe(context.Background(), testRecording(), "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, voxErrors.ErrTranscription))
			assert.Contains(t, err.Error(), tt.hint)
		})
	}
}

func TestGeminiTimesOut(t *testing.T) {
	c := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, "50ms")

	_, err := c.Transcribe(context.Background(), testRecording(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, voxErrors.ErrTranscription))
	assert.Contains(t, err.Error(), "timed out")
}

func TestGeminiRejectsEmptyRecording(t *testing.T) {
	called := false
	c := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true }, "5s")

	_, err := c.Transcribe(context.Background(), audio.Encoded{SampleRate: 16000, Channels: 1}, "")
	assert.True(t, errors.Is(err, voxErrors.ErrAudio))
	assert.False(t, called)
}

func TestGeminiPing(t *testing.T) {
	var path string
	c := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"models/gemini-2.5-flash","displayName":"Gemini 2.5 Flash"}`))
	}, "5s")
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash", path)
}

func TestNewGeminiClientValidation(t *testing.T) {
	_, err := NewGeminiClient(config.TranscriptionConfig{Provider: config.TranscriptionProviderGemini})
	assert.True(t, errors.Is(err, voxErrors.ErrInvalidInput))

	c, err := NewGeminiClient(config.TranscriptionConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultGeminiTranscriptionModel, c.model)
	assert.Equal(t, 30*time.Second, c.timeout)
}
