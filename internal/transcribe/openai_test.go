package transcribe

import (
	"context"
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

func testRecording() audio.Encoded {
	return audio.Encoded{Data: []byte("RIFF....WAVE"), SampleRate: 16000, Channels: 1, Samples: 16000, Format: audio.FormatWAV}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout string) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewOpenAIClient(config.TranscriptionConfig{
		BaseURL:        server.URL + "/v1/",
		APIKey:         "sk-test",
		Model:          "whisper-1",
		Language:       "ja",
		Prompt:         "default prompt",
		RequestTimeout: timeout,
	})
	require.NoError(t, err)
	return c
}

func TestTranscribeSendsMultipartRequest(t *testing.T) {
	var got struct {
		path, auth, model, prompt, language, filename string
		body                                          []byte
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		got.model = r.FormValue("model")
		got.prompt = r.FormValue("prompt")
		got.language = r.FormValue("language")
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		got.filename = header.Filename
		got.body, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  hello world \n"}`))
	}, "5s")

	text, err := c.Transcribe(context.Background(), testRecording(), "")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	assert.Equal(t, "/v1/audio/transcriptions", got.path)
	assert.Equal(t, "Bearer sk-test", got.auth)
	assert.Equal(t, "whisper-1", got.model)
	assert.Equal(t, "default prompt", got.prompt)
	assert.Equal(t, "ja", got.language)
	assert.Equal(t, "recording.wav", got.filename)
	assert.Equal(t, []byte("RIFF....WAVE"), got.body)
}

func TestTranscribePromptOverride(t *testing.T) {
	var prompt string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		prompt = r.FormValue("prompt")
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	}, "5s")

	_, err := c.Transcribe(context.Background(), testRecording(), "meeting notes")
	require.NoError(t, err)
	assert.Equal(t, "meeting notes", prompt)
}

func TestTranscribeMapsBackendErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		hint   string
	}{
		{"unauthorized", http.StatusUnauthorized, "OPENAI_API_KEY"},
		{"rate limited", http.StatusTooManyRequests, "rate limited"},
		{"server error", http.StatusInternalServerError, "backend error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			}, "5s")

			_, err := c.Transcribe(context.Background(), testRecording(), "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, voxErrors.ErrTranscription))
			assert.Contains(t, err.Error(), tt.hint)
		})
	}
}

func TestTranscribeTimesOut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
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

func TestTranscribeRejectsEmptyRecording(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true }, "5s")

	_, err := c.Transcribe(context.Background(), audio.Encoded{SampleRate: 16000, Channels: 1}, "")
	assert.True(t, errors.Is(err, voxErrors.ErrAudio))
	assert.False(t, called)
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := NewOpenAIClient(config.TranscriptionConfig{})
	assert.True(t, errors.Is(err, voxErrors.ErrInvalidInput))

	_, err = NewOpenAIClient(config.TranscriptionConfig{APIKey: "k", RequestTimeout: "forever"})
	assert.Error(t, err)

	c, err := NewOpenAIClient(config.TranscriptionConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTranscriptionModel, c.model)
	assert.Equal(t, 30*time.Second, c.timeout)
	assert.Equal(t, "openai", c.Name())
}

func TestOpenAIPing(t *testing.T) {
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"whisper-1","object":"model"}]}`))
	}, "5s")
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "/v1/models", path)

	denied := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}, "5s")
	err := denied.Ping(context.Background())
	assert.True(t, errors.Is(err, voxErrors.ErrTranscription))
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestNewSelectsProvider(t *testing.T) {
	c, err := New(config.TranscriptionConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	c, err = New(config.TranscriptionConfig{Provider: config.TranscriptionProviderGemini, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Name())

	_, err = New(config.TranscriptionConfig{Provider: "carrier-pigeon", APIKey: "k"})
	assert.True(t, errors.Is(err, voxErrors.ErrInvalidInput))
}
