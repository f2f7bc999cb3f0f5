package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

const FormatWAV = "wav"

// EncodeWAV writes 16-bit PCM to a scratch file, reads it back and removes it.
// An empty recording yields an Encoded with no data.
func EncodeWAV(samples []int, sampleRate, channels int, scratchDir string) (Encoded, error) {
	if sampleRate <= 0 || channels <= 0 {
		return Encoded{}, fmt.Errorf("invalid format: rate=%d channels=%d", sampleRate, channels)
	}
	if len(samples) == 0 {
		return Encoded{SampleRate: sampleRate, Channels: channels, Format: FormatWAV}, nil
	}
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	if err := os.MkdirAll(scratchDir, 0700); err != nil {
		return Encoded{}, fmt.Errorf("create scratch dir: %w", err)
	}

	path := filepath.Join(scratchDir, scratchName())
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return Encoded{}, fmt.Errorf("create wav file: %w", err)
	}
	defer os.Remove(path)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return Encoded{}, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return Encoded{}, fmt.Errorf("close wav encoder: %w", err)
	}
	if err := f.Close(); err != nil {
		return Encoded{}, fmt.Errorf("close wav file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Encoded{}, fmt.Errorf("read wav file: %w", err)
	}

	return Encoded{
		Data:       data,
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    len(samples),
		Format:     FormatWAV,
	}, nil
}

func scratchName() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	return fmt.Sprintf("voxd_%s.wav", id)
}
