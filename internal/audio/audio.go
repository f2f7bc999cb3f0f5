// Package audio captures microphone PCM and encodes it for upload.
package audio

import "context"

// Capturer records one utterance at a time.
type Capturer interface {
	Begin(ctx context.Context) error
	Finalize(ctx context.Context) (Encoded, error)
}

// Encoded is a finished recording ready for transcription.
type Encoded struct {
	Data       []byte
	SampleRate int
	Channels   int
	Samples    int
	Format     string
}

func (e Encoded) Empty() bool {
	return e.Samples == 0
}

// Duration in milliseconds, computed from the frame count.
func (e Encoded) DurationMS() int64 {
	if e.SampleRate <= 0 || e.Channels <= 0 {
		return 0
	}
	frames := int64(e.Samples / e.Channels)
	return frames * 1000 / int64(e.SampleRate)
}
