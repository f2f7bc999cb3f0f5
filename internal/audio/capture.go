package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/harunnryd/voxd/internal/config"
	voxErrors "github.com/harunnryd/voxd/internal/errors"
)

const (
	defaultStartupWait = 250 * time.Millisecond
	defaultStopTimeout = 1200 * time.Millisecond
)

type CaptureConfig struct {
	Command     string
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
	MaxDuration time.Duration
	ScratchDir  string
	StartupWait time.Duration
	StopTimeout time.Duration
}

// CaptureConfigFrom maps the recording section onto a CaptureConfig.
func CaptureConfigFrom(cfg config.RecordingConfig) (CaptureConfig, error) {
	maxDuration, err := config.DurationOrDefault(cfg.MaxDuration, config.DefaultRecordingMaxDuration)
	if err != nil {
		return CaptureConfig{}, fmt.Errorf("invalid recording.max_duration: %w", err)
	}
	return CaptureConfig{
		Command:     cfg.FFmpegCommand,
		InputFormat: cfg.InputFormat,
		InputDevice: cfg.InputDevice,
		SampleRate:  cfg.SampleRate,
		Channels:    cfg.Channels,
		MaxDuration: maxDuration,
		ScratchDir:  cfg.ScratchDir,
	}, nil
}

func (c *CaptureConfig) applyDefaults() {
	if c.Command == "" {
		c.Command = config.DefaultRecordingFFmpegCommand
	}
	if c.InputFormat == "" {
		c.InputFormat = config.DefaultRecordingInputFormat
	}
	if c.InputDevice == "" {
		c.InputDevice = config.DefaultRecordingInputDevice
	}
	c.SampleRate = config.IntOrDefault(c.SampleRate, config.DefaultRecordingSampleRate)
	c.Channels = config.IntOrDefault(c.Channels, config.DefaultRecordingChannels)
	if c.MaxDuration <= 0 {
		c.MaxDuration, _ = config.DurationOrDefault("", config.DefaultRecordingMaxDuration)
	}
	if c.StartupWait <= 0 {
		c.StartupWait = defaultStartupWait
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = defaultStopTimeout
	}
}

// FFmpegCapture records microphone PCM by running ffmpeg with raw s16le output.
// The sample buffer is allocated once and reused by every recording.
type FFmpegCapture struct {
	cfg    CaptureConfig
	mu     sync.Mutex
	active *ffmpegSession
	buffer *SampleBuffer
}

func NewFFmpegCapture(cfg CaptureConfig) *FFmpegCapture {
	cfg.applyDefaults()
	return &FFmpegCapture{
		cfg:    cfg,
		buffer: NewSampleBuffer(cfg.SampleRate, cfg.Channels, cfg.MaxDuration.Seconds()),
	}
}

func (c *FFmpegCapture) args(input string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.cfg.InputFormat,
		"-i", input,
		"-ac", strconv.Itoa(c.cfg.Channels),
		"-ar", strconv.Itoa(c.cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

// Begin starts ffmpeg. The process outlives ctx; only Finalize stops it.
func (c *FFmpegCapture) Begin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return voxErrors.Audio("capture already running", nil)
	}

	input, err := c.inputSpec(ctx)
	if err != nil {
		return err
	}

	// the previous session's pump has exited by the time Finalize returned
	c.buffer.Reset()

	cmd := exec.Command(c.cfg.Command, c.args(input)...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return voxErrors.Audio("failed to create ffmpeg stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return voxErrors.Audio("failed to start ffmpeg", err)
	}

	s := &ffmpegSession{
		process: cmd.Process,
		stderr:  stderr,
		buffer:  c.buffer,
		waitErr: make(chan error, 1),
	}

	// Wait closes stdout, so it runs only after the pump has drained it.
	go func() {
		_, copyErr := io.Copy(s.buffer, stdout)
		err := cmd.Wait()
		if err == nil && copyErr != nil && !errors.Is(copyErr, os.ErrClosed) {
			err = copyErr
		}
		s.waitErr <- err
		close(s.waitErr)
	}()

	select {
	case err := <-s.waitErr:
		if err != nil {
			return voxErrors.Audio(fmt.Sprintf("ffmpeg exited before capture started: %s", stderr.trimmed()), err)
		}
		return voxErrors.Audio("ffmpeg exited before capture started", nil)
	case <-ctx.Done():
		s.kill()
		return voxErrors.Audio("capture start cancelled", ctx.Err())
	case <-time.After(c.cfg.StartupWait):
	}

	s.startedAt = time.Now()
	c.active = s
	slog.Info("Audio capture started",
		"command", c.cfg.Command,
		"format", c.cfg.InputFormat,
		"device", input,
		"sample_rate", c.cfg.SampleRate,
		"channels", c.cfg.Channels,
	)
	return nil
}

// Finalize stops ffmpeg and encodes what was captured.
func (c *FFmpegCapture) Finalize(ctx context.Context) (Encoded, error) {
	c.mu.Lock()
	s := c.active
	c.active = nil
	c.mu.Unlock()

	if s == nil {
		return Encoded{}, voxErrors.Audio("no capture in progress", nil)
	}

	if err := s.stop(ctx, c.cfg.StopTimeout); err != nil {
		return Encoded{}, voxErrors.Audio("recording failed", err)
	}

	if dropped := s.buffer.Dropped(); dropped > 0 {
		slog.Warn("Audio buffer full, samples dropped", "dropped", dropped, "kept", s.buffer.Len())
	}

	encoded, err := EncodeWAV(s.buffer.Samples(), c.cfg.SampleRate, c.cfg.Channels, c.cfg.ScratchDir)
	if err != nil {
		return Encoded{}, voxErrors.Audio("encode recording", err)
	}

	slog.Info("Audio capture finished",
		"samples", encoded.Samples,
		"duration_ms", encoded.DurationMS(),
		"wall_ms", time.Since(s.startedAt).Milliseconds(),
	)
	return encoded, nil
}

// Capturing reports whether ffmpeg is running.
func (c *FFmpegCapture) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

type ffmpegSession struct {
	process   *os.Process
	stderr    *lockedBuffer
	buffer    *SampleBuffer
	waitErr   chan error
	startedAt time.Time
}

func (s *ffmpegSession) stop(ctx context.Context, timeout time.Duration) error {
	if err := s.process.Signal(os.Interrupt); err != nil {
		// no SIGINT on windows
		s.kill()
	}

	var err error
	select {
	case err = <-s.waitErr:
	case <-time.After(timeout):
		s.kill()
		err = <-s.waitErr
	case <-ctx.Done():
		s.kill()
		err = <-s.waitErr
	}

	err = normalizeStopErr(err)
	if err != nil && s.stderr.Len() > 0 {
		err = fmt.Errorf("%w: %s", err, s.stderr.trimmed())
	}
	return err
}

func (s *ffmpegSession) kill() {
	if s.process != nil {
		_ = s.process.Kill()
	}
}

// ffmpeg exits non-zero on SIGINT; that is the normal stop path.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// lockedBuffer collects stderr while exec copies into it from another goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *lockedBuffer) trimmed() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(bytes.TrimSpace(b.buf.Bytes()))
}
