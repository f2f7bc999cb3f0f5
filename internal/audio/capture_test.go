package audio

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/harunnryd/voxd/internal/config"
	voxErrors "github.com/harunnryd/voxd/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for ffmpeg")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o700))
	return path
}

func newTestCapture(t *testing.T, script string) *FFmpegCapture {
	return NewFFmpegCapture(CaptureConfig{
		Command:     script,
		SampleRate:  8000,
		Channels:    1,
		MaxDuration: time.Second,
		ScratchDir:  t.TempDir(),
		StartupWait: 100 * time.Millisecond,
		StopTimeout: time.Second,
	})
}

func TestFFmpegCaptureRecordsAndEncodes(t *testing.T) {
	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf '\\x01\\x00\\x02\\x00\\xff\\xff'\nexec sleep 5\n")
	c := newTestCapture(t, script)

	require.NoError(t, c.Begin(context.Background()))
	assert.True(t, c.Capturing())
	time.Sleep(50 * time.Millisecond)

	enc, err := c.Finalize(context.Background())
	require.NoError(t, err)
	assert.False(t, c.Capturing())

	assert.Equal(t, 3, enc.Samples)
	assert.Equal(t, 8000, enc.SampleRate)
	assert.Equal(t, FormatWAV, enc.Format)
	assert.True(t, bytes.HasPrefix(enc.Data, []byte("RIFF")))

	entries, err := os.ReadDir(c.cfg.ScratchDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch file is removed")
}

func TestFFmpegCaptureReusesBuffer(t *testing.T) {
	script := writeScript(t, "once.sh", "#!/usr/bin/env bash\nif [ ! -e \"$0.done\" ]; then touch \"$0.done\"; printf '\\x01\\x00\\x02\\x00'; fi\nexec sleep 5\n")
	c := newTestCapture(t, script)
	capacity := c.buffer.Cap()

	require.NoError(t, c.Begin(context.Background()))
	time.Sleep(50 * time.Millisecond)
	first, err := c.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Samples)

	require.NoError(t, c.Begin(context.Background()))
	second, err := c.Finalize(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Empty(), "samples from the previous recording must not leak")
	assert.Equal(t, capacity, c.buffer.Cap())
}

func TestFFmpegCaptureEmptyRecording(t *testing.T) {
	script := writeScript(t, "silent.sh", "#!/usr/bin/env bash\nexec sleep 5\n")
	c := newTestCapture(t, script)

	require.NoError(t, c.Begin(context.Background()))
	enc, err := c.Finalize(context.Background())
	require.NoError(t, err)
	assert.True(t, enc.Empty())
	assert.Empty(t, enc.Data)
}

func TestFFmpegCaptureEarlyExit(t *testing.T) {
	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'no such device' 1>&2\nexit 1\n")
	c := newTestCapture(t, script)
	c.cfg.StartupWait = time.Second

	err := c.Begin(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, voxErrors.ErrAudio))
	assert.Contains(t, err.Error(), "exited before capture started")
	assert.Contains(t, err.Error(), "no such device")
	assert.False(t, c.Capturing())
}

func TestFFmpegCaptureMissingBinary(t *testing.T) {
	c := newTestCapture(t, filepath.Join(t.TempDir(), "missing-ffmpeg"))
	err := c.Begin(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, voxErrors.ErrAudio))
}

func TestFFmpegCaptureRejectsOverlap(t *testing.T) {
	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nexec sleep 5\n")
	c := newTestCapture(t, script)

	require.NoError(t, c.Begin(context.Background()))
	err := c.Begin(context.Background())
	assert.True(t, errors.Is(err, voxErrors.ErrAudio))

	_, err = c.Finalize(context.Background())
	require.NoError(t, err)
}

func TestFFmpegCaptureFinalizeWithoutBegin(t *testing.T) {
	c := NewFFmpegCapture(CaptureConfig{})
	_, err := c.Finalize(context.Background())
	assert.True(t, errors.Is(err, voxErrors.ErrAudio))
}

func TestCaptureConfigDefaults(t *testing.T) {
	c := NewFFmpegCapture(CaptureConfig{})
	assert.Equal(t, "ffmpeg", c.cfg.Command)
	assert.Equal(t, 16000, c.cfg.SampleRate)
	assert.Equal(t, 30*time.Second, c.cfg.MaxDuration)
	assert.Equal(t, config.DefaultRecordingInputFormat, c.cfg.InputFormat)
	assert.Equal(t, []string{
		"-nostdin", "-hide_banner", "-loglevel", "warning",
		"-f", c.cfg.InputFormat, "-i", "default",
		"-ac", "1", "-ar", "16000",
		"-f", "s16le", "-",
	}, c.args("default"))
}

func TestNormalizeStopErrIgnoresExitError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs bash")
	}
	err := exec.Command("bash", "-c", "exit 1").Run()
	require.Error(t, err)
	assert.NoError(t, normalizeStopErr(err))
	assert.Error(t, normalizeStopErr(errors.New("pipe broke")))
}
