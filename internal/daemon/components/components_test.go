package components

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/harunnryd/voxd/internal/config"
	"github.com/harunnryd/voxd/internal/daemon"
	voxErrors "github.com/harunnryd/voxd/internal/errors"
	"github.com/harunnryd/voxd/internal/ipc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unix socket paths are length limited, so avoid t.TempDir's long names
func shortDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "vx")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := shortDir(t)
	return &config.Config{
		Daemon: config.DaemonConfig{
			RuntimeDir:  dir,
			LockTimeout: "100ms",
			LockRetry:   "20ms",
		},
		IPC: config.IPCConfig{
			SocketPath:    filepath.Join(dir, "voxd.sock"),
			ClientTimeout: "5s",
		},
		Recording: config.RecordingConfig{
			FFmpegCommand: "true",
			MaxDuration:   "30s",
			ScratchDir:    filepath.Join(dir, "scratch"),
		},
		Transcription: config.TranscriptionConfig{
			APIKey:  "sk-test",
			BaseURL: "http://127.0.0.1:1/v1",
		},
		Dictionary: config.DictionaryConfig{Path: filepath.Join(dir, "dictionary.yaml")},
		Injection:  config.InjectionConfig{Command: "true"},
	}
}

type staticSource struct {
	handler ipc.Handler
}

func (s staticSource) Handler() ipc.Handler {
	return s.handler
}

func TestInstanceLockComponentIsExclusive(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first := NewInstanceLockComponent(cfg.Daemon.RuntimeDir, &cfg.Daemon)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.Start(ctx))

	health, err := first.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy)

	second := NewInstanceLockComponent(cfg.Daemon.RuntimeDir, &cfg.Daemon)
	err = second.Init(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	health, _ = second.Health(ctx)
	assert.False(t, health.Healthy)
	require.NoError(t, second.Stop(ctx))

	require.NoError(t, first.Stop(ctx))
	require.NoError(t, second.Init(ctx))
	require.NoError(t, second.Stop(ctx))
}

func TestIPCListenerComponentServes(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	handler := ipc.HandlerFunc(func(ctx context.Context, cmd ipc.Command) ipc.Response {
		return ipc.Success(cmd.ID, "pong", nil)
	})
	comp := NewIPCListenerComponent(&cfg.IPC, staticSource{handler: handler})

	require.NoError(t, comp.Init(ctx))
	require.NoError(t, comp.Start(ctx))

	resp, err := ipc.NewClient(cfg.IPC.SocketPath, 2*time.Second).Send(ctx, ipc.NewCommand(ipc.CmdStatus))
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Message)

	health, _ := comp.Health(ctx)
	assert.True(t, health.Healthy)

	require.NoError(t, comp.Stop(ctx))
	_, err = os.Stat(cfg.IPC.SocketPath)
	assert.True(t, os.IsNotExist(err), "socket file should be removed")

	health, _ = comp.Health(ctx)
	assert.False(t, health.Healthy)
}

func TestIPCListenerComponentRequiresHandler(t *testing.T) {
	cfg := testConfig(t)
	comp := NewIPCListenerComponent(&cfg.IPC, staticSource{})
	assert.Error(t, comp.Init(context.Background()))
	assert.Error(t, comp.Start(context.Background()))
	assert.NoError(t, comp.Stop(context.Background()))
}

func TestRouterComponentRequiresAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcription.APIKey = ""

	comp := NewRouterComponent(cfg, cfg.Daemon.RuntimeDir, nil)
	err := comp.Init(context.Background())
	require.Error(t, err)
	assert.Nil(t, comp.Handler())
	assert.NoError(t, comp.Stop(context.Background()))
}

// startStack brings the three daemon components up in dependency order.
func startStack(t *testing.T, cfg *config.Config) (*daemon.Daemon, *ipc.Client) {
	t.Helper()
	ctx := context.Background()

	d, err := daemon.NewDaemon(cfg)
	require.NoError(t, err)

	lock := NewInstanceLockComponent(d.RuntimeDir(), &cfg.Daemon)
	rt := NewRouterComponent(cfg, d.RuntimeDir(), d.HealthSummary)
	listener := NewIPCListenerComponent(&cfg.IPC, rt, rt.Name())

	comps := []daemon.Component{lock, rt, listener}
	for _, c := range comps {
		d.AddComponent(c)
		require.NoError(t, c.Init(ctx), c.Name())
	}
	for _, c := range comps {
		require.NoError(t, c.Start(ctx), c.Name())
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(comps) - 1; i >= 0; i-- {
			_ = comps[i].Stop(stopCtx)
		}
	})

	return d, ipc.NewClient(cfg.IPC.SocketPath, 5*time.Second)
}

func send(t *testing.T, client *ipc.Client, cmd ipc.Command) ipc.Response {
	t.Helper()
	resp, err := client.Send(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, cmd.ID, resp.ID)
	return resp
}

func TestDaemonComponentsEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	d, client := startStack(t, cfg)

	resp := send(t, client, ipc.NewCommand(ipc.CmdStatus))
	require.True(t, resp.OK)
	assert.Equal(t, "idle", resp.Message)

	resp = send(t, client, ipc.NewCommand(ipc.CmdEnableStackMode))
	require.True(t, resp.OK)
	assert.Contains(t, resp.Message, "keyboard shortcuts are disabled")

	resp = send(t, client, ipc.NewCommand(ipc.CmdListStacks))
	assert.Equal(t, "no stacks saved", resp.Message)

	paste := ipc.NewCommand(ipc.CmdPasteStack)
	paste.StackID = 1
	resp = send(t, client, paste)
	assert.False(t, resp.OK)
	assert.Equal(t, voxErrors.KindStackNotFound, resp.ErrorKind)

	resp = send(t, client, ipc.NewCommand(ipc.CmdStop))
	assert.Equal(t, voxErrors.KindNoActiveSession, resp.ErrorKind)

	resp = send(t, client, ipc.NewCommand(ipc.CmdListDevices))
	require.True(t, resp.OK, resp.Message)
	assert.Equal(t, "no input devices detected", resp.Message)

	// "true" lists no devices and nothing listens on the API port
	resp = send(t, client, ipc.NewCommand(ipc.CmdHealth))
	require.True(t, resp.OK)
	var health ipc.HealthPayload
	require.NoError(t, resp.DecodePayload(&health))
	assert.Equal(t, "degraded", health.Status)
	for _, name := range []string{"InstanceLock", "Router", "IPCListener", "router"} {
		assert.Equal(t, "healthy", health.Components[name], name)
	}
	assert.Contains(t, health.Components["input_device"], "no input devices detected")
	assert.Contains(t, health.Components["transcription_api"], "unhealthy")

	for name, h := range d.ComponentHealth() {
		assert.True(t, h.Healthy, name)
	}
}

func TestSecondDaemonRefused(t *testing.T) {
	cfg := testConfig(t)
	startStack(t, cfg)

	lock := NewInstanceLockComponent(cfg.Daemon.RuntimeDir, &cfg.Daemon)
	err := lock.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	// a listener alone still refuses to steal a live socket
	listener := NewIPCListenerComponent(&cfg.IPC, staticSource{handler: ipc.HandlerFunc(
		func(ctx context.Context, cmd ipc.Command) ipc.Response { return ipc.Success(cmd.ID, "", nil) },
	)})
	err = listener.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use")
}

func TestShortcutsUnavailableOffWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("the system hook installs on windows")
	}
	cfg := testConfig(t)
	cfg.Shortcut = config.ShortcutConfig{Enabled: true, Modifier: "meta", ToggleKey: "r", ClearKey: "backspace"}
	_, client := startStack(t, cfg)

	resp := send(t, client, ipc.NewCommand(ipc.CmdEnableStackMode))
	require.True(t, resp.OK)
	assert.Contains(t, resp.Message, "shortcuts unavailable")

	resp = send(t, client, ipc.NewCommand(ipc.CmdClearStacks))
	assert.Equal(t, "nothing to clear", resp.Message)
}
