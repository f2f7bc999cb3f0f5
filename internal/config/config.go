package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/voxd/internal/pathutil"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Daemon        DaemonConfig        `koanf:"daemon"`
	IPC           IPCConfig           `koanf:"ipc"`
	Router        RouterConfig        `koanf:"router"`
	Recording     RecordingConfig     `koanf:"recording"`
	Transcription TranscriptionConfig `koanf:"transcription"`
	Dictionary    DictionaryConfig    `koanf:"dictionary"`
	Stack         StackConfig         `koanf:"stack"`
	Shortcut      ShortcutConfig      `koanf:"shortcut"`
	Injection     InjectionConfig     `koanf:"injection"`
	Overlay       OverlayConfig       `koanf:"overlay"`
	Feedback      FeedbackConfig      `koanf:"feedback"`
}

type DaemonConfig struct {
	LogLevel               string `koanf:"log_level"`
	RuntimeDir             string `koanf:"runtime_dir"`
	ShutdownTimeout        string `koanf:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout"`
	PreflightTimeout       string `koanf:"preflight_timeout"`
	LockTimeout            string `koanf:"lock_timeout"`
	LockRetry              string `koanf:"lock_retry"`
}

type IPCConfig struct {
	SocketPath      string `koanf:"socket_path"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	ClientTimeout   string `koanf:"client_timeout"`
	MaxMessageBytes int    `koanf:"max_message_bytes"`
}

type RouterConfig struct {
	InboxSize         int    `koanf:"inbox_size"`
	SubmitTimeout     string `koanf:"submit_timeout"`
	CheckTimeout      string `koanf:"check_timeout"`
	ShortcutQueueSize int    `koanf:"shortcut_queue_size"`
}

type RecordingConfig struct {
	MaxDuration   string `koanf:"max_duration"`
	FFmpegCommand string `koanf:"ffmpeg_command"`
	InputFormat   string `koanf:"input_format"`
	InputDevice   string `koanf:"input_device"`
	SampleRate    int    `koanf:"sample_rate"`
	Channels      int    `koanf:"channels"`
	ScratchDir    string `koanf:"scratch_dir"`
}

type TranscriptionConfig struct {
	Provider       string `koanf:"provider"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	Model          string `koanf:"model"`
	Language       string `koanf:"language"`
	Prompt         string `koanf:"prompt"`
	RequestTimeout string `koanf:"request_timeout"`
}

type DictionaryConfig struct {
	Path string `koanf:"path"`
}

type StackConfig struct {
	Capacity      int `koanf:"capacity"`
	MaxEntrySize  int `koanf:"max_entry_size"`
	PreviewLength int `koanf:"preview_length"`
}

type ShortcutConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Modifier  string `koanf:"modifier"`
	ToggleKey string `koanf:"toggle_key"`
	ClearKey  string `koanf:"clear_key"`
}

type InjectionConfig struct {
	Command     string `koanf:"command"`
	DefaultMode string `koanf:"default_mode"`
	PasteDelay  string `koanf:"paste_delay"`
}

// FeedbackConfig controls the start and stop cues.
type FeedbackConfig struct {
	Sounds bool `koanf:"sounds"`
}

type OverlayConfig struct {
	SocketPath           string `koanf:"socket_path"`
	DialTimeout          string `koanf:"dial_timeout"`
	DesktopNotifications bool   `koanf:"desktop_notifications"`
}

const (
	DefaultDaemonLogLevel               = "info"
	DefaultDaemonShutdownTimeout        = "10s"
	DefaultDaemonHealthCheckInterval    = "30s"
	DefaultDaemonStartupShutdownTimeout = "5s"
	DefaultDaemonPreflightTimeout       = "5s"
	DefaultDaemonLockTimeout            = "2s"
	DefaultDaemonLockRetry              = "100ms"
	DefaultIPCSocketName                = "voxd.sock"
	DefaultIPCReadTimeout               = "5s"
	DefaultIPCWriteTimeout              = "5s"
	DefaultIPCClientTimeout             = "60s"
	DefaultIPCMaxMessageBytes           = 64 * 1024
	DefaultRouterInboxSize              = 32
	DefaultRouterSubmitTimeout          = "500ms"
	DefaultRouterCheckTimeout           = "5s"
	DefaultRouterShortcutQueueSize      = 16
	DefaultRecordingMaxDuration         = "30s"
	DefaultRecordingFFmpegCommand       = "ffmpeg"
	DefaultRecordingInputDevice         = "default"
	DefaultRecordingSampleRate          = 16000
	DefaultRecordingChannels            = 1
	DefaultTranscriptionBaseURL         = "https://api.openai.com/v1"
	DefaultTranscriptionProvider        = TranscriptionProviderOpenAI
	DefaultTranscriptionModel           = "gpt-4o-mini-transcribe"
	DefaultGeminiTranscriptionModel     = "gemini-2.5-flash"
	DefaultTranscriptionRequestTimeout  = "30s"
	DefaultStackCapacity                = 50
	DefaultStackMaxEntrySize            = 10000
	DefaultStackPreviewLength           = 40
	DefaultShortcutModifier             = "meta"
	DefaultShortcutToggleKey            = "r"
	DefaultShortcutClearKey             = "backspace"
	DefaultInjectionPasteDelay          = "80ms"
	DefaultOverlayDialTimeout           = "200ms"
	DefaultOverlayDesktopNotifications  = false
	DefaultOverlaySocketName            = "voxd-overlay.sock"
	DefaultFeedbackSounds               = true
)

const (
	TranscriptionProviderOpenAI = "openai"
	TranscriptionProviderGemini = "gemini"
)

// Load layers defaults, the YAML config file, VOXD_ environment variables and CLI flags.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	if err := loadEnvFile(cmd); err != nil {
		return nil, err
	}

	runtimeDir := pathutil.RuntimeDir()
	home, _ := os.UserHomeDir()

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"daemon.log_level":                DefaultDaemonLogLevel,
		"daemon.runtime_dir":              runtimeDir,
		"daemon.shutdown_timeout":         DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":    DefaultDaemonHealthCheckInterval,
		"daemon.startup_shutdown_timeout": DefaultDaemonStartupShutdownTimeout,
		"daemon.preflight_timeout":        DefaultDaemonPreflightTimeout,
		"daemon.lock_timeout":             DefaultDaemonLockTimeout,
		"daemon.lock_retry":               DefaultDaemonLockRetry,
		"ipc.socket_path":                 filepath.Join(runtimeDir, DefaultIPCSocketName),
		"ipc.read_timeout":                DefaultIPCReadTimeout,
		"ipc.write_timeout":               DefaultIPCWriteTimeout,
		"ipc.client_timeout":              DefaultIPCClientTimeout,
		"ipc.max_message_bytes":           DefaultIPCMaxMessageBytes,
		"router.inbox_size":               DefaultRouterInboxSize,
		"router.submit_timeout":           DefaultRouterSubmitTimeout,
		"router.check_timeout":            DefaultRouterCheckTimeout,
		"router.shortcut_queue_size":      DefaultRouterShortcutQueueSize,
		"recording.max_duration":          DefaultRecordingMaxDuration,
		"recording.ffmpeg_command":        DefaultRecordingFFmpegCommand,
		"recording.input_format":          DefaultRecordingInputFormat,
		"recording.input_device":          DefaultRecordingInputDevice,
		"recording.sample_rate":           DefaultRecordingSampleRate,
		"recording.channels":              DefaultRecordingChannels,
		"recording.scratch_dir":           os.TempDir(),
		"transcription.provider":          DefaultTranscriptionProvider,
		"transcription.request_timeout":   DefaultTranscriptionRequestTimeout,
		"dictionary.path":                 filepath.Join(home, ".voxd", "dictionary.yaml"),
		"stack.capacity":                  DefaultStackCapacity,
		"stack.max_entry_size":            DefaultStackMaxEntrySize,
		"stack.preview_length":            DefaultStackPreviewLength,
		"shortcut.enabled":                DefaultShortcutEnabled,
		"shortcut.modifier":               DefaultShortcutModifier,
		"shortcut.toggle_key":             DefaultShortcutToggleKey,
		"shortcut.clear_key":              DefaultShortcutClearKey,
		"injection.command":               DefaultInjectionCommand,
		"injection.default_mode":          DefaultInjectionMode,
		"injection.paste_delay":           DefaultInjectionPasteDelay,
		"overlay.socket_path":             filepath.Join(runtimeDir, DefaultOverlaySocketName),
		"overlay.dial_timeout":            DefaultOverlayDialTimeout,
		"overlay.desktop_notifications":   DefaultOverlayDesktopNotifications,
		"feedback.sounds":                 DefaultFeedbackSounds,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else if home != "" {
		globalPath := filepath.Join(home, ".voxd", "config.yaml")
		if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
			slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
		}
	}

	// Environment Variables. Section names are single words, so only the
	// first underscore separates section from key.
	k.Load(env.Provider("VOXD_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "VOXD_"))
		return strings.Replace(key, "_", ".", 1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	applyProviderDefaults(&cfg.Transcription)

	return &cfg, nil
}

// applyProviderDefaults fills model, endpoint and key from the provider's own
// defaults, so switching provider does not keep the other one's model name.
func applyProviderDefaults(t *TranscriptionConfig) {
	t.Provider = strings.ToLower(strings.TrimSpace(t.Provider))
	if t.Provider == "" {
		t.Provider = DefaultTranscriptionProvider
	}

	switch t.Provider {
	case TranscriptionProviderGemini:
		if t.Model == "" {
			t.Model = DefaultGeminiTranscriptionModel
		}
		for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if t.APIKey != "" {
				break
			}
			t.APIKey = os.Getenv(name)
		}
	default:
		if t.Model == "" {
			t.Model = DefaultTranscriptionModel
		}
		if t.BaseURL == "" {
			t.BaseURL = DefaultTranscriptionBaseURL
		}
		if t.APIKey == "" {
			t.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// APIKeyHint names where the provider's key is read from.
func (t TranscriptionConfig) APIKeyHint() string {
	if t.Provider == TranscriptionProviderGemini {
		return "transcription.api_key or GEMINI_API_KEY"
	}
	return "transcription.api_key or OPENAI_API_KEY"
}

// loadEnvFile reads KEY=value pairs into the process environment before the env
// provider runs. Existing variables win.
func loadEnvFile(cmd *cobra.Command) error {
	path := strings.TrimSpace(os.Getenv("VOXD_ENV_FILE"))
	if cmd != nil {
		if flag := cmd.Flags().Lookup("env-file"); flag != nil && strings.TrimSpace(flag.Value.String()) != "" {
			path = strings.TrimSpace(flag.Value.String())
		}
	}
	if path == "" {
		return nil
	}

	expanded, err := pathutil.Expand(path)
	if err != nil {
		return err
	}
	return godotenv.Load(expanded)
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	fields := []*string{
		&cfg.Daemon.RuntimeDir,
		&cfg.IPC.SocketPath,
		&cfg.Recording.ScratchDir,
		&cfg.Dictionary.Path,
		&cfg.Overlay.SocketPath,
	}
	for _, field := range fields {
		expanded, err := expandConfiguredPath(*field)
		if err != nil {
			return err
		}
		if expanded != "" {
			*field = expanded
		}
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	expanded, err := pathutil.Expand(trimmed)
	if err != nil {
		return "", err
	}
	return expanded, nil
}
