//go:build !windows && !darwin

package config

// PulseAudio capture and xdotool typing. The global shortcut hook is not
// available here, so shortcuts start disabled.
const (
	DefaultRecordingInputFormat = "pulse"
	DefaultInjectionCommand     = "xdotool type --clearmodifiers --"
	DefaultInjectionMode        = "direct"
	DefaultShortcutEnabled      = false
)
