//go:build windows

package config

// DirectShow capture picks the first microphone when the device is "default".
// There is no typing tool to shell out to, so transcripts go through the
// clipboard and a synthesized Ctrl+V.
const (
	DefaultRecordingInputFormat = "dshow"
	DefaultInjectionCommand     = ""
	DefaultInjectionMode        = "paste"
	DefaultShortcutEnabled      = true
)
