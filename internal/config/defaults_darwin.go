//go:build darwin

package config

const (
	DefaultRecordingInputFormat = "avfoundation"
	DefaultInjectionCommand     = ""
	DefaultInjectionMode        = "paste"
	DefaultShortcutEnabled      = false
)
