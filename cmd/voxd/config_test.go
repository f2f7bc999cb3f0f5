package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harunnryd/voxd/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func TestConfigInitCmd(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	if err := configInitCmd.RunE(&cobra.Command{}, nil); err != nil {
		t.Fatalf("Config init failed: %v", err)
	}

	configPath := filepath.Join(tmpDir, ".voxd", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Config file not created at %s: %v", configPath, err)
	}

	var parsed map[string]interface{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Embedded template is not valid YAML: %v", err)
	}
	for _, section := range []string{"daemon", "router", "recording", "transcription", "stack", "shortcut", "injection", "feedback"} {
		if _, ok := parsed[section]; !ok {
			t.Errorf("Template is missing section %q", section)
		}
	}

	if err := os.WriteFile(configPath, []byte("daemon:\n  log_level: debug\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := configInitCmd.RunE(&cobra.Command{}, nil); err != nil {
		t.Errorf("Config init should succeed when config exists: %v", err)
	}
	after, _ := os.ReadFile(configPath)
	if !strings.Contains(string(after), "debug") {
		t.Error("Existing config should not be overwritten")
	}
}

func TestRedactConfigSecrets(t *testing.T) {
	original := &config.Config{
		Transcription: config.TranscriptionConfig{APIKey: "sk-secret-123456", Model: "whisper-1"},
	}

	redacted := redactConfigSecrets(original)
	if redacted == nil {
		t.Fatal("redacted config should not be nil")
	}
	if redacted.Transcription.APIKey == original.Transcription.APIKey {
		t.Error("API key should be masked")
	}
	if original.Transcription.APIKey != "sk-secret-123456" {
		t.Error("original config must not be modified")
	}
	if redacted.Transcription.Model != "whisper-1" {
		t.Errorf("non-secret fields should be kept, got %q", redacted.Transcription.Model)
	}

	if redactConfigSecrets(nil) != nil {
		t.Error("nil config should stay nil")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abcd", "****"},
		{"sk-12345678", "sk*******78"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
