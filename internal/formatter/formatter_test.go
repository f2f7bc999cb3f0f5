package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/voxd/internal/audio"
	"github.com/harunnryd/voxd/internal/dictionary"
	"github.com/harunnryd/voxd/internal/ipc"
	"github.com/harunnryd/voxd/internal/session"
	"github.com/harunnryd/voxd/internal/stack"
)

func sampleStacks() ipc.StackListPayload {
	saved := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return ipc.StackListPayload{
		Enabled: true,
		Stacks: []stack.Info{
			{ID: 1, Preview: "first note", Characters: 10, CreatedAt: saved},
			{ID: 2, Preview: "second note", Characters: 11, CreatedAt: saved},
		},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		format  OutputFormat
		wantErr bool
	}{
		{
			name:    "table format",
			format:  OutputFormatTable,
			wantErr: false,
		},
		{
			name:    "json format",
			format:  OutputFormatJSON,
			wantErr: false,
		},
		{
			name:    "yaml format",
			format:  OutputFormatYAML,
			wantErr: false,
		},
		{
			name:    "invalid format",
			format:  OutputFormat("invalid"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && f == nil {
				t.Error("New() returned nil formatter for valid format")
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{"TABLE", OutputFormatTable, false},
		{"json", OutputFormatJSON, false},
		{" yaml ", OutputFormatYAML, false},
		{"", OutputFormatTable, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableFormatStacks(t *testing.T) {
	f := NewTableFormatter()

	out, err := f.FormatStacks(sampleStacks())
	if err != nil {
		t.Fatalf("FormatStacks() error = %v", err)
	}
	for _, want := range []string{"Preview", "first note", "second note"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	out, _ = f.FormatStacks(ipc.StackListPayload{})
	if out != "Stack mode is disabled" {
		t.Errorf("disabled output = %q", out)
	}
	out, _ = f.FormatStacks(ipc.StackListPayload{Enabled: true})
	if out != "No stacks saved" {
		t.Errorf("empty output = %q", out)
	}
}

func TestTableFormatDictionary(t *testing.T) {
	f := NewTableFormatter()

	out, err := f.FormatDictionary([]dictionary.Entry{
		{Surface: "kube cuddle", Replacement: "kubectl", Hit: 3},
		{Surface: "post gress", Replacement: "Postgres", Status: dictionary.StatusDraft},
	})
	if err != nil {
		t.Fatalf("FormatDictionary() error = %v", err)
	}
	for _, want := range []string{"kubectl", "Postgres", "active", "draft"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	out, _ = f.FormatDictionary(nil)
	if out != "Dictionary is empty" {
		t.Errorf("empty output = %q", out)
	}
}

func TestTableFormatStatus(t *testing.T) {
	started := time.Now()
	out, err := NewTableFormatter().FormatStatus(ipc.StatusPayload{
		Session: session.Snapshot{
			State:     "recording",
			StartedAt: &started,
			PasteMode: session.PasteDirect,
		},
		StackMode:     true,
		Stacks:        2,
		StackCapacity: 50,
		LastOutcome:   &ipc.Outcome{OK: false, Message: "rate limited", ErrorKind: "transcription"},
	})
	if err != nil {
		t.Fatalf("FormatStatus() error = %v", err)
	}
	for _, want := range []string{"recording", "direct", "2 / 50", "rate limited (transcription)"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDevices(t *testing.T) {
	list := ipc.DeviceListPayload{Devices: []audio.Device{
		{Name: "alsa_input.usb-mic", Description: "USB Microphone", Default: true},
		{Name: "bluez_input.headset"},
	}}

	out, err := NewTableFormatter().FormatDevices(list)
	if err != nil {
		t.Fatalf("FormatDevices() error = %v", err)
	}
	for _, want := range []string{"Device", "alsa_input.usb-mic", "USB Microphone", "bluez_input.headset"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	out, _ = NewTableFormatter().FormatDevices(ipc.DeviceListPayload{})
	if out != "No input devices detected" {
		t.Errorf("empty output = %q", out)
	}

	out, _ = NewJSONFormatter().FormatDevices(ipc.DeviceListPayload{})
	if !strings.Contains(out, `"devices": []`) {
		t.Errorf("empty json devices = %q", out)
	}

	out, _ = NewYAMLFormatter().FormatDevices(list)
	if !strings.Contains(out, "name: alsa_input.usb-mic") || !strings.Contains(out, "default: true") {
		t.Errorf("yaml output = %q", out)
	}
}

func TestJSONAndYAMLUseWireNames(t *testing.T) {
	out, err := NewJSONFormatter().FormatStacks(sampleStacks())
	if err != nil {
		t.Fatalf("FormatStacks() error = %v", err)
	}
	if !strings.Contains(out, `"created_at"`) {
		t.Errorf("json output missing created_at:\n%s", out)
	}

	out, _ = NewJSONFormatter().FormatDictionary(nil)
	if out != "[]" {
		t.Errorf("empty json dictionary = %q, want []", out)
	}

	out, err = NewYAMLFormatter().FormatStacks(sampleStacks())
	if err != nil {
		t.Fatalf("FormatStacks() error = %v", err)
	}
	for _, want := range []string{"enabled: true", "id: 2", "preview: second note", "created_at:"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("truncateString() = %q", got)
	}
	if got := truncateString("ééééééééé", 6); got != "ééé..." {
		t.Errorf("truncateString() = %q, want rune-safe cut", got)
	}
}
