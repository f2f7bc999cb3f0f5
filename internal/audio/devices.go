package audio

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	voxErrors "github.com/harunnryd/voxd/internal/errors"
)

const (
	formatDShow        = "dshow"
	formatAVFoundation = "avfoundation"

	defaultListTimeout = 5 * time.Second
)

// Device is an input source as ffmpeg names it.
type Device struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     bool   `json:"default" yaml:"default"`
}

// DeviceLister enumerates capture devices.
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]Device, error)
}

func isDefaultDevice(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || name == "default"
}

// inputSpec turns the configured device into the -i argument for the input format.
// dshow has no "default" device, so the first listed one is used.
func (c *FFmpegCapture) inputSpec(ctx context.Context) (string, error) {
	device := strings.TrimSpace(c.cfg.InputDevice)

	switch c.cfg.InputFormat {
	case formatDShow:
		if isDefaultDevice(device) {
			devices, err := c.ListDevices(ctx)
			if err != nil {
				return "", err
			}
			if len(devices) == 0 {
				return "", voxErrors.Audio("no input devices detected", nil)
			}
			device = devices[0].Name
		}
		if !strings.HasPrefix(device, "audio=") {
			device = "audio=" + device
		}
	case formatAVFoundation:
		if isDefaultDevice(device) {
			device = "default"
		}
		if !strings.HasPrefix(device, ":") {
			device = ":" + device
		}
	default:
		if device == "" {
			device = "default"
		}
	}
	return device, nil
}

func listArgs(format string) []string {
	switch format {
	case formatDShow:
		return []string{"-hide_banner", "-list_devices", "true", "-f", formatDShow, "-i", "dummy"}
	case formatAVFoundation:
		return []string{"-hide_banner", "-f", formatAVFoundation, "-list_devices", "true", "-i", ""}
	default:
		return []string{"-hide_banner", "-sources", format}
	}
}

// ListDevices asks ffmpeg for the audio inputs of the configured format.
// dshow and avfoundation exit non-zero after listing, so the exit status only
// matters when nothing could be parsed.
func (c *FFmpegCapture) ListDevices(ctx context.Context) ([]Device, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultListTimeout)
		defer cancel()
	}

	out, runErr := exec.CommandContext(ctx, c.cfg.Command, listArgs(c.cfg.InputFormat)...).CombinedOutput()

	var devices []Device
	switch c.cfg.InputFormat {
	case formatDShow:
		devices = parseDShowDevices(string(out))
	case formatAVFoundation:
		devices = parseAVFoundationDevices(string(out))
	default:
		devices = parseSources(string(out))
	}

	if len(devices) == 0 && runErr != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = runErr.Error()
		}
		return nil, voxErrors.Audio(fmt.Sprintf("list %s devices: %s", c.cfg.InputFormat, lastLine(detail)), runErr)
	}
	return devices, nil
}

// CheckDevice fails when no input exists or the configured one is missing.
func (c *FFmpegCapture) CheckDevice(ctx context.Context) error {
	devices, err := c.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return voxErrors.Audio("no input devices detected", nil)
	}

	want := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(c.cfg.InputDevice), "audio="), ":")
	if isDefaultDevice(want) {
		return nil
	}
	for _, d := range devices {
		if d.Name == want || d.Description == want {
			return nil
		}
	}
	return voxErrors.Audio(fmt.Sprintf("input device %q not found", want), nil)
}

var sourceLine = regexp.MustCompile(`^\s*(\*)?\s*(\S+)(?:\s+\[(.*)\])?\s*$`)

// parseSources reads `ffmpeg -sources <format>`:
//
//	Auto-detected sources for pulse:
//	* alsa_input.pci-0000_00_1f.3.analog-stereo [Built-in Audio Analog Stereo]
//	  alsa_output.pci-0000_00_1f.3.analog-stereo.monitor [Monitor of Built-in Audio]
//
// Monitor sources replay speaker output and are skipped.
func parseSources(out string) []Device {
	var devices []Device
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasSuffix(strings.TrimSpace(line), ":") {
			continue
		}
		m := sourceLine.FindStringSubmatch(line)
		if m == nil || strings.HasSuffix(m[2], ".monitor") {
			continue
		}
		devices = append(devices, Device{Name: m[2], Description: m[3], Default: m[1] == "*"})
	}
	return devices
}

var quotedName = regexp.MustCompile(`"([^"]+)"(.*)$`)

// parseDShowDevices handles both the section style of older ffmpeg builds and
// the "(audio)" suffix of newer ones.
func parseDShowDevices(out string) []Device {
	var devices []Device
	inAudio := false
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "DirectShow audio devices"):
			inAudio = true
			continue
		case strings.Contains(line, "DirectShow video devices"):
			inAudio = false
			continue
		case strings.Contains(line, "Alternative name"):
			continue
		}

		m := quotedName.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rest := m[2]
		if strings.Contains(rest, "(audio)") || (inAudio && !strings.Contains(rest, "(video)")) {
			devices = append(devices, Device{Name: m[1]})
		}
	}
	if len(devices) > 0 {
		devices[0].Default = true
	}
	return devices
}

var indexedName = regexp.MustCompile(`\]\s*\[(\d+)\]\s+(.+)$`)

func parseAVFoundationDevices(out string) []Device {
	var devices []Device
	inAudio := false
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "AVFoundation audio devices"):
			inAudio = true
			continue
		case strings.Contains(line, "AVFoundation video devices"):
			inAudio = false
			continue
		}
		if !inAudio {
			continue
		}
		if m := indexedName.FindStringSubmatch(line); m != nil {
			devices = append(devices, Device{Name: strings.TrimSpace(m[2]), Description: "index " + m[1]})
		}
	}
	if len(devices) > 0 {
		devices[0].Default = true
	}
	return devices
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
