package formatter

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harunnryd/voxd/internal/dictionary"
	"github.com/harunnryd/voxd/internal/ipc"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatStacks(list ipc.StackListPayload) (string, error) {
	return marshalYAML(list)
}

func (f *YAMLFormatter) FormatDictionary(entries []dictionary.Entry) (string, error) {
	return marshalYAML(map[string]interface{}{"entries": entries})
}

func (f *YAMLFormatter) FormatStatus(status ipc.StatusPayload) (string, error) {
	return marshalYAML(status)
}

func (f *YAMLFormatter) FormatDevices(list ipc.DeviceListPayload) (string, error) {
	return marshalYAML(list)
}

// marshalYAML goes through JSON first so keys match the wire names.
func marshalYAML(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(generic)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
