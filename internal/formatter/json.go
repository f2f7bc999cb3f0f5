package formatter

import (
	"encoding/json"

	"github.com/harunnryd/voxd/internal/audio"
	"github.com/harunnryd/voxd/internal/dictionary"
	"github.com/harunnryd/voxd/internal/ipc"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatStacks(list ipc.StackListPayload) (string, error) {
	return marshalJSON(list)
}

func (f *JSONFormatter) FormatDictionary(entries []dictionary.Entry) (string, error) {
	if entries == nil {
		entries = []dictionary.Entry{}
	}
	return marshalJSON(entries)
}

func (f *JSONFormatter) FormatStatus(status ipc.StatusPayload) (string, error) {
	return marshalJSON(status)
}

func (f *JSONFormatter) FormatDevices(list ipc.DeviceListPayload) (string, error) {
	if list.Devices == nil {
		list.Devices = []audio.Device{}
	}
	return marshalJSON(list)
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
