package ipc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harunnryd/voxd/internal/audio"
	"github.com/harunnryd/voxd/internal/errors"
	"github.com/harunnryd/voxd/internal/session"
	"github.com/harunnryd/voxd/internal/stack"

	"github.com/oklog/ulid/v2"
)

type CommandType string

const (
	CmdStart            CommandType = "start"
	CmdStop             CommandType = "stop"
	CmdToggle           CommandType = "toggle"
	CmdStatus           CommandType = "status"
	CmdHealth           CommandType = "health"
	CmdEnableStackMode  CommandType = "enable_stack_mode"
	CmdDisableStackMode CommandType = "disable_stack_mode"
	CmdPasteStack       CommandType = "paste_stack"
	CmdListStacks       CommandType = "list_stacks"
	CmdClearStacks      CommandType = "clear_stacks"
	CmdListDevices      CommandType = "list_devices"
)

// Command sources, used for logging only.
const (
	SourceIPC      = "ipc"
	SourceShortcut = "shortcut"
	SourceTimer    = "auto_stop"
)

// Command is one client request. Fields that do not apply to Type are ignored,
// as are fields this version does not know about.
type Command struct {
	ID        string      `json:"id,omitempty"`
	Type      CommandType `json:"type"`
	PasteMode string      `json:"paste_mode,omitempty"`
	Prompt    string      `json:"prompt,omitempty"`
	Wait      bool        `json:"wait,omitempty"`
	StackID   uint32      `json:"stack_id,omitempty"`
	Source    string      `json:"source,omitempty"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}

func NewCommand(t CommandType) Command {
	return Command{
		ID:        ulid.Make().String(),
		Type:      t,
		Source:    SourceIPC,
		Timestamp: time.Now().UTC(),
	}
}

func (c Command) Validate() error {
	switch c.Type {
	case CmdStart, CmdStop, CmdToggle, CmdStatus, CmdHealth,
		CmdEnableStackMode, CmdDisableStackMode, CmdListStacks, CmdClearStacks,
		CmdListDevices:
		return nil
	case CmdPasteStack:
		if c.StackID == 0 {
			return errors.InvalidInput("paste_stack requires a stack_id of 1 or more")
		}
		return nil
	case "":
		return errors.InvalidInput("command type is required")
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown command type %q", c.Type))
	}
}

// Response answers exactly one Command.
type Response struct {
	ID        string          `json:"id,omitempty"`
	OK        bool            `json:"ok"`
	Message   string          `json:"message"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Success builds an ok response. A payload that fails to marshal is dropped
// and noted in the message.
func Success(id, message string, payload interface{}) Response {
	resp := Response{ID: id, OK: true, Message: message}
	if payload == nil {
		return resp
	}
	data, err := json.Marshal(payload)
	if err != nil {
		resp.Message = fmt.Sprintf("%s (payload unavailable: %v)", message, err)
		return resp
	}
	resp.Payload = data
	return resp
}

// Failure converts err into a response carrying its wire kind.
func Failure(id string, err error) Response {
	return Response{
		ID:        id,
		OK:        false,
		Message:   err.Error(),
		ErrorKind: errors.Category(err),
	}
}

func (r Response) DecodePayload(v interface{}) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("response has no payload")
	}
	return json.Unmarshal(r.Payload, v)
}

// Outcome describes what happened to the most recent recording.
type Outcome struct {
	OK         bool      `json:"ok"`
	Message    string    `json:"message"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Text       string    `json:"text,omitempty"`
	StackID    uint32    `json:"stack_id,omitempty"`
	Delivery   string    `json:"delivery,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

type StatusPayload struct {
	Session        session.Snapshot `json:"session"`
	StackMode      bool             `json:"stack_mode"`
	Stacks         int              `json:"stacks"`
	StackCapacity  int              `json:"stack_capacity"`
	ShortcutActive bool             `json:"shortcut_active"`
	LastOutcome    *Outcome         `json:"last_outcome,omitempty"`
}

type StackListPayload struct {
	Enabled bool         `json:"enabled"`
	Stacks  []stack.Info `json:"stacks"`
}

type StackSavedPayload struct {
	ID      uint32 `json:"id"`
	Preview string `json:"preview"`
}

type HealthPayload struct {
	Status          string            `json:"status"`
	Components      map[string]string `json:"components,omitempty"`
	UptimeMS        int64             `json:"uptime_ms"`
	ShortcutDropped uint64            `json:"shortcut_dropped"`
}

type DeviceListPayload struct {
	Devices []audio.Device `json:"devices"`
}
