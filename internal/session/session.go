// Package session implements the recording state machine:
// Idle -> Recording -> Transcribing -> Idle. No other transition is allowed.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/voxd/internal/errors"
)

type State int

const (
	Idle State = iota
	Recording
	Transcribing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PasteMode selects how a finished transcript reaches the focused application.
type PasteMode string

const (
	PasteDirect PasteMode = "direct"
	PasteClip   PasteMode = "paste"
	PasteCopy   PasteMode = "copy"
)

// ParsePasteMode accepts the wire names plus a few aliases. Empty means fallback.
func ParsePasteMode(value string, fallback PasteMode) (PasteMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback, nil
	case "direct", "direct-inject", "type":
		return PasteDirect, nil
	case "paste", "clipboard-paste", "clipboard":
		return PasteClip, nil
	case "copy", "copy-only":
		return PasteCopy, nil
	default:
		return "", errors.InvalidInput(fmt.Sprintf("unknown paste mode %q", value))
	}
}

// Options are fixed when recording begins.
//
// StackTarget only reports, for status, whether stack mode was on at Start.
// Where the transcript goes is decided by the stack mode in force when it
// arrives, so toggling stack mode mid-recording takes effect.
type Options struct {
	PasteMode   PasteMode `json:"paste_mode"`
	Prompt      string    `json:"prompt,omitempty"`
	StackTarget bool      `json:"stack_target"`
}

// Snapshot is a read-only view used for status responses.
type Snapshot struct {
	State       string     `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	Deadline    *time.Time `json:"auto_stop_at,omitempty"`
	ElapsedMS   int64      `json:"elapsed_ms,omitempty"`
	PasteMode   PasteMode  `json:"paste_mode,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	StackTarget bool       `json:"stack_target,omitempty"`
}

// Session is owned by the router loop and is not safe for concurrent use.
type Session struct {
	state     State
	startedAt time.Time
	deadline  time.Time
	options   Options
	now       func() time.Time
}

func New(now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{state: Idle, now: now}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Options() Options {
	return s.options
}

// StartedAt is when the current state was entered, zero when idle.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Deadline is the auto-stop time while recording, zero otherwise.
func (s *Session) Deadline() time.Time {
	return s.deadline
}

// BeginRecording moves Idle to Recording and arms the auto-stop deadline.
func (s *Session) BeginRecording(opts Options, maxDuration time.Duration) error {
	if s.state != Idle {
		return errors.AlreadyRecording(fmt.Sprintf("session is %s", s.state))
	}
	now := s.now()
	s.state = Recording
	s.startedAt = now
	s.deadline = now.Add(maxDuration)
	s.options = opts
	return nil
}

// BeginTranscribing moves Recording to Transcribing.
func (s *Session) BeginTranscribing() error {
	switch s.state {
	case Recording:
	case Transcribing:
		return errors.NoActiveSession("transcription already in progress")
	default:
		return errors.NoActiveSession("not recording")
	}
	s.state = Transcribing
	s.startedAt = s.now()
	s.deadline = time.Time{}
	return nil
}

// Finish moves Transcribing back to Idle. It is the only way back to Idle.
func (s *Session) Finish() error {
	if s.state != Transcribing {
		return errors.Internal(fmt.Sprintf("finish called while %s", s.state))
	}
	s.state = Idle
	s.startedAt = time.Time{}
	s.deadline = time.Time{}
	s.options = Options{}
	return nil
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{State: s.state.String()}
	if s.state == Idle {
		return snap
	}
	started := s.startedAt
	snap.StartedAt = &started
	snap.ElapsedMS = s.now().Sub(started).Milliseconds()
	snap.PasteMode = s.options.PasteMode
	snap.Prompt = s.options.Prompt
	snap.StackTarget = s.options.StackTarget
	if !s.deadline.IsZero() {
		deadline := s.deadline
		snap.Deadline = &deadline
	}
	return snap
}
