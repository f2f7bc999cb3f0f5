package errors

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sentinel errors for different categories
var (
	// ErrAlreadyRecording - Start or Toggle while a session is not idle
	ErrAlreadyRecording = errors.New("already recording")

	// ErrNoActiveSession - Stop while nothing is recording
	ErrNoActiveSession = errors.New("no active session")

	// ErrAudio - capture device or encoder failure
	ErrAudio = errors.New("audio error")

	// ErrTranscription - transcription backend failure (network, auth, quota, timeout, empty audio)
	ErrTranscription = errors.New("transcription failed")

	// ErrInjection - both direct injection and clipboard fallback failed
	ErrInjection = errors.New("text injection failed")

	// ErrStackNotFound - PasteStack with an unknown id
	ErrStackNotFound = errors.New("stack not found")

	// ErrStackModeDisabled - stack operation while stack mode is off
	ErrStackModeDisabled = errors.New("stack mode disabled")

	// ErrTextTooLarge - transcript exceeds the stack entry limit
	ErrTextTooLarge = errors.New("text too large")

	// ErrPermissionDenied - OS refused the keyboard hook or another privileged call
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput - malformed command or arguments
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransient - retryable condition such as a full router inbox
	ErrTransient = errors.New("transient error")

	// ErrInternal - unexpected failure, including recovered panics
	ErrInternal = errors.New("internal error")
)

// StackNotFoundError carries the ids that do exist so the message can list them.
type StackNotFoundError struct {
	ID        uint32
	Available []uint32
}

func (e *StackNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("stack %d not found: no stacks saved", e.ID)
	}
	ids := make([]uint32, len(e.Available))
	copy(ids, e.Available)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return fmt.Sprintf("stack %d not found, available stacks: %s", e.ID, strings.Join(parts, ", "))
}

func (e *StackNotFoundError) Unwrap() error {
	return ErrStackNotFound
}

// TextTooLargeError reports the measured and allowed sizes in characters.
type TextTooLargeError struct {
	Size int
	Max  int
}

func (e *TextTooLargeError) Error() string {
	return fmt.Sprintf("text too large (%d characters), maximum is %d", e.Size, e.Max)
}

func (e *TextTooLargeError) Unwrap() error {
	return ErrTextTooLarge
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", message, err)
}

// IsCategory checks if error belongs to specific category
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// AlreadyRecording wraps error as already recording
func AlreadyRecording(message string) error {
	return fmt.Errorf("%s: %w", message, ErrAlreadyRecording)
}

// NoActiveSession wraps error as no active session
func NoActiveSession(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNoActiveSession)
}

// Audio wraps a capture failure
func Audio(message string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", message, ErrAudio)
	}
	return fmt.Errorf("%s: %w: %w", message, ErrAudio, err)
}

// Transcription wraps a transcription failure
func Transcription(message string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", message, ErrTranscription)
	}
	return fmt.Errorf("%s: %w: %w", message, ErrTranscription, err)
}

// Injection wraps an injection failure
func Injection(message string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", message, ErrInjection)
	}
	return fmt.Errorf("%s: %w: %w", message, ErrInjection, err)
}

// StackModeDisabled wraps error as stack mode disabled
func StackModeDisabled(message string) error {
	return fmt.Errorf("%s: %w", message, ErrStackModeDisabled)
}

// PermissionDenied wraps error as permission denied
func PermissionDenied(message string) error {
	return fmt.Errorf("%s: %w", message, ErrPermissionDenied)
}

// InvalidInput wraps error as invalid input
func InvalidInput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidInput)
}

// Transient wraps error as transient
func Transient(message string) error {
	return fmt.Errorf("%s: %w", message, ErrTransient)
}

// Internal wraps error as internal
func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}
