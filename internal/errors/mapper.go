package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported on the wire.
const (
	KindAlreadyRecording  = "already_recording"
	KindNoActiveSession   = "no_active_session"
	KindAudio             = "audio"
	KindTranscription     = "transcription"
	KindInjection         = "injection"
	KindStackNotFound     = "stack_not_found"
	KindStackModeDisabled = "stack_mode_disabled"
	KindTextTooLarge      = "text_too_large"
	KindPermissionDenied  = "permission_denied"
	KindInvalidInput      = "invalid_input"
	KindTransient         = "transient"
	KindInternal          = "internal"
)

// ErrorMapper maps external errors to the voxd error taxonomy
type ErrorMapper interface {
	MapError(err error) error
	IsRetryable(err error) bool
	Category(err error) string
}

// DefaultErrorMapper classifies transcription backend failures.
type DefaultErrorMapper struct{}

// NewDefaultErrorMapper creates a new error mapper
func NewDefaultErrorMapper() *DefaultErrorMapper {
	return &DefaultErrorMapper{}
}

// MapError maps backend errors to a transcription error with a hint about the cause.
func (m *DefaultErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	// Already classified
	if Category(err) != KindInternal {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Transcription("request timed out", err)
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "401"), strings.Contains(errStr, "unauthorized"), strings.Contains(errStr, "invalid api key"), strings.Contains(errStr, "incorrect api key"):
		return Transcription("authentication rejected, check OPENAI_API_KEY", err)

	case strings.Contains(errStr, "429"), strings.Contains(errStr, "rate limit"), strings.Contains(errStr, "quota"), strings.Contains(errStr, "too many requests"):
		return Transcription("rate limited or quota exhausted", err)

	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return Transcription("request timed out", err)

	case strings.Contains(errStr, "network"), strings.Contains(errStr, "connection"), strings.Contains(errStr, "unreachable"), strings.Contains(errStr, "no such host"):
		return Transcription("network error", err)

	default:
		return Transcription("backend error", err)
	}
}

// IsRetryable determines if an error should trigger a retry
func (m *DefaultErrorMapper) IsRetryable(err error) bool {
	return IsRetryable(err)
}

// Category returns the wire kind for an error
func (m *DefaultErrorMapper) Category(err error) string {
	return Category(err)
}

// Category returns the wire kind for an error. Unclassified errors are internal.
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAlreadyRecording):
		return KindAlreadyRecording
	case errors.Is(err, ErrNoActiveSession):
		return KindNoActiveSession
	case errors.Is(err, ErrAudio):
		return KindAudio
	case errors.Is(err, ErrTranscription):
		return KindTranscription
	case errors.Is(err, ErrInjection):
		return KindInjection
	case errors.Is(err, ErrStackNotFound):
		return KindStackNotFound
	case errors.Is(err, ErrStackModeDisabled):
		return KindStackModeDisabled
	case errors.Is(err, ErrTextTooLarge):
		return KindTextTooLarge
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindInternal
	}
}

// IsRetryable reports whether the caller may resend the same command.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransient)
}

// FromPanic converts a recovered panic value into an internal error.
func FromPanic(r interface{}) error {
	return fmt.Errorf("panic: %v: %w", r, ErrInternal)
}
