package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"already recording", AlreadyRecording("start"), KindAlreadyRecording},
		{"no session", NoActiveSession("stop"), KindNoActiveSession},
		{"audio", Audio("capture", fmt.Errorf("device busy")), KindAudio},
		{"transcription", Transcription("call", nil), KindTranscription},
		{"injection", Injection("paste", fmt.Errorf("no display")), KindInjection},
		{"stack not found", &StackNotFoundError{ID: 3}, KindStackNotFound},
		{"stack mode", StackModeDisabled("paste"), KindStackModeDisabled},
		{"too large", &TextTooLargeError{Size: 11, Max: 10}, KindTextTooLarge},
		{"permission", PermissionDenied("hook"), KindPermissionDenied},
		{"invalid", InvalidInput("bad json"), KindInvalidInput},
		{"transient", Transient("inbox full"), KindTransient},
		{"unknown", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Category(tt.err))
		})
	}
}

func TestStackNotFoundMessageListsSortedIDs(t *testing.T) {
	err := &StackNotFoundError{ID: 7, Available: []uint32{4, 2, 3}}
	assert.Equal(t, "stack 7 not found, available stacks: 2, 3, 4", err.Error())
	assert.True(t, errors.Is(err, ErrStackNotFound))

	empty := &StackNotFoundError{ID: 1}
	assert.Contains(t, empty.Error(), "no stacks saved")
}

func TestWrappedCauseIsPreserved(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Injection("direct inject", cause)

	assert.True(t, errors.Is(err, ErrInjection))
	assert.True(t, errors.Is(err, cause))
}

func TestMapError(t *testing.T) {
	m := NewDefaultErrorMapper()

	assert.Nil(t, m.MapError(nil))
	assert.Equal(t, context.Canceled, m.MapError(context.Canceled))

	tests := []struct {
		name string
		err  error
		hint string
	}{
		{"deadline", context.DeadlineExceeded, "timed out"},
		{"auth", errors.New("error, status code: 401, message: Incorrect API key"), "authentication"},
		{"quota", errors.New("status code: 429, You exceeded your current quota"), "rate limited"},
		{"network", errors.New("dial tcp: lookup api.openai.com: no such host"), "network"},
		{"other", errors.New("unexpected EOF"), "backend error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := m.MapError(tt.err)
			assert.True(t, errors.Is(mapped, ErrTranscription))
			assert.Contains(t, mapped.Error(), tt.hint)
		})
	}

	classified := AlreadyRecording("busy")
	assert.Equal(t, classified, m.MapError(classified))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(Transient("inbox full")))
	assert.False(t, IsRetryable(Internal("bug")))
}

func TestFromPanic(t *testing.T) {
	err := FromPanic("nil map")
	assert.True(t, errors.Is(err, ErrInternal))
	assert.Contains(t, err.Error(), "nil map")
}
