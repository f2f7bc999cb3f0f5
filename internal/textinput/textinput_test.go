package textinput

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	voxErrors "github.com/harunnryd/voxd/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCommandInjectorAppendsText(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	out := filepath.Join(t.TempDir(), "typed.txt")
	inj, err := NewCommandInjector(fmt.Sprintf(`sh -c 'printf %%s "$1" > %s' voxd`, out))
	require.NoError(t, err)

	require.NoError(t, inj.Inject(context.Background(), "hello 'quoted' world"))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello 'quoted' world", string(data))
}

func TestCommandInjectorReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	inj, err := NewCommandInjector(`sh -c 'echo no display >&2; exit 3' voxd`)
	require.NoError(t, err)

	err = inj.Inject(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, voxErrors.ErrInjection))
	assert.Contains(t, err.Error(), "no display")

	assert.NoError(t, inj.Inject(context.Background(), ""), "empty text is a no-op")
}

func TestNewCommandInjectorValidation(t *testing.T) {
	_, err := NewCommandInjector("   ")
	assert.True(t, errors.Is(err, voxErrors.ErrInvalidInput))

	_, err = NewCommandInjector(`xdotool "unterminated`)
	assert.True(t, errors.Is(err, voxErrors.ErrInvalidInput))
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ReadAll() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockBackend) WriteAll(text string) error {
	return m.Called(text).Error(0)
}

type mockKeys struct {
	mock.Mock
}

func (m *mockKeys) SendPaste() error {
	return m.Called().Error(0)
}

func TestClipboardPasteRestoresOriginal(t *testing.T) {
	backend := &mockBackend{}
	keys := &mockKeys{}
	backend.On("ReadAll").Return("previous", nil).Once()
	backend.On("WriteAll", "dictated").Return(nil).Once()
	keys.On("SendPaste").Return(nil).Once()
	backend.On("WriteAll", "previous").Return(nil).Once()

	c := newClipboard(backend, keys, time.Millisecond)
	require.NoError(t, c.Paste(context.Background(), "dictated"))

	backend.AssertExpectations(t)
	keys.AssertExpectations(t)
}

func TestClipboardPasteKeepsTextWhenShortcutFails(t *testing.T) {
	backend := &mockBackend{}
	keys := &mockKeys{}
	backend.On("ReadAll").Return("previous", nil)
	backend.On("WriteAll", "dictated").Return(nil).Once()
	keys.On("SendPaste").Return(errors.New("uinput: permission denied"))

	c := newClipboard(backend, keys, time.Millisecond)
	err := c.Paste(context.Background(), "dictated")
	require.Error(t, err)
	assert.True(t, errors.Is(err, voxErrors.ErrInjection))

	backend.AssertNotCalled(t, "WriteAll", "previous")
}

func TestClipboardPasteSkipsRestoreWhenUnreadable(t *testing.T) {
	backend := &mockBackend{}
	keys := &mockKeys{}
	backend.On("ReadAll").Return("", errors.New("no clipboard owner"))
	backend.On("WriteAll", "dictated").Return(nil).Once()
	keys.On("SendPaste").Return(nil)

	c := newClipboard(backend, keys, time.Millisecond)
	require.NoError(t, c.Paste(context.Background(), "dictated"))
	backend.AssertNumberOfCalls(t, "WriteAll", 1)
}

func TestClipboardCopy(t *testing.T) {
	backend := &mockBackend{}
	backend.On("WriteAll", "kept").Return(nil).Once()
	backend.On("WriteAll", "lost").Return(errors.New("xclip missing")).Once()

	c := newClipboard(backend, &mockKeys{}, 0)
	require.NoError(t, c.Copy("kept"))

	err := c.Copy("lost")
	assert.True(t, errors.Is(err, voxErrors.ErrInjection))
	backend.AssertExpectations(t)
}

func TestClipboardPasteHonoursContext(t *testing.T) {
	backend := &mockBackend{}
	keys := &mockKeys{}
	backend.On("ReadAll").Return("", nil)
	backend.On("WriteAll", "text").Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newClipboard(backend, keys, time.Second)
	err := c.Paste(ctx, "text")
	require.Error(t, err)
	keys.AssertNotCalled(t, "SendPaste")
}

func TestNewSystemClipboardDelay(t *testing.T) {
	c, err := NewSystemClipboard("")
	require.NoError(t, err)
	assert.Equal(t, 80*time.Millisecond, c.delay)

	_, err = NewSystemClipboard("later")
	assert.Error(t, err)
}
