//go:build windows

package shortcut

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL  = 13
	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	llkhfInjected = 0x10
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

type kbdllHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	ptX     int32
	ptY     int32
}

// Callbacks created by NewCallback are never freed, so one is shared by
// every install and dispatches to the current handler.
var (
	callbackOnce   sync.Once
	callbackPtr    uintptr
	currentHandler atomic.Pointer[func(KeyEvent) bool]
)

func hookCallback(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) < 0 {
		ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
		return ret
	}

	handler := currentHandler.Load()
	if handler != nil {
		k := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		ev := KeyEvent{
			Key:      Key(k.vkCode),
			Injected: k.flags&llkhfInjected != 0,
		}
		switch uint32(wParam) {
		case wmKeyDown, wmSysKeyDown:
			ev.Down = true
			if (*handler)(ev) {
				return 1
			}
		case wmKeyUp, wmSysKeyUp:
			if (*handler)(ev) {
				return 1
			}
		}
	}

	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

type windowsHook struct {
	installTimeout time.Duration
}

// NewSystemHook returns the WH_KEYBOARD_LL hook.
func NewSystemHook() Hook {
	return &windowsHook{installTimeout: 2 * time.Second}
}

func (h *windowsHook) Install(handler func(KeyEvent) bool) (func() error, error) {
	callbackOnce.Do(func() {
		callbackPtr = windows.NewCallback(hookCallback)
	})
	currentHandler.Store(&handler)

	type installed struct {
		threadID uint32
		err      error
	}
	ready := make(chan installed, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		hook, _, callErr := procSetWindowsHookExW.Call(whKeyboardLL, callbackPtr, 0, 0)
		if hook == 0 {
			ready <- installed{err: fmt.Errorf("SetWindowsHookExW failed: %v", callErr)}
			return
		}
		ready <- installed{threadID: windows.GetCurrentThreadId()}

		var m msg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
		}
		procUnhookWindowsHookEx.Call(hook)
	}()

	var res installed
	select {
	case res = <-ready:
	case <-time.After(h.installTimeout):
		currentHandler.Store(nil)
		return nil, fmt.Errorf("timeout installing keyboard hook")
	}
	if res.err != nil {
		currentHandler.Store(nil)
		return nil, res.err
	}

	uninstall := func() error {
		currentHandler.Store(nil)
		r, _, callErr := procPostThreadMessageW.Call(uintptr(res.threadID), wmQuit, 0, 0)
		if r == 0 {
			return fmt.Errorf("PostThreadMessageW failed: %v", callErr)
		}
		select {
		case <-done:
			return nil
		case <-time.After(h.installTimeout):
			return fmt.Errorf("timeout removing keyboard hook")
		}
	}
	return uninstall, nil
}
