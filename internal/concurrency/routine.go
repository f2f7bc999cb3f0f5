package concurrency

import (
	"log/slog"
	"runtime/debug"
)

// SafeGo runs a function in a goroutine with panic recovery.
func SafeGo(fn func(), onPanic func(interface{})) {
	go func() {
		defer Recover(onPanic)
		fn()
	}()
}

// Recover must be deferred directly. It logs the panic with its stack and
// hands the value to onPanic.
func Recover(onPanic func(interface{})) {
	if r := recover(); r != nil {
		stack := debug.Stack()
		slog.Error("Panic recovered", "panic", r, "stack", string(stack))
		if onPanic != nil {
			onPanic(r)
		}
	}
}
