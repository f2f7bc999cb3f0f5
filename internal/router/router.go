// Package router serializes every command that touches the recording session
// or the stack store. One goroutine owns both; callers talk to it through the
// inbox and the shortcut channel.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/voxd/internal/audio"
	"github.com/harunnryd/voxd/internal/concurrency"
	"github.com/harunnryd/voxd/internal/config"
	"github.com/harunnryd/voxd/internal/dictionary"
	voxErrors "github.com/harunnryd/voxd/internal/errors"
	"github.com/harunnryd/voxd/internal/feedback"
	"github.com/harunnryd/voxd/internal/ipc"
	"github.com/harunnryd/voxd/internal/logger"
	"github.com/harunnryd/voxd/internal/overlay"
	"github.com/harunnryd/voxd/internal/session"
	"github.com/harunnryd/voxd/internal/stack"
	"github.com/harunnryd/voxd/internal/textinput"
	"github.com/harunnryd/voxd/internal/transcribe"
)

const defaultDeliveryTimeout = 15 * time.Second

// ShortcutBridge is the part of shortcut.Bridge the router drives.
type ShortcutBridge interface {
	Start() error
	Stop() error
	Active() bool
	Drain() int
	Dropped() uint64
	Commands() <-chan ipc.Command
}

// HealthCheck is an active check run for the health command, outside the loop.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Config struct {
	InboxSize       int
	SubmitTimeout   time.Duration
	MaxDuration     time.Duration
	PasteMode       session.PasteMode
	DeliveryTimeout time.Duration
	CheckTimeout    time.Duration
	Stack           stack.Options
}

// ConfigFrom reads the router, recording, injection and stack sections.
func ConfigFrom(cfg *config.Config) (Config, error) {
	submitTimeout, err := config.DurationOrDefault(cfg.Router.SubmitTimeout, config.DefaultRouterSubmitTimeout)
	if err != nil {
		return Config{}, fmt.Errorf("invalid router.submit_timeout: %w", err)
	}
	checkTimeout, err := config.DurationOrDefault(cfg.Router.CheckTimeout, config.DefaultRouterCheckTimeout)
	if err != nil {
		return Config{}, fmt.Errorf("invalid router.check_timeout: %w", err)
	}
	maxDuration, err := config.DurationOrDefault(cfg.Recording.MaxDuration, config.DefaultRecordingMaxDuration)
	if err != nil {
		return Config{}, fmt.Errorf("invalid recording.max_duration: %w", err)
	}
	mode, err := session.ParsePasteMode(cfg.Injection.DefaultMode, session.PasteDirect)
	if err != nil {
		return Config{}, fmt.Errorf("invalid injection.default_mode: %w", err)
	}
	return Config{
		InboxSize:     cfg.Router.InboxSize,
		SubmitTimeout: submitTimeout,
		CheckTimeout:  checkTimeout,
		MaxDuration:   maxDuration,
		PasteMode:     mode,
		Stack: stack.Options{
			Capacity:      cfg.Stack.Capacity,
			MaxEntrySize:  cfg.Stack.MaxEntrySize,
			PreviewLength: cfg.Stack.PreviewLength,
		},
	}, nil
}

// Deps are the collaborators. Capturer and Transcriber are required.
type Deps struct {
	Capturer    audio.Capturer
	Transcriber transcribe.Transcriber
	Dictionary  dictionary.Substituter
	Injector    textinput.Injector
	Clipboard   textinput.Clipboard
	Notifier    overlay.Notifier
	Bridge      ShortcutBridge
	Sounds      feedback.Player
	Devices     audio.DeviceLister
	Checks      []HealthCheck
	Health      func() map[string]string
	Now         func() time.Time
}

type request struct {
	ctx    context.Context
	cmd    ipc.Command
	reply  chan ipc.Response
	checks map[string]string
}

// completion carries a transcription result back into the loop.
type completion struct {
	seq  uint64
	text string
	err  error
}

type Router struct {
	cfg  Config
	deps Deps

	// owned by the loop goroutine
	session     *session.Session
	stacks      *stack.Store
	timer       *time.Timer
	waiters     []request
	seq         uint64
	lastOutcome *ipc.Outcome

	inbox  chan request
	events chan completion
	quit   chan struct{}
	done   chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
	running   atomic.Bool
	startedAt time.Time
}

func New(cfg Config, deps Deps) (*Router, error) {
	if deps.Capturer == nil {
		return nil, fmt.Errorf("router requires an audio capturer")
	}
	if deps.Transcriber == nil {
		return nil, fmt.Errorf("router requires a transcriber")
	}
	if deps.Dictionary == nil {
		deps.Dictionary = dictionary.Nop{}
	}
	if deps.Notifier == nil {
		deps.Notifier = overlay.Nop{}
	}
	if deps.Sounds == nil {
		deps.Sounds = feedback.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	cfg.InboxSize = config.IntOrDefault(cfg.InboxSize, config.DefaultRouterInboxSize)
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout, _ = config.DurationOrDefault("", config.DefaultRouterSubmitTimeout)
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration, _ = config.DurationOrDefault("", config.DefaultRecordingMaxDuration)
	}
	if cfg.PasteMode == "" {
		cfg.PasteMode = session.PasteDirect
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout, _ = config.DurationOrDefault("", config.DefaultRouterCheckTimeout)
	}
	if cfg.Stack.Now == nil {
		cfg.Stack.Now = deps.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		cfg:     cfg,
		deps:    deps,
		session: session.New(deps.Now),
		stacks:  stack.NewStore(cfg.Stack),
		inbox:   make(chan request, cfg.InboxSize),
		events:  make(chan completion, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

func (r *Router) Start() {
	r.startOnce.Do(func() {
		r.startedAt = r.deps.Now()
		r.running.Store(true)
		concurrency.SafeGo(r.loop, func(p interface{}) {
			slog.Error("Router loop crashed", "panic", p)
		})
	})
}

// Stop ends the loop. A recording in progress is discarded and an in-flight
// transcription is cancelled.
func (r *Router) Stop(ctx context.Context) error {
	if !r.running.Load() {
		return nil
	}
	r.stopOnce.Do(func() {
		close(r.quit)
	})
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("router stop: %w", ctx.Err())
	}
}

func (r *Router) Running() bool {
	return r.running.Load()
}

// Handle submits cmd and waits for its response. It satisfies ipc.Handler.
// Device queries and health checks shell out or hit the network, so they run
// here in the caller's goroutine and never hold up the loop.
func (r *Router) Handle(ctx context.Context, cmd ipc.Command) ipc.Response {
	if err := cmd.Validate(); err != nil {
		return ipc.Failure(cmd.ID, err)
	}
	if !r.running.Load() {
		return ipc.Failure(cmd.ID, voxErrors.Transient("daemon is shutting down"))
	}

	req := request{ctx: ctx, cmd: cmd, reply: make(chan ipc.Response, 1)}
	switch cmd.Type {
	case ipc.CmdListDevices:
		return r.listDevices(ctx, cmd)
	case ipc.CmdHealth:
		req.checks = r.runChecks(ctx)
	}

	select {
	case r.inbox <- req:
	case <-ctx.Done():
		return ipc.Failure(cmd.ID, voxErrors.Wrap(ctx.Err(), "request cancelled"))
	case <-r.done:
		return ipc.Failure(cmd.ID, voxErrors.Transient("daemon is shutting down"))
	case <-time.After(r.cfg.SubmitTimeout):
		return ipc.Failure(cmd.ID, voxErrors.Transient("router busy, try again"))
	}

	select {
	case resp := <-req.reply:
		return resp
	case <-ctx.Done():
		return ipc.Failure(cmd.ID, voxErrors.Wrap(ctx.Err(), "request cancelled"))
	case <-r.done:
		return ipc.Failure(cmd.ID, voxErrors.Transient("daemon is shutting down"))
	}
}

func (r *Router) loop() {
	slog.Info("Router started", "inbox_size", cap(r.inbox), "max_duration", r.cfg.MaxDuration)
	defer func() {
		r.running.Store(false)
		r.cancel()
		close(r.done)
	}()

	for {
		var shortcuts <-chan ipc.Command
		if r.deps.Bridge != nil {
			shortcuts = r.deps.Bridge.Commands()
		}

		// Client commands go first so a queued DisableStackMode drains the
		// shortcuts that arrived while the loop was busy before any of them run.
		select {
		case req := <-r.inbox:
			r.process(req)
			continue
		default:
		}

		select {
		case req := <-r.inbox:
			r.process(req)
		case cmd := <-shortcuts:
			r.process(request{ctx: r.ctx, cmd: cmd})
		case <-r.timerC():
			r.autoStop()
		case ev := <-r.events:
			r.complete(ev)
		case <-r.quit:
			r.shutdown()
			slog.Info("Router stopped")
			return
		}
	}
}

// process runs one command to completion. A panicking handler becomes an
// internal error response.
func (r *Router) process(req request) {
	ctx := logger.WithCommand(logger.WithRequestID(req.ctx, req.cmd.ID), string(req.cmd.Type))
	log := logger.FromContext(ctx).With("source", req.cmd.Source)

	var (
		resp     ipc.Response
		deferred bool
	)
	func() {
		defer concurrency.Recover(func(p interface{}) {
			resp = ipc.Failure(req.cmd.ID, voxErrors.FromPanic(p))
			deferred = false
		})
		resp, deferred = r.dispatch(ctx, req)
	}()

	if deferred {
		log.Debug("Response deferred until transcription completes")
		return
	}
	if resp.ID == "" {
		resp.ID = req.cmd.ID
	}
	if resp.OK {
		log.Debug("Command handled", "message", resp.Message)
	} else {
		log.Warn("Command failed", "kind", resp.ErrorKind, "message", resp.Message)
	}
	if req.reply != nil {
		req.reply <- resp
	}
}

func (r *Router) dispatch(ctx context.Context, req request) (ipc.Response, bool) {
	cmd := req.cmd
	switch cmd.Type {
	case ipc.CmdStart:
		return r.handleStart(ctx, cmd), false
	case ipc.CmdStop:
		return r.handleStop(ctx, req)
	case ipc.CmdToggle:
		return r.handleToggle(ctx, req)
	case ipc.CmdStatus:
		return r.handleStatus(cmd), false
	case ipc.CmdHealth:
		return r.handleHealth(req), false
	case ipc.CmdEnableStackMode:
		return r.handleEnableStackMode(cmd), false
	case ipc.CmdDisableStackMode:
		return r.handleDisableStackMode(cmd), false
	case ipc.CmdPasteStack:
		return r.handlePasteStack(ctx, cmd), false
	case ipc.CmdListStacks:
		return r.handleListStacks(cmd), false
	case ipc.CmdClearStacks:
		return r.handleClearStacks(cmd), false
	default:
		return ipc.Failure(cmd.ID, voxErrors.InvalidInput(fmt.Sprintf("unknown command type %q", cmd.Type))), false
	}
}

func (r *Router) timerC() <-chan time.Time {
	if r.timer == nil {
		return nil
	}
	return r.timer.C
}

func (r *Router) armTimer(d time.Duration) {
	r.disarmTimer()
	r.timer = time.NewTimer(d)
}

func (r *Router) disarmTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Router) shutdown() {
	r.disarmTimer()

	switch r.session.State() {
	case session.Recording:
		if _, err := r.deps.Capturer.Finalize(r.ctx); err != nil {
			slog.Warn("Discarding recording on shutdown failed", "error", err)
		} else {
			slog.Info("Recording discarded on shutdown")
		}
	case session.Transcribing:
		slog.Info("Cancelling transcription on shutdown")
	}
	r.cancel()

	for _, w := range r.waiters {
		w.reply <- ipc.Failure(w.cmd.ID, voxErrors.Transient("daemon stopped before transcription finished"))
	}
	r.waiters = nil

	if r.deps.Bridge != nil && r.deps.Bridge.Active() {
		if err := r.deps.Bridge.Stop(); err != nil {
			slog.Warn("Failed to stop shortcut bridge", "error", err)
		}
	}
}

func (r *Router) listDevices(ctx context.Context, cmd ipc.Command) ipc.Response {
	if r.deps.Devices == nil {
		return ipc.Failure(cmd.ID, voxErrors.Audio("device listing is not available", nil))
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.CheckTimeout)
	defer cancel()

	devices, err := r.deps.Devices.ListDevices(ctx)
	if err != nil {
		return ipc.Failure(cmd.ID, err)
	}
	msg := fmt.Sprintf("%d input devices", len(devices))
	if len(devices) == 0 {
		msg = "no input devices detected"
	}
	return ipc.Success(cmd.ID, msg, ipc.DeviceListPayload{Devices: devices})
}

// runChecks runs every check in parallel under one deadline.
func (r *Router) runChecks(ctx context.Context) map[string]string {
	if len(r.deps.Checks) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.CheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(r.deps.Checks))
	)
	for _, check := range r.deps.Checks {
		wg.Add(1)
		concurrency.SafeGo(func() {
			defer wg.Done()
			status := "healthy"
			if err := check.Check(ctx); err != nil {
				status = "unhealthy: " + err.Error()
			}
			mu.Lock()
			results[check.Name] = status
			mu.Unlock()
		}, nil)
	}
	wg.Wait()

	for _, check := range r.deps.Checks {
		if _, ok := results[check.Name]; !ok {
			results[check.Name] = "unhealthy: check did not complete"
		}
	}
	return results
}
