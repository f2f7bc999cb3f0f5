package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/voxd/internal/concurrency"
	voxErrors "github.com/harunnryd/voxd/internal/errors"
	"github.com/harunnryd/voxd/internal/feedback"
	"github.com/harunnryd/voxd/internal/ipc"
	"github.com/harunnryd/voxd/internal/overlay"
	"github.com/harunnryd/voxd/internal/session"
	"github.com/harunnryd/voxd/internal/stack"
)

func (r *Router) handleStart(ctx context.Context, cmd ipc.Command) ipc.Response {
	switch r.session.State() {
	case session.Recording:
		return ipc.Failure(cmd.ID, voxErrors.AlreadyRecording("a recording is in progress"))
	case session.Transcribing:
		return ipc.Failure(cmd.ID, voxErrors.AlreadyRecording("busy: previous recording is still being transcribed"))
	}

	mode, err := session.ParsePasteMode(cmd.PasteMode, r.cfg.PasteMode)
	if err != nil {
		return ipc.Failure(cmd.ID, err)
	}

	if err := r.deps.Capturer.Begin(ctx); err != nil {
		if !voxErrors.IsCategory(err, voxErrors.ErrAudio) {
			err = voxErrors.Audio("could not start recording", err)
		}
		return ipc.Failure(cmd.ID, err)
	}

	opts := session.Options{
		PasteMode:   mode,
		Prompt:      cmd.Prompt,
		StackTarget: r.stacks.Enabled(),
	}
	if err := r.session.BeginRecording(opts, r.cfg.MaxDuration); err != nil {
		return ipc.Failure(cmd.ID, err)
	}
	r.armTimer(r.cfg.MaxDuration)
	r.deps.Sounds.Play(feedback.CueStart)

	slog.Info("Recording started",
		"paste_mode", mode,
		"stack_target", opts.StackTarget,
		"auto_stop_at", r.session.Deadline(),
	)
	return ipc.Success(cmd.ID, "recording started", r.session.Snapshot())
}

// handleStop replies immediately unless the command asks to wait for the
// transcription outcome.
func (r *Router) handleStop(ctx context.Context, req request) (ipc.Response, bool) {
	cmd := req.cmd
	switch r.session.State() {
	case session.Idle:
		return ipc.Failure(cmd.ID, voxErrors.NoActiveSession("nothing to stop")), false
	case session.Transcribing:
		return ipc.Failure(cmd.ID, voxErrors.NoActiveSession("transcription in progress")), false
	}

	r.stopRecording(ctx, cmd.Source)

	if cmd.Wait && req.reply != nil {
		r.waiters = append(r.waiters, req)
		return ipc.Response{}, true
	}
	return ipc.Success(cmd.ID, "recording stopped; transcribing", r.session.Snapshot()), false
}

func (r *Router) handleToggle(ctx context.Context, req request) (ipc.Response, bool) {
	switch r.session.State() {
	case session.Idle:
		return r.handleStart(ctx, req.cmd), false
	case session.Recording:
		return r.handleStop(ctx, req)
	default:
		return ipc.Failure(req.cmd.ID, voxErrors.AlreadyRecording("busy: previous recording is still being transcribed")), false
	}
}

func (r *Router) autoStop() {
	r.timer = nil
	if r.session.State() != session.Recording {
		return
	}
	slog.Info("Auto-stop deadline reached", "max_duration", r.cfg.MaxDuration)
	r.stopRecording(r.ctx, ipc.SourceTimer)
}

// stopRecording finalizes capture, moves to Transcribing and dispatches the
// transcription. A capture failure still goes through Transcribing so the
// completion path is the only way back to Idle.
func (r *Router) stopRecording(ctx context.Context, source string) {
	r.disarmTimer()
	recordedFor := r.deps.Now().Sub(r.session.StartedAt())

	recording, captureErr := r.deps.Capturer.Finalize(ctx)
	if err := r.session.BeginTranscribing(); err != nil {
		// unreachable: callers checked the state
		slog.Error("Unexpected session state on stop", "error", err)
		return
	}

	r.deps.Sounds.Play(feedback.CueStop)

	r.seq++
	seq := r.seq
	prompt := r.session.Options().Prompt
	slog.Info("Recording stopped",
		"source", source,
		"samples", recording.Samples,
		"duration_ms", recording.DurationMS(),
		"recorded_for", recordedFor,
	)

	if captureErr != nil {
		r.post(completion{seq: seq, err: captureErr})
		return
	}

	concurrency.SafeGo(func() {
		text, err := r.deps.Transcriber.Transcribe(r.ctx, recording, prompt)
		r.post(completion{seq: seq, text: text, err: err})
	}, func(p interface{}) {
		r.post(completion{seq: seq, err: voxErrors.FromPanic(p)})
	})
}

// post hands a completion to the loop. It may be called from the loop itself,
// so it must not block when the loop is the only reader.
func (r *Router) post(ev completion) {
	select {
	case r.events <- ev:
	case <-r.quit:
	default:
		concurrency.SafeGo(func() {
			select {
			case r.events <- ev:
			case <-r.quit:
			}
		}, nil)
	}
}

// complete finishes a transcription: substitute, then save or deliver, then
// return to Idle whatever happened.
func (r *Router) complete(ev completion) {
	if ev.seq != r.seq || r.session.State() != session.Transcribing {
		slog.Warn("Dropping stale transcription result", "seq", ev.seq, "current", r.seq)
		return
	}

	opts := r.session.Options()
	outcome := r.deliverTranscript(opts, ev)

	if err := r.session.Finish(); err != nil {
		slog.Error("Failed to return session to idle", "error", err)
	}
	r.lastOutcome = &outcome

	if outcome.OK {
		slog.Info("Transcription handled", "delivery", outcome.Delivery, "stack_id", outcome.StackID, "message", outcome.Message)
	} else {
		slog.Warn("Transcription failed", "kind", outcome.ErrorKind, "message", outcome.Message)
	}

	for _, w := range r.waiters {
		w.reply <- outcomeResponse(w.cmd.ID, outcome)
	}
	r.waiters = nil
}

func (r *Router) deliverTranscript(opts session.Options, ev completion) ipc.Outcome {
	outcome := ipc.Outcome{FinishedAt: r.deps.Now().UTC()}
	if ev.err != nil {
		return failedOutcome(outcome, ev.err)
	}

	text := r.deps.Dictionary.Substitute(ev.text)
	outcome.Text = text
	if text == "" {
		outcome.OK = true
		outcome.Message = "no speech detected"
		return outcome
	}

	if r.stacks.Enabled() {
		entry, err := r.stacks.Save(text)
		if err != nil {
			return failedOutcome(outcome, err)
		}
		preview := stack.Preview(entry.Text, r.cfg.Stack.PreviewLength)
		r.deps.Notifier.Notify(overlay.StackAdded(entry.ID, preview))
		outcome.OK = true
		outcome.StackID = entry.ID
		outcome.Delivery = DeliveryStack
		outcome.Message = fmt.Sprintf("saved as stack %d", entry.ID)
		return outcome
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.DeliveryTimeout)
	defer cancel()
	delivery, err := r.deliver(ctx, opts.PasteMode, text)
	if err != nil {
		return failedOutcome(outcome, err)
	}
	outcome.OK = true
	outcome.Delivery = delivery
	outcome.Message = deliveryMessage(delivery)
	return outcome
}

func failedOutcome(o ipc.Outcome, err error) ipc.Outcome {
	o.OK = false
	o.Message = err.Error()
	o.ErrorKind = voxErrors.Category(err)
	return o
}

// outcomeResponse answers a waiting Stop with the outcome as payload.
func outcomeResponse(id string, o ipc.Outcome) ipc.Response {
	resp := ipc.Success(id, o.Message, o)
	if !o.OK {
		resp.OK = false
		resp.ErrorKind = o.ErrorKind
	}
	return resp
}

func (r *Router) handleEnableStackMode(cmd ipc.Command) ipc.Response {
	changed := r.stacks.Enable()
	msg := "stack mode enabled"
	if !changed {
		msg = "stack mode already enabled"
	}

	switch {
	case r.deps.Bridge == nil:
		msg += "; keyboard shortcuts are disabled"
	case !r.deps.Bridge.Active():
		if err := r.deps.Bridge.Start(); err != nil {
			perr := err
			if !voxErrors.IsCategory(err, voxErrors.ErrPermissionDenied) {
				perr = voxErrors.PermissionDenied(err.Error())
			}
			slog.Warn("Shortcut bridge unavailable, stack commands still work over IPC", "error", err)
			msg += fmt.Sprintf("; shortcuts unavailable (%v)", perr)
		}
	}

	if changed {
		r.deps.Notifier.Notify(overlay.ModeChanged(true))
	}
	return ipc.Success(cmd.ID, msg, r.stackList())
}

func (r *Router) handleDisableStackMode(cmd ipc.Command) ipc.Response {
	if r.deps.Bridge != nil {
		if r.deps.Bridge.Active() {
			if err := r.deps.Bridge.Stop(); err != nil {
				slog.Warn("Failed to stop shortcut bridge", "error", err)
			}
		}
		if n := r.deps.Bridge.Drain(); n > 0 {
			slog.Info("Discarded pending shortcut commands", "count", n)
		}
	}

	if !r.stacks.Enabled() {
		return ipc.Success(cmd.ID, "stack mode already disabled", r.stackList())
	}
	dropped := r.stacks.Disable()
	r.deps.Notifier.Notify(overlay.ModeChanged(false))
	return ipc.Success(cmd.ID, fmt.Sprintf("stack mode disabled; %d stacks cleared", dropped), r.stackList())
}

func (r *Router) handlePasteStack(ctx context.Context, cmd ipc.Command) ipc.Response {
	entry, err := r.stacks.Get(cmd.StackID)
	if err != nil {
		return ipc.Failure(cmd.ID, err)
	}

	mode, err := session.ParsePasteMode(cmd.PasteMode, r.cfg.PasteMode)
	if err != nil {
		return ipc.Failure(cmd.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.DeliveryTimeout)
	defer cancel()
	delivery, err := r.deliver(ctx, mode, entry.Text)
	if err != nil {
		return ipc.Failure(cmd.ID, err)
	}

	r.deps.Notifier.Notify(overlay.StackAccessed(entry.ID))
	return ipc.Success(cmd.ID, fmt.Sprintf("stack %d %s", entry.ID, deliveryMessage(delivery)), ipc.StackSavedPayload{
		ID:      entry.ID,
		Preview: stack.Preview(entry.Text, r.cfg.Stack.PreviewLength),
	})
}

func (r *Router) handleListStacks(cmd ipc.Command) ipc.Response {
	list := r.stackList()
	var msg string
	switch {
	case !list.Enabled:
		msg = "stack mode is disabled"
	case len(list.Stacks) == 0:
		msg = "no stacks saved"
	default:
		msg = fmt.Sprintf("%d stacks", len(list.Stacks))
	}
	return ipc.Success(cmd.ID, msg, list)
}

func (r *Router) handleClearStacks(cmd ipc.Command) ipc.Response {
	n := r.stacks.Clear()
	if n == 0 {
		return ipc.Success(cmd.ID, "nothing to clear", nil)
	}
	r.deps.Notifier.Notify(overlay.StacksCleared(n))
	return ipc.Success(cmd.ID, fmt.Sprintf("cleared %d stacks", n), nil)
}

func (r *Router) handleStatus(cmd ipc.Command) ipc.Response {
	payload := ipc.StatusPayload{
		Session:       r.session.Snapshot(),
		StackMode:     r.stacks.Enabled(),
		Stacks:        r.stacks.Len(),
		StackCapacity: r.stacks.Capacity(),
		LastOutcome:   r.lastOutcome,
	}
	if r.deps.Bridge != nil {
		payload.ShortcutActive = r.deps.Bridge.Active()
	}
	return ipc.Success(cmd.ID, payload.Session.State, payload)
}

func (r *Router) handleHealth(req request) ipc.Response {
	components := map[string]string{"router": "healthy"}
	if r.deps.Health != nil {
		for name, status := range r.deps.Health() {
			components[name] = status
		}
	}
	for name, status := range req.checks {
		components[name] = status
	}

	status := "healthy"
	for _, s := range components {
		if s != "healthy" {
			status = "degraded"
			break
		}
	}

	payload := ipc.HealthPayload{
		Status:     status,
		Components: components,
		UptimeMS:   r.deps.Now().Sub(r.startedAt).Milliseconds(),
	}
	if r.deps.Bridge != nil {
		payload.ShortcutDropped = r.deps.Bridge.Dropped()
	}
	return ipc.Success(req.cmd.ID, status, payload)
}

func (r *Router) stackList() ipc.StackListPayload {
	return ipc.StackListPayload{
		Enabled: r.stacks.Enabled(),
		Stacks:  r.stacks.List(),
	}
}
