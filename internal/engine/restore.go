package engine

import (
	"github.com/1broseidon/sizekeep/internal/platform"
	"github.com/1broseidon/sizekeep/internal/store"
)

// restoreAttempt carries the in-flight handles for one window's
// restoration. At most one exists per window, and cancelRestore releases
// everything it owns.
type restoreAttempt struct {
	rec        store.Record
	firstFrame platform.Signal
	fallback   platform.Timer
	retry      platform.Timer
	attempts   int
}

// scheduleRestore runs once per settled window. It layers three
// strategies: apply immediately if the window is already laid out, apply
// right before the first frame is presented, and a short timed retry chain
// for windows where neither happens.
func (e *Engine) scheduleRestore(w *window) {
	if _, done := e.restored[restoreKey{w.id, w.seq}]; done {
		return
	}
	rec, ok := e.store.Get(w.id)
	if !ok {
		return
	}

	if e.applySize(w, rec) {
		return
	}

	r := &restoreAttempt{rec: rec}
	w.restore = r
	r.firstFrame = e.ws.OnFirstFrame(w.handle, func() { e.firstFrameFired(w) })
	r.fallback = e.ws.After(e.tun.RestoreFallbackDelay, func() { e.fallbackFired(w) })
}

// firstFrameFired applies the size at the last moment before the window
// becomes visible, so the user never sees it at the wrong size. The signal
// is one-shot: a miss here leaves the fallback chain to finish the job.
func (e *Engine) firstFrameFired(w *window) {
	r := w.restore
	if r == nil {
		return
	}
	if r.firstFrame != nil {
		r.firstFrame.Disconnect()
		r.firstFrame = nil
	}
	if e.applySize(w, r.rec) {
		e.cancelRestore(w)
	}
}

// fallbackFired starts the timed attempts for windows whose first-frame
// signal never came (or came too early to act on).
func (e *Engine) fallbackFired(w *window) {
	r := w.restore
	if r == nil {
		return
	}
	r.fallback = nil
	if r.firstFrame != nil {
		r.firstFrame.Disconnect()
		r.firstFrame = nil
	}
	e.retryTick(w)
}

func (e *Engine) retryTick(w *window) {
	r := w.restore
	if r == nil {
		return
	}
	r.retry = nil
	if e.applySize(w, r.rec) {
		e.cancelRestore(w)
		return
	}
	r.attempts++
	if r.attempts >= e.tun.RestoreMaxAttempts {
		e.log.Debug("giving up on restoring window",
			"window", w.handle, "id", w.id, "attempts", r.attempts)
		e.cancelRestore(w)
		return
	}
	r.retry = e.ws.After(e.tun.RestoreRetryDelay, func() { e.retryTick(w) })
}

func (e *Engine) cancelRestore(w *window) {
	r := w.restore
	if r == nil {
		return
	}
	if r.firstFrame != nil {
		r.firstFrame.Disconnect()
	}
	if r.fallback != nil {
		r.fallback.Cancel()
	}
	if r.retry != nil {
		r.retry.Cancel()
	}
	w.restore = nil
}

// applySize makes one attempt to put w at its recorded size. It returns
// false when the window is not ready yet and the caller should try again
// later. Success, including the decision that no mutation is needed, marks
// the instance restored.
func (e *Engine) applySize(w *window, rec store.Record) bool {
	info, ok := e.ws.Info(w.handle)
	if !ok || !info.Mapped || info.Minimized {
		return false
	}
	frame, ok := e.ws.FrameGeometry(w.handle)
	if !ok || frame.Width <= 0 || frame.Height <= 0 {
		return false
	}
	if info.Maximized || info.Fullscreen {
		// The window system owns the geometry in these states; resizing
		// underneath it would fight the user's choice.
		e.markRestored(w)
		return true
	}
	work, ok := e.ws.WorkArea(w.handle)
	if !ok || work.Width <= 0 || work.Height <= 0 {
		return false
	}

	target := centeredIn(work, rec.Width, rec.Height)
	if withinTolerance(frame, target, e.tun.TolerancePx) {
		e.markRestored(w)
		return true
	}
	if err := e.ws.MoveResize(w.handle, target); err != nil {
		e.log.Warn("failed to apply saved size",
			"window", w.handle, "id", w.id, "error", err)
		return false
	}
	e.log.Debug("restored window size",
		"window", w.handle, "id", w.id, "width", target.Width, "height", target.Height)
	e.markRestored(w)
	return true
}

func (e *Engine) markRestored(w *window) {
	e.restored[restoreKey{w.id, w.seq}] = struct{}{}
	e.restoredTotal++
}

// centeredIn clamps width and height to the work area and centers the
// result inside it.
func centeredIn(work platform.Rect, width, height int) platform.Rect {
	if width > work.Width {
		width = work.Width
	}
	if height > work.Height {
		height = work.Height
	}
	return platform.Rect{
		X:      work.X + (work.Width-width)/2,
		Y:      work.Y + (work.Height-height)/2,
		Width:  width,
		Height: height,
	}
}

func withinTolerance(a, b platform.Rect, tol int) bool {
	return abs(a.X-b.X) <= tol && abs(a.Y-b.Y) <= tol &&
		abs(a.Width-b.Width) <= tol && abs(a.Height-b.Height) <= tol
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
