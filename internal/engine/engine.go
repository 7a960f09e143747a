// Package engine watches application windows, remembers the sizes users
// give them, and puts new windows of the same application back at their
// remembered size.
//
// The engine is single-threaded: every entry point runs on the window
// system's callback goroutine, so its maps and counters are unguarded.
// Anything it arms (timers, subscriptions) it also tears down, which keeps
// Disable complete and leak-free.
package engine

import (
	"log/slog"
	"time"

	"github.com/1broseidon/sizekeep/internal/platform"
	"github.com/1broseidon/sizekeep/internal/store"
	"github.com/1broseidon/sizekeep/internal/winid"
)

// Tunables collects the engine's timing and tolerance knobs. Zero values
// select the defaults.
type Tunables struct {
	// SizeDebounce is how long a window must hold a size before it is
	// recorded. Interactive resizes emit a storm of intermediate sizes.
	SizeDebounce time.Duration

	// RestoreFallbackDelay is how long to wait for the first-frame signal
	// before falling back to timed restore attempts.
	RestoreFallbackDelay time.Duration
	// RestoreRetryDelay spaces the timed attempts; RestoreMaxAttempts
	// bounds them.
	RestoreRetryDelay  time.Duration
	RestoreMaxAttempts int

	// IdentifyInterval spaces identity re-checks for windows that appear
	// before their application is known; IdentifyMaxAttempts bounds them.
	IdentifyInterval    time.Duration
	IdentifyMaxAttempts int

	// ProvisionalInterval spaces re-checks for identities expected to be
	// refined shortly after the window appears.
	ProvisionalInterval    time.Duration
	ProvisionalMaxAttempts int

	// TolerancePx is the slack within which a window already counts as
	// being at its recorded geometry.
	TolerancePx int

	// ReconcileInterval spaces sweeps for windows that disappeared without
	// a teardown signal. Zero disables the sweep.
	ReconcileInterval time.Duration
}

func (t Tunables) withDefaults() Tunables {
	if t.SizeDebounce <= 0 {
		t.SizeDebounce = 500 * time.Millisecond
	}
	if t.RestoreFallbackDelay <= 0 {
		t.RestoreFallbackDelay = 50 * time.Millisecond
	}
	if t.RestoreRetryDelay <= 0 {
		t.RestoreRetryDelay = 50 * time.Millisecond
	}
	if t.RestoreMaxAttempts <= 0 {
		t.RestoreMaxAttempts = 5
	}
	if t.IdentifyInterval <= 0 {
		t.IdentifyInterval = 100 * time.Millisecond
	}
	if t.IdentifyMaxAttempts <= 0 {
		t.IdentifyMaxAttempts = 50
	}
	if t.ProvisionalInterval <= 0 {
		t.ProvisionalInterval = 100 * time.Millisecond
	}
	if t.ProvisionalMaxAttempts <= 0 {
		t.ProvisionalMaxAttempts = 5
	}
	if t.TolerancePx <= 0 {
		t.TolerancePx = 5
	}
	return t
}

// restoreKey marks one window instance as restored. The sequence number
// distinguishes instances, so closing and reopening an application window
// restores again while duplicate signals for one instance do not.
type restoreKey struct {
	id  winid.ID
	seq uint64
}

// window is the ephemeral tracking state for one live window. It holds
// every timer and subscription the engine owns for that window.
type window struct {
	handle platform.Handle
	seq    uint64
	id     winid.ID // "" until identification settles

	resized   platform.Signal
	unmanaged platform.Signal

	identify         platform.Timer
	identifyAttempts int

	refine         platform.Timer
	refineAttempts int
	provisional    winid.ID

	debounce platform.Timer

	restore *restoreAttempt
}

// Engine ties the resolver, the debouncer, and the restorer to a window
// system and a record store.
type Engine struct {
	ws    platform.WindowSystem
	store *store.Store
	rules winid.Rules
	tun   Tunables
	log   *slog.Logger

	enabled       bool
	seq           uint64
	tracked       map[platform.Handle]*window
	restored      map[restoreKey]struct{}
	restoredTotal int

	created   platform.Signal
	grabEnd   platform.Signal
	reconcile platform.Timer
}

func New(ws platform.WindowSystem, st *store.Store, rules winid.Rules, tun Tunables, log *slog.Logger) *Engine {
	return &Engine{
		ws:       ws,
		store:    st,
		rules:    rules,
		tun:      tun.withDefaults(),
		log:      log,
		tracked:  make(map[platform.Handle]*window),
		restored: make(map[restoreKey]struct{}),
	}
}

// Enable subscribes to the window system and starts tracking every window
// already present. Calling Enable on an enabled engine is a no-op.
func (e *Engine) Enable() {
	if e.enabled {
		return
	}
	e.enabled = true
	e.created = e.ws.OnWindowCreated(e.handleCreated)
	e.grabEnd = e.ws.OnGrabOpEnd(e.handleGrabOpEnd)
	for _, h := range e.ws.Windows() {
		e.handleCreated(h)
	}
	e.scheduleReconcile()
	e.log.Info("engine enabled", "windows", len(e.tracked))
}

// Disable tears down every subscription and timer the engine owns and
// forgets which instances were restored. The record store is untouched.
func (e *Engine) Disable() {
	if !e.enabled {
		return
	}
	for h, w := range e.tracked {
		e.teardown(w)
		delete(e.tracked, h)
	}
	if e.created != nil {
		e.created.Disconnect()
		e.created = nil
	}
	if e.grabEnd != nil {
		e.grabEnd.Disconnect()
		e.grabEnd = nil
	}
	if e.reconcile != nil {
		e.reconcile.Cancel()
		e.reconcile = nil
	}
	e.restored = make(map[restoreKey]struct{})
	e.enabled = false
	e.log.Info("engine disabled")
}

// handleCreated vets a new window and starts identification. Windows that
// are not ordinary application windows are ignored outright.
func (e *Engine) handleCreated(h platform.Handle) {
	if !e.enabled {
		return
	}
	if _, ok := e.tracked[h]; ok {
		return
	}
	info, ok := e.ws.Info(h)
	if !ok {
		return
	}
	if !info.Normal || info.SkipTaskbar {
		return
	}
	e.seq++
	w := &window{handle: h, seq: e.seq}
	e.tracked[h] = w
	e.beginIdentification(w, info)
}

// track subscribes to the window's own signals. Idempotent.
func (e *Engine) track(w *window) {
	if w.resized != nil {
		return
	}
	h := w.handle
	w.resized = e.ws.OnResized(h, func() { e.handleResized(h) })
	w.unmanaged = e.ws.OnUnmanaged(h, func() { e.handleUnmanaged(h) })
}

func (e *Engine) handleResized(h platform.Handle) {
	w, ok := e.tracked[h]
	if !ok || w.id == "" {
		return
	}
	if w.debounce != nil {
		w.debounce.Cancel()
	}
	w.debounce = e.ws.After(e.tun.SizeDebounce, func() {
		w.debounce = nil
		e.saveSize(w)
	})
}

// handleGrabOpEnd records the size as soon as the user releases a resize
// drag, instead of waiting out the debounce.
func (e *Engine) handleGrabOpEnd(h platform.Handle, kind platform.GrabKind) {
	if kind != platform.GrabResize {
		return
	}
	w, ok := e.tracked[h]
	if !ok || w.id == "" {
		return
	}
	if w.debounce != nil {
		w.debounce.Cancel()
		w.debounce = nil
	}
	e.saveSize(w)
}

// saveSize records the window's current frame size. Maximized, fullscreen,
// and minimized windows report sizes the user did not choose, so those are
// never recorded.
func (e *Engine) saveSize(w *window) {
	info, ok := e.ws.Info(w.handle)
	if !ok {
		return
	}
	if info.Maximized || info.Fullscreen || info.Minimized {
		return
	}
	frame, ok := e.ws.FrameGeometry(w.handle)
	if !ok || frame.Width <= 0 || frame.Height <= 0 {
		return
	}
	e.store.Set(w.id, frame.Width, frame.Height)
}

func (e *Engine) handleUnmanaged(h platform.Handle) {
	w, ok := e.tracked[h]
	if !ok {
		return
	}
	e.remove(w)
}

func (e *Engine) remove(w *window) {
	e.teardown(w)
	delete(e.tracked, w.handle)
	// The instance can never be restored again, so its dedup entry is dead
	// weight from here on.
	if w.id != "" {
		delete(e.restored, restoreKey{w.id, w.seq})
	}
}

// teardown cancels everything the engine owns for w. Safe to call twice.
func (e *Engine) teardown(w *window) {
	if w.identify != nil {
		w.identify.Cancel()
		w.identify = nil
	}
	if w.refine != nil {
		w.refine.Cancel()
		w.refine = nil
	}
	if w.debounce != nil {
		w.debounce.Cancel()
		w.debounce = nil
	}
	e.cancelRestore(w)
	if w.resized != nil {
		w.resized.Disconnect()
		w.resized = nil
	}
	if w.unmanaged != nil {
		w.unmanaged.Disconnect()
		w.unmanaged = nil
	}
}

func (e *Engine) scheduleReconcile() {
	if e.tun.ReconcileInterval <= 0 {
		return
	}
	e.reconcile = e.ws.After(e.tun.ReconcileInterval, func() {
		e.reconcile = nil
		e.reconcileNow()
		e.scheduleReconcile()
	})
}

// reconcileNow drops tracking state for windows that vanished without an
// unmanaged signal, so a missed event cannot pin timers forever.
func (e *Engine) reconcileNow() {
	for h, w := range e.tracked {
		if _, ok := e.ws.Info(h); ok {
			continue
		}
		e.log.Debug("dropping window that vanished silently", "window", h, "id", w.id)
		e.remove(w)
	}
}

// Status is a point-in-time summary for the control socket.
type Status struct {
	Tracked     int `json:"tracked"`
	Identifying int `json:"identifying"`
	Restored    int `json:"restored"`
}

// Snapshot reports how many windows are tracked, how many are still being
// identified, and how many instances have been restored so far.
func (e *Engine) Snapshot() Status {
	st := Status{Tracked: len(e.tracked), Restored: e.restoredTotal}
	for _, w := range e.tracked {
		if w.id == "" {
			st.Identifying++
		}
	}
	return st
}

// UpdateTunables swaps the timing knobs. In-flight timers keep their old
// delays; everything armed afterwards uses the new ones.
func (e *Engine) UpdateTunables(tun Tunables) {
	e.tun = tun.withDefaults()
}

// UpdateRules swaps the identity derivation rules for future windows.
func (e *Engine) UpdateRules(rules winid.Rules) {
	e.rules = rules
}
