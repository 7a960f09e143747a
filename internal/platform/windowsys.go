package platform

import "time"

// Handle is a platform-neutral identifier for a top-level window. A handle
// stays valid until the window system stops managing the window and is never
// reused while anything still holds it.
type Handle uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// WindowInfo is a point-in-time snapshot of the window attributes the
// tracking engine cares about. Fields may be zero when the window system
// has not populated them yet; callers re-query rather than cache.
type WindowInfo struct {
	AppID string // canonical application identity, "" until announced
	Class string // legacy window class, "" when unset
	Title string

	Normal      bool // ordinary application window, not dock/menu/tooltip
	SkipTaskbar bool
	Maximized   bool
	Fullscreen  bool
	Minimized   bool
	Mapped      bool // presentation surface is live on screen
}

// GrabKind classifies a completed interactive pointer operation.
type GrabKind int

const (
	GrabNone GrabKind = iota
	GrabMove
	GrabResize
)

// Signal is a live event subscription. Disconnect is idempotent and safe to
// call after the underlying window is gone.
type Signal interface {
	Disconnect()
}

// Timer is a cancellable one-shot callback. Cancel reports whether the
// callback was prevented from running; cancelling a fired or already
// cancelled timer returns false.
type Timer interface {
	Cancel() bool
}

// Scheduler hands out the current time and one-shot timers. Timer callbacks
// run on the same goroutine that delivers window-system signals, so code
// driven purely by signals and timers needs no locking.
type Scheduler interface {
	Now() time.Time
	After(d time.Duration, fn func()) Timer
}

// WindowSystem is the capability set the engine needs from a window system:
// global and per-window signal subscriptions, attribute queries, a single
// geometry mutation, and scheduling. Implementations deliver every callback
// on one goroutine.
type WindowSystem interface {
	Scheduler

	// OnWindowCreated fires for each window the system starts managing.
	OnWindowCreated(fn func(Handle)) Signal
	// OnGrabOpEnd fires when an interactive move or resize drag completes.
	OnGrabOpEnd(fn func(Handle, GrabKind)) Signal

	// OnResized fires whenever the window's frame size changes.
	OnResized(h Handle, fn func()) Signal
	// OnUnmanaged fires once when the window system drops the window.
	OnUnmanaged(h Handle, fn func()) Signal
	// OnFirstFrame fires at most once, just before the window presents its
	// first frame. Windows that painted before the subscription never fire.
	OnFirstFrame(h Handle, fn func()) Signal

	// Windows lists the currently managed top-level windows.
	Windows() []Handle
	// Info snapshots window attributes. ok is false once the window is gone.
	Info(h Handle) (WindowInfo, bool)
	// FrameGeometry returns the window's frame rectangle, decorations
	// included, in screen coordinates.
	FrameGeometry(h Handle) (Rect, bool)
	// WorkArea returns the usable area of the monitor the window occupies.
	WorkArea(h Handle) (Rect, bool)
	// MoveResize applies position and size in one operation.
	MoveResize(h Handle, r Rect) error
}
