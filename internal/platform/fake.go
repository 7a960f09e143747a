package platform

import (
	"fmt"
	"sort"
	"time"
)

// Fake is an in-memory WindowSystem for tests. Time is virtual: After
// timers fire only from Advance, synchronously on the calling goroutine,
// so tests never sleep and every run is deterministic.
type Fake struct {
	now time.Time

	windows    map[Handle]*FakeWindow
	order      []Handle
	nextHandle Handle

	timers   []*fakeTimer
	timerSeq int

	createdSubs map[int]func(Handle)
	grabSubs    map[int]func(Handle, GrabKind)
	subSeq      int

	// MoveResizeErr, when set, makes every MoveResize call fail with it.
	MoveResizeErr error
	moveResizes   int
}

// FakeWindow is the mutable backing state for one fake window. Tests adjust
// the exported fields directly and then raise the matching signals.
type FakeWindow struct {
	Info  WindowInfo
	Frame Rect
	Work  Rect

	gone       bool
	resized    map[int]func()
	unmanaged  map[int]func()
	firstFrame map[int]func()
}

func NewFake() *Fake {
	return &Fake{
		now:         time.Unix(1700000000, 0),
		windows:     make(map[Handle]*FakeWindow),
		nextHandle:  1,
		createdSubs: make(map[int]func(Handle)),
		grabSubs:    make(map[int]func(Handle, GrabKind)),
	}
}

// AddWindow registers a window and announces it to created subscribers.
func (f *Fake) AddWindow(info WindowInfo, frame, work Rect) Handle {
	h := f.nextHandle
	f.nextHandle++
	f.windows[h] = &FakeWindow{
		Info:       info,
		Frame:      frame,
		Work:       work,
		resized:    make(map[int]func()),
		unmanaged:  make(map[int]func()),
		firstFrame: make(map[int]func()),
	}
	f.order = append(f.order, h)
	for _, fn := range f.snapshotCreated() {
		fn(h)
	}
	return h
}

// Window exposes the backing state for direct mutation in tests.
func (f *Fake) Window(h Handle) *FakeWindow {
	w, ok := f.windows[h]
	if !ok || w.gone {
		panic(fmt.Sprintf("fake: window %d is gone", h))
	}
	return w
}

// Resize changes the frame size and raises the resized signal.
func (f *Fake) Resize(h Handle, width, height int) {
	w := f.Window(h)
	w.Frame.Width = width
	w.Frame.Height = height
	for _, fn := range snapshot(w.resized) {
		fn()
	}
}

// EmitFirstFrame raises the first-frame signal for h.
func (f *Fake) EmitFirstFrame(h Handle) {
	w := f.Window(h)
	for _, fn := range snapshot(w.firstFrame) {
		fn()
	}
}

// EndGrab announces a completed pointer operation on h.
func (f *Fake) EndGrab(h Handle, kind GrabKind) {
	for _, fn := range f.snapshotGrab() {
		fn(h, kind)
	}
}

// Unmanage raises the unmanaged signal and then forgets the window.
func (f *Fake) Unmanage(h Handle) {
	w := f.Window(h)
	for _, fn := range snapshot(w.unmanaged) {
		fn()
	}
	f.Vanish(h)
}

// Vanish forgets the window without raising any signal, simulating a missed
// teardown notification.
func (f *Fake) Vanish(h Handle) {
	w, ok := f.windows[h]
	if !ok {
		return
	}
	w.gone = true
	for i, other := range f.order {
		if other == h {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func (f *Fake) Windows() []Handle {
	out := make([]Handle, len(f.order))
	copy(out, f.order)
	return out
}

func (f *Fake) Info(h Handle) (WindowInfo, bool) {
	w, ok := f.windows[h]
	if !ok || w.gone {
		return WindowInfo{}, false
	}
	return w.Info, true
}

func (f *Fake) FrameGeometry(h Handle) (Rect, bool) {
	w, ok := f.windows[h]
	if !ok || w.gone {
		return Rect{}, false
	}
	return w.Frame, true
}

func (f *Fake) WorkArea(h Handle) (Rect, bool) {
	w, ok := f.windows[h]
	if !ok || w.gone {
		return Rect{}, false
	}
	return w.Work, true
}

func (f *Fake) MoveResize(h Handle, r Rect) error {
	if f.MoveResizeErr != nil {
		return f.MoveResizeErr
	}
	w, ok := f.windows[h]
	if !ok || w.gone {
		return fmt.Errorf("window %d is gone", h)
	}
	w.Frame = r
	f.moveResizes++
	return nil
}

// MoveResizeCalls counts successful geometry mutations.
func (f *Fake) MoveResizeCalls() int { return f.moveResizes }

func (f *Fake) OnWindowCreated(fn func(Handle)) Signal {
	id := f.subSeq
	f.subSeq++
	f.createdSubs[id] = fn
	return &fakeSignal{off: func() { delete(f.createdSubs, id) }}
}

func (f *Fake) OnGrabOpEnd(fn func(Handle, GrabKind)) Signal {
	id := f.subSeq
	f.subSeq++
	f.grabSubs[id] = fn
	return &fakeSignal{off: func() { delete(f.grabSubs, id) }}
}

func (f *Fake) OnResized(h Handle, fn func()) Signal {
	return f.subscribe(h, fn, func(w *FakeWindow) map[int]func() { return w.resized })
}

func (f *Fake) OnUnmanaged(h Handle, fn func()) Signal {
	return f.subscribe(h, fn, func(w *FakeWindow) map[int]func() { return w.unmanaged })
}

func (f *Fake) OnFirstFrame(h Handle, fn func()) Signal {
	return f.subscribe(h, fn, func(w *FakeWindow) map[int]func() { return w.firstFrame })
}

func (f *Fake) subscribe(h Handle, fn func(), pick func(*FakeWindow) map[int]func()) Signal {
	w, ok := f.windows[h]
	if !ok {
		return &fakeSignal{off: func() {}}
	}
	m := pick(w)
	id := f.subSeq
	f.subSeq++
	m[id] = fn
	return &fakeSignal{off: func() { delete(m, id) }}
}

func (f *Fake) Now() time.Time { return f.now }

func (f *Fake) After(d time.Duration, fn func()) Timer {
	t := &fakeTimer{due: f.now.Add(d), seq: f.timerSeq, fn: fn}
	f.timerSeq++
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the virtual clock forward by d, firing due timers in due
// order. Timers armed by a firing callback take part in the same pass, so
// retry chains play out within one Advance.
func (f *Fake) Advance(d time.Duration) {
	target := f.now.Add(d)
	for {
		next := -1
		for i, t := range f.timers {
			if t.done || t.due.After(target) {
				continue
			}
			if next == -1 || t.due.Before(f.timers[next].due) ||
				(t.due.Equal(f.timers[next].due) && t.seq < f.timers[next].seq) {
				next = i
			}
		}
		if next == -1 {
			break
		}
		t := f.timers[next]
		t.done = true
		f.now = t.due
		t.fn()
	}
	f.now = target

	live := f.timers[:0]
	for _, t := range f.timers {
		if !t.done {
			live = append(live, t)
		}
	}
	f.timers = live
}

// LiveTimers counts timers that are armed and not yet fired or cancelled.
func (f *Fake) LiveTimers() int {
	n := 0
	for _, t := range f.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// LiveSignals counts connected subscriptions, global and per-window.
func (f *Fake) LiveSignals() int {
	n := len(f.createdSubs) + len(f.grabSubs)
	for _, w := range f.windows {
		n += len(w.resized) + len(w.unmanaged) + len(w.firstFrame)
	}
	return n
}

func (f *Fake) snapshotCreated() []func(Handle) {
	keys := make([]int, 0, len(f.createdSubs))
	for k := range f.createdSubs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]func(Handle), 0, len(keys))
	for _, k := range keys {
		out = append(out, f.createdSubs[k])
	}
	return out
}

func (f *Fake) snapshotGrab() []func(Handle, GrabKind) {
	keys := make([]int, 0, len(f.grabSubs))
	for k := range f.grabSubs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]func(Handle, GrabKind), 0, len(keys))
	for _, k := range keys {
		out = append(out, f.grabSubs[k])
	}
	return out
}

func snapshot(m map[int]func()) []func() {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]func(), 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

type fakeSignal struct {
	off  func()
	done bool
}

func (s *fakeSignal) Disconnect() {
	if s.done {
		return
	}
	s.done = true
	s.off()
}

type fakeTimer struct {
	due  time.Time
	seq  int
	fn   func()
	done bool
}

func (t *fakeTimer) Cancel() bool {
	if t.done {
		return false
	}
	t.done = true
	return true
}

var _ WindowSystem = (*Fake)(nil)
