//go:build linux

package platform

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/sizekeep/internal/runloop"
	"github.com/1broseidon/sizekeep/internal/x11"
)

// grabPollInterval paces the pointer-button polls that detect the end of an
// interactive resize drag.
const grabPollInterval = 100 * time.Millisecond

// X11System implements WindowSystem over an X server. Managed windows are
// tracked by diffing _NET_CLIENT_LIST on root property changes; per-window
// events (configure, destroy, first expose) arrive once a window gains its
// first subscription. All state is owned by the run loop goroutine.
type X11System struct {
	conn *x11.Connection
	loop *runloop.Loop
	log  *slog.Logger

	known map[Handle]struct{}
	order []Handle

	created   map[int]func(Handle)
	grabEnd   map[int]func(Handle, GrabKind)
	resized   map[Handle]map[int]func()
	unmanaged map[Handle]map[int]func()
	first     map[Handle]map[int]func()
	subSeq    int

	listened  map[Handle]bool
	lastSize  map[Handle][2]int
	exposed   map[Handle]bool
	grabWatch map[Handle]Timer
}

var _ WindowSystem = (*X11System)(nil)

// NewX11WindowSystem opens a display connection and primes the managed
// window list. Start must be called before events flow.
func NewX11WindowSystem(loop *runloop.Loop, log *slog.Logger) (*X11System, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}

	s := &X11System{
		conn:      conn,
		loop:      loop,
		log:       log,
		known:     make(map[Handle]struct{}),
		created:   make(map[int]func(Handle)),
		grabEnd:   make(map[int]func(Handle, GrabKind)),
		resized:   make(map[Handle]map[int]func()),
		unmanaged: make(map[Handle]map[int]func()),
		first:     make(map[Handle]map[int]func()),
		listened:  make(map[Handle]bool),
		lastSize:  make(map[Handle][2]int),
		exposed:   make(map[Handle]bool),
		grabWatch: make(map[Handle]Timer),
	}

	clients, err := conn.ClientList()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read the client list: %w", err)
	}
	for _, win := range clients {
		h := Handle(win)
		s.known[h] = struct{}{}
		s.order = append(s.order, h)
	}

	return s, nil
}

// Start begins reading X events and feeding them to the run loop. onEnd
// runs on the loop when the event stream closes, which for a daemon means
// the display went away and it is time to shut down.
func (s *X11System) Start(onEnd func()) {
	events := s.conn.Events()
	go func() {
		for ev := range events {
			ev := ev
			s.loop.Post(func() { s.dispatch(ev) })
		}
		s.loop.Post(onEnd)
	}()
}

// Close drops the display connection, ending the event stream.
func (s *X11System) Close() {
	s.conn.Close()
}

func (s *X11System) dispatch(ev xgb.Event) {
	switch e := ev.(type) {
	case xproto.PropertyNotifyEvent:
		if e.Window == s.conn.Root && e.Atom == s.conn.ClientListAtom() {
			s.syncClientList()
		}
	case xproto.ConfigureNotifyEvent:
		s.handleConfigure(e)
	case xproto.DestroyNotifyEvent:
		s.dropWindow(Handle(e.Window))
	case xproto.ExposeEvent:
		s.handleExpose(Handle(e.Window))
	}
}

// syncClientList diffs _NET_CLIENT_LIST against the known set: new entries
// are announced as created, missing entries as unmanaged.
func (s *X11System) syncClientList() {
	clients, err := s.conn.ClientList()
	if err != nil {
		s.log.Warn("failed to read the client list", "error", err)
		return
	}

	current := make(map[Handle]struct{}, len(clients))
	order := make([]Handle, 0, len(clients))
	var added []Handle
	for _, win := range clients {
		h := Handle(win)
		current[h] = struct{}{}
		order = append(order, h)
		if _, ok := s.known[h]; !ok {
			added = append(added, h)
		}
	}

	var removed []Handle
	for h := range s.known {
		if _, ok := current[h]; !ok {
			removed = append(removed, h)
		}
	}

	s.known = current
	s.order = order

	for _, h := range removed {
		s.announceUnmanaged(h)
		s.forget(h)
	}
	for _, h := range added {
		for _, fn := range snapshot1(s.created) {
			fn(h)
		}
	}
}

// dropWindow handles a DestroyNotify, which can arrive before or after the
// client-list update; whichever lands first does the announcing.
func (s *X11System) dropWindow(h Handle) {
	if _, ok := s.known[h]; !ok {
		s.forget(h)
		return
	}
	delete(s.known, h)
	for i, other := range s.order {
		if other == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.announceUnmanaged(h)
	s.forget(h)
}

func (s *X11System) announceUnmanaged(h Handle) {
	for _, fn := range snapshot(s.unmanaged[h]) {
		fn()
	}
}

// forget releases the adapter's own per-window bookkeeping. Subscriber maps
// stay until the subscribers disconnect, so late Disconnects remain no-ops.
func (s *X11System) forget(h Handle) {
	delete(s.listened, h)
	delete(s.lastSize, h)
	delete(s.exposed, h)
	if t, ok := s.grabWatch[h]; ok {
		t.Cancel()
		delete(s.grabWatch, h)
	}
}

// handleConfigure turns configure events into resized signals, ignoring
// pure moves. A size change with a pointer button held marks the start of
// an interactive resize; its release is announced as a grab-op end.
func (s *X11System) handleConfigure(e xproto.ConfigureNotifyEvent) {
	h := Handle(e.Window)
	if _, ok := s.known[h]; !ok {
		return
	}
	size := [2]int{int(e.Width), int(e.Height)}
	if prev, ok := s.lastSize[h]; ok && prev == size {
		return
	}
	s.lastSize[h] = size

	for _, fn := range snapshot(s.resized[h]) {
		fn()
	}
	s.maybeWatchGrab(h)
}

func (s *X11System) maybeWatchGrab(h Handle) {
	if _, ok := s.grabWatch[h]; ok {
		return
	}
	held, err := s.conn.PointerButtonsDown()
	if err != nil || !held {
		return
	}
	s.armGrabPoll(h)
}

func (s *X11System) armGrabPoll(h Handle) {
	s.grabWatch[h] = s.loop.After(grabPollInterval, func() {
		held, err := s.conn.PointerButtonsDown()
		if err == nil && held {
			s.armGrabPoll(h)
			return
		}
		delete(s.grabWatch, h)
		if err != nil {
			return
		}
		for _, fn := range snapshot2(s.grabEnd) {
			fn(h, GrabResize)
		}
	})
}

// handleExpose announces the first frame exactly once per window.
func (s *X11System) handleExpose(h Handle) {
	if s.exposed[h] {
		return
	}
	if _, ok := s.known[h]; !ok {
		return
	}
	s.exposed[h] = true
	for _, fn := range snapshot(s.first[h]) {
		fn()
	}
}

// ensureListen selects the per-window event masks the first time anything
// subscribes to the window.
func (s *X11System) ensureListen(h Handle) {
	if s.listened[h] {
		return
	}
	s.listened[h] = true
	win := xproto.Window(h)
	if err := s.conn.Listen(win, xproto.EventMaskStructureNotify|xproto.EventMaskExposure); err != nil {
		s.log.Debug("failed to select window events", "window", h, "error", err)
		return
	}
	if _, _, width, height, err := s.conn.ClientGeometry(win); err == nil {
		s.lastSize[h] = [2]int{width, height}
	}
}

func (s *X11System) OnWindowCreated(fn func(Handle)) Signal {
	id := s.subSeq
	s.subSeq++
	s.created[id] = fn
	return &x11Signal{off: func() { delete(s.created, id) }}
}

func (s *X11System) OnGrabOpEnd(fn func(Handle, GrabKind)) Signal {
	id := s.subSeq
	s.subSeq++
	s.grabEnd[id] = fn
	return &x11Signal{off: func() { delete(s.grabEnd, id) }}
}

func (s *X11System) OnResized(h Handle, fn func()) Signal {
	s.ensureListen(h)
	return s.subscribe(s.resized, h, fn)
}

func (s *X11System) OnUnmanaged(h Handle, fn func()) Signal {
	s.ensureListen(h)
	return s.subscribe(s.unmanaged, h, fn)
}

func (s *X11System) OnFirstFrame(h Handle, fn func()) Signal {
	s.ensureListen(h)
	return s.subscribe(s.first, h, fn)
}

func (s *X11System) subscribe(reg map[Handle]map[int]func(), h Handle, fn func()) Signal {
	m, ok := reg[h]
	if !ok {
		m = make(map[int]func())
		reg[h] = m
	}
	id := s.subSeq
	s.subSeq++
	m[id] = fn
	return &x11Signal{off: func() {
		delete(m, id)
		if len(m) == 0 {
			delete(reg, h)
		}
	}}
}

func (s *X11System) Windows() []Handle {
	out := make([]Handle, len(s.order))
	copy(out, s.order)
	return out
}

func (s *X11System) Info(h Handle) (WindowInfo, bool) {
	win := xproto.Window(h)
	viewable, err := s.conn.Viewable(win)
	if err != nil {
		return WindowInfo{}, false
	}
	states := s.conn.States(win)
	return WindowInfo{
		AppID:       s.conn.AppID(win),
		Class:       s.conn.WmClass(win),
		Title:       s.conn.Title(win),
		Normal:      s.conn.IsNormalWindow(win),
		SkipTaskbar: states.SkipTaskbar,
		Maximized:   states.Maximized(),
		Fullscreen:  states.Fullscreen,
		Minimized:   states.Hidden,
		Mapped:      viewable,
	}, true
}

// FrameGeometry expands the client rectangle by the decoration extents, so
// saved sizes describe what the user actually sees and drags.
func (s *X11System) FrameGeometry(h Handle) (Rect, bool) {
	win := xproto.Window(h)
	x, y, width, height, err := s.conn.ClientGeometry(win)
	if err != nil {
		return Rect{}, false
	}
	left, right, top, bottom := s.conn.FrameExtents(win)
	return Rect{
		X:      x - left,
		Y:      y - top,
		Width:  width + left + right,
		Height: height + top + bottom,
	}, true
}

func (s *X11System) WorkArea(h Handle) (Rect, bool) {
	mon, err := s.conn.WorkAreaForWindow(xproto.Window(h))
	if err != nil {
		return Rect{}, false
	}
	return Rect{X: mon.X, Y: mon.Y, Width: mon.Width, Height: mon.Height}, true
}

// MoveResize takes a frame rectangle: the position passes through (frame
// gravity) while the size is shrunk back to client dimensions.
func (s *X11System) MoveResize(h Handle, r Rect) error {
	win := xproto.Window(h)
	left, right, top, bottom := s.conn.FrameExtents(win)
	width := r.Width - left - right
	height := r.Height - top - bottom
	if width < 1 || height < 1 {
		width, height = r.Width, r.Height
	}
	return s.conn.MoveResizeWindow(win, r.X, r.Y, width, height)
}

func (s *X11System) Now() time.Time { return time.Now() }

func (s *X11System) After(d time.Duration, fn func()) Timer {
	return s.loop.After(d, fn)
}

type x11Signal struct {
	off  func()
	done bool
}

func (s *x11Signal) Disconnect() {
	if s.done {
		return
	}
	s.done = true
	s.off()
}

func snapshot1(m map[int]func(Handle)) []func(Handle) {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]func(Handle), 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func snapshot2(m map[int]func(Handle, GrabKind)) []func(Handle, GrabKind) {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]func(Handle, GrabKind), 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
