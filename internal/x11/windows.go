package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// ClientList returns the windows the window manager currently manages, in
// mapping order.
func (c *Connection) ClientList() ([]xproto.Window, error) {
	return ewmh.ClientListGet(c.XUtil)
}

// AppID returns the application identity a toolkit announced for the
// window, or "" when none is set. GTK publishes _GTK_APPLICATION_ID for
// applications with a registered identity.
func (c *Connection) AppID(win xproto.Window) string {
	s, err := xprop.PropValStr(xprop.GetProperty(c.XUtil, win, "_GTK_APPLICATION_ID"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// WmClass returns the class half of WM_CLASS, the legacy identity every
// toolkit still sets.
func (c *Connection) WmClass(win xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, win)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// Title returns the window title, preferring the EWMH name over the legacy
// ICCCM one.
func (c *Connection) Title(win xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, win); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	if title, err := icccm.WmNameGet(c.XUtil, win); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	return ""
}

// IsNormalWindow reports whether the window is an ordinary application
// window rather than a dock, dialog, menu, or other auxiliary surface.
// Windows without a declared type are treated as normal.
func (c *Connection) IsNormalWindow(win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return true
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_TOOLBAR",
			"_NET_WM_WINDOW_TYPE_MENU",
			"_NET_WM_WINDOW_TYPE_UTILITY",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_DIALOG",
			"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
			"_NET_WM_WINDOW_TYPE_POPUP_MENU",
			"_NET_WM_WINDOW_TYPE_TOOLTIP",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION",
			"_NET_WM_WINDOW_TYPE_COMBO",
			"_NET_WM_WINDOW_TYPE_DND":
			return false
		}
	}
	return len(types) == 0
}

// WindowState is the subset of _NET_WM_STATE the daemon reacts to.
type WindowState struct {
	MaximizedHorz bool
	MaximizedVert bool
	Fullscreen    bool
	Hidden        bool
	SkipTaskbar   bool
}

// Maximized reports whether either maximization direction is set; a window
// the manager controls in one axis is not freely sized in it.
func (s WindowState) Maximized() bool {
	return s.MaximizedHorz || s.MaximizedVert
}

// States reads the window's _NET_WM_STATE. A window with no such property
// reports the zero state.
func (c *Connection) States(win xproto.Window) WindowState {
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		return WindowState{}
	}
	var out WindowState
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			out.MaximizedHorz = true
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			out.MaximizedVert = true
		case "_NET_WM_STATE_FULLSCREEN":
			out.Fullscreen = true
		case "_NET_WM_STATE_HIDDEN":
			out.Hidden = true
		case "_NET_WM_STATE_SKIP_TASKBAR":
			out.SkipTaskbar = true
		}
	}
	return out
}

// Viewable reports whether the window is mapped and visible. The error also
// answers "does this window still exist", which is how vanished windows are
// detected.
func (c *Connection) Viewable(win xproto.Window) (bool, error) {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err != nil {
		return false, err
	}
	return attrs.MapState == xproto.MapStateViewable, nil
}

// ClientGeometry returns the window's client rectangle in root coordinates.
func (c *Connection) ClientGeometry(win xproto.Window) (x, y, width, height int, err error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), nil
}

// FrameExtents returns the window decoration sizes, zero when the manager
// does not report them.
func (c *Connection) FrameExtents(win xproto.Window) (left, right, top, bottom int) {
	extents, err := ewmh.FrameExtentsGet(c.XUtil, win)
	if err != nil {
		return 0, 0, 0, 0
	}
	return int(extents.Left), int(extents.Right), int(extents.Top), int(extents.Bottom)
}

// MoveResizeWindow applies position and size in one request, preferring the
// EWMH message so the window manager cooperates, with a direct configure as
// the fallback for managers that ignore it.
func (c *Connection) MoveResizeWindow(win xproto.Window, x, y, width, height int) error {
	if err := ewmh.MoveresizeWindow(c.XUtil, win, x, y, width, height); err != nil {
		xwindow.New(c.XUtil, win).MoveResize(x, y, width, height)
	}
	return nil
}

// Listen adds event masks on the window. Used to receive configure, map,
// destroy, and expose notifications for tracked windows.
func (c *Connection) Listen(win xproto.Window, masks int) error {
	return xwindow.New(c.XUtil, win).Listen(masks)
}

// PointerButtonsDown reports whether any pointer button is currently held,
// which is the observable trace of an interactive move or resize drag.
func (c *Connection) PointerButtonsDown() (bool, error) {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return false, err
	}
	const buttons = xproto.ButtonMask1 | xproto.ButtonMask2 | xproto.ButtonMask3
	return pointer.Mask&buttons != 0, nil
}
