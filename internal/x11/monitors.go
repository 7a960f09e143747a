package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor is one physical display.
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// Monitors enumerates active displays via RandR.
func (c *Connection) Monitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}
	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if output, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(output.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   name,
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}
	return monitors, nil
}

// WorkAreaForWindow returns the usable area of the monitor holding the
// window's center: the monitor geometry with panels and docks carved out.
// Falls back to the monitor under the pointer, then the first monitor, and
// finally the whole root geometry when RandR is unavailable.
func (c *Connection) WorkAreaForWindow(win xproto.Window) (Monitor, error) {
	monitors, err := c.Monitors()
	if err != nil || len(monitors) == 0 {
		mon, rootErr := c.rootMonitor()
		if rootErr != nil {
			return Monitor{}, fmt.Errorf("no usable monitor: %w", rootErr)
		}
		c.intersectWorkArea(&mon)
		return mon, nil
	}

	mon := c.monitorForWindow(monitors, win)
	if mon == nil {
		mon = c.monitorForPointer(monitors)
	}
	if mon == nil {
		mon = &monitors[0]
	}

	out := *mon
	if !c.carveStruts(&out) {
		// No dock published struts; the flat EWMH work area is the next
		// best signal.
		c.intersectWorkArea(&out)
	}
	return out, nil
}

// monitorForWindow picks the monitor containing the window's center point.
func (c *Connection) monitorForWindow(monitors []Monitor, win xproto.Window) *Monitor {
	x, y, width, height, err := c.ClientGeometry(win)
	if err != nil {
		return nil
	}
	return monitorAt(monitors, x+width/2, y+height/2)
}

func (c *Connection) monitorForPointer(monitors []Monitor) *Monitor {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil
	}
	return monitorAt(monitors, int(pointer.RootX), int(pointer.RootY))
}

func monitorAt(monitors []Monitor, x, y int) *Monitor {
	for i := range monitors {
		m := &monitors[i]
		if x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height {
			return m
		}
	}
	return nil
}

func (c *Connection) rootMonitor() (Monitor, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return Monitor{}, err
	}
	return Monitor{Name: "root", Width: int(geom.Width), Height: int(geom.Height)}, nil
}

// carveStruts shrinks the monitor by every dock strut overlapping it and
// reports whether any strut applied.
func (c *Connection) carveStruts(mon *Monitor) bool {
	root, err := c.rootMonitor()
	if err != nil {
		return false
	}
	clients, err := c.ClientList()
	if err != nil {
		return false
	}

	monSpan := span{mon.X, mon.Y, mon.X + mon.Width, mon.Y + mon.Height}
	var left, right, top, bottom int
	for _, win := range clients {
		if !c.isDock(win) {
			continue
		}
		sp, err := ewmh.WmStrutPartialGet(c.XUtil, win)
		if err != nil {
			// Older docks only publish _NET_WM_STRUT, which covers the
			// full root span on each side.
			s, err := ewmh.WmStrutGet(c.XUtil, win)
			if err != nil {
				continue
			}
			sp = &ewmh.WmStrutPartial{
				Left: s.Left, Right: s.Right, Top: s.Top, Bottom: s.Bottom,
				LeftStartY: 0, LeftEndY: uint(root.Height - 1),
				RightStartY: 0, RightEndY: uint(root.Height - 1),
				TopStartX: 0, TopEndX: uint(root.Width - 1),
				BottomStartX: 0, BottomEndX: uint(root.Width - 1),
			}
		}

		if sp.Top > 0 {
			strut := span{int(sp.TopStartX), 0, int(sp.TopEndX) + 1, int(sp.Top)}
			top = maxInt(top, monSpan.intersect(strut).height())
		}
		if sp.Bottom > 0 {
			strut := span{int(sp.BottomStartX), root.Height - int(sp.Bottom), int(sp.BottomEndX) + 1, root.Height}
			bottom = maxInt(bottom, monSpan.intersect(strut).height())
		}
		if sp.Left > 0 {
			strut := span{0, int(sp.LeftStartY), int(sp.Left), int(sp.LeftEndY) + 1}
			left = maxInt(left, monSpan.intersect(strut).width())
		}
		if sp.Right > 0 {
			strut := span{root.Width - int(sp.Right), int(sp.RightStartY), root.Width, int(sp.RightEndY) + 1}
			right = maxInt(right, monSpan.intersect(strut).width())
		}
	}

	if left == 0 && right == 0 && top == 0 && bottom == 0 {
		return false
	}
	mon.X += left
	mon.Y += top
	mon.Width -= left + right
	mon.Height -= top + bottom
	if mon.Width < 1 {
		mon.Width = 1
	}
	if mon.Height < 1 {
		mon.Height = 1
	}
	return true
}

func (c *Connection) isDock(win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}

// intersectWorkArea clips the monitor against the current desktop's EWMH
// work area when the two overlap.
func (c *Connection) intersectWorkArea(mon *Monitor) {
	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return
	}
	idx := 0
	if desktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(desktop) < len(workArea) {
		idx = int(desktop)
	}
	wa := workArea[idx]

	monSpan := span{mon.X, mon.Y, mon.X + mon.Width, mon.Y + mon.Height}
	isect := monSpan.intersect(span{int(wa.X), int(wa.Y), int(wa.X) + int(wa.Width), int(wa.Y) + int(wa.Height)})
	if isect.empty() {
		return
	}
	mon.X = isect.x1
	mon.Y = isect.y1
	mon.Width = isect.width()
	mon.Height = isect.height()
}

// span is a half-open rectangle [x1,x2) x [y1,y2).
type span struct {
	x1, y1, x2, y2 int
}

func (s span) intersect(o span) span {
	out := span{
		x1: maxInt(s.x1, o.x1),
		y1: maxInt(s.y1, o.y1),
		x2: minInt(s.x2, o.x2),
		y2: minInt(s.y2, o.y2),
	}
	if out.x2 <= out.x1 || out.y2 <= out.y1 {
		return span{}
	}
	return out
}

func (s span) empty() bool { return s.x2 <= s.x1 || s.y2 <= s.y1 }
func (s span) width() int  { return s.x2 - s.x1 }
func (s span) height() int { return s.y2 - s.y1 }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
