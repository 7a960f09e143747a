// Package x11 wraps the X server queries and notifications the daemon
// needs: client-list tracking, per-window attributes and geometry, monitor
// work areas, and one geometry mutation.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Connection manages the X11 connection and core X resources.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	atomClientList xproto.Atom
}

// NewConnection connects to the X server and subscribes to root property
// changes, which is how managed-window arrivals and departures are noticed.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	clientList, err := xprop.Atm(xu, "_NET_CLIENT_LIST")
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("failed to intern _NET_CLIENT_LIST: %w", err)
	}

	c := &Connection{
		XUtil:          xu,
		Root:           xu.RootWin(),
		atomClientList: clientList,
	}

	if err := xwindow.New(xu, c.Root).Listen(xproto.EventMaskPropertyChange); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("failed to listen on the root window: %w", err)
	}

	return c, nil
}

// ClientListAtom identifies root PropertyNotify events that mean the set of
// managed windows changed.
func (c *Connection) ClientListAtom() xproto.Atom {
	return c.atomClientList
}

// Events starts a reader goroutine and returns its channel. The channel
// closes when the connection shuts down. X protocol errors for unchecked
// requests are dropped; every query in this package is checked and reports
// its own errors.
func (c *Connection) Events() <-chan xgb.Event {
	out := make(chan xgb.Event, 64)
	go func() {
		defer close(out)
		for {
			ev, xerr := c.XUtil.Conn().WaitForEvent()
			if ev == nil && xerr == nil {
				return
			}
			if xerr != nil {
				continue
			}
			out <- ev
		}
	}()
	return out
}

// Close disconnects from the X server, which also ends the Events reader.
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
