package engine

import (
	"github.com/1broseidon/sizekeep/internal/platform"
	"github.com/1broseidon/sizekeep/internal/winid"
)

// beginIdentification resolves the window's identity, polling when the
// window system has not associated an application yet. Windows whose
// identity never settles are abandoned after a bounded number of checks.
func (e *Engine) beginIdentification(w *window, info platform.WindowInfo) {
	if id, ok := e.rules.Derive(info.AppID, info.Class); ok {
		e.identified(w, id)
		return
	}
	w.identifyAttempts = 0
	w.identify = e.ws.After(e.tun.IdentifyInterval, func() { e.identifyTick(w) })
}

func (e *Engine) identifyTick(w *window) {
	w.identify = nil
	info, ok := e.ws.Info(w.handle)
	if !ok {
		// Window vanished while we were waiting for its identity.
		e.remove(w)
		return
	}
	if id, ok := e.rules.Derive(info.AppID, info.Class); ok {
		e.identified(w, id)
		return
	}
	w.identifyAttempts++
	if w.identifyAttempts >= e.tun.IdentifyMaxAttempts {
		e.log.Debug("window never identified, giving up",
			"window", w.handle, "attempts", w.identifyAttempts, "title", info.Title)
		e.remove(w)
		return
	}
	w.identify = e.ws.After(e.tun.IdentifyInterval, func() { e.identifyTick(w) })
}

// identified wires the window's signals and settles its identity. Known
// provisional identities get a short refinement window first: some
// applications announce a generic identity and replace it with a specific
// one moments later, and keying records on the generic one would make every
// variant share a single size.
func (e *Engine) identified(w *window, id winid.ID) {
	e.track(w)
	if e.rules.Provisional(id) {
		w.provisional = id
		w.refineAttempts = 0
		w.refine = e.ws.After(e.tun.ProvisionalInterval, func() { e.refineTick(w) })
		return
	}
	e.settle(w, id)
}

func (e *Engine) refineTick(w *window) {
	w.refine = nil
	info, ok := e.ws.Info(w.handle)
	if !ok {
		e.remove(w)
		return
	}
	if id, ok := e.rules.Derive(info.AppID, info.Class); ok && id != w.provisional {
		e.settle(w, id)
		return
	}
	w.refineAttempts++
	if w.refineAttempts >= e.tun.ProvisionalMaxAttempts {
		// No refinement arrived; the generic identity is what we have.
		e.settle(w, w.provisional)
		return
	}
	w.refine = e.ws.After(e.tun.ProvisionalInterval, func() { e.refineTick(w) })
}

func (e *Engine) settle(w *window, id winid.ID) {
	w.id = id
	w.provisional = ""
	e.scheduleRestore(w)
}
