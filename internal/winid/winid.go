// Package winid derives stable application identities for top-level windows.
//
// The identity is what saved sizes are keyed on, so it has to survive
// restarts and be shared by every window of the same application. The
// canonical application identity is preferred; the legacy window class is
// the fallback for applications that never announce one.
package winid

import "strings"

// ID is a normalized application identity. IDs are lowercase and carry no
// installer suffix, so "org.gnome.Nautilus.desktop" and "org.gnome.nautilus"
// compare equal.
type ID string

// Rules holds the configurable parts of identity derivation.
type Rules struct {
	transientPrefixes []string
	provisional       map[ID]struct{}
}

// NewRules builds derivation rules. transientPrefixes name identity forms
// that mean "no application associated yet" and are never used as keys.
// provisional lists identities that applications are known to refine into
// something more specific shortly after a window appears.
func NewRules(transientPrefixes, provisional []string) Rules {
	r := Rules{
		transientPrefixes: make([]string, 0, len(transientPrefixes)),
		provisional:       make(map[ID]struct{}, len(provisional)),
	}
	for _, p := range transientPrefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			r.transientPrefixes = append(r.transientPrefixes, p)
		}
	}
	for _, id := range provisional {
		if n := Normalize(id); n != "" {
			r.provisional[n] = struct{}{}
		}
	}
	return r
}

// Normalize lowercases raw and strips the ".desktop" launcher suffix.
func Normalize(raw string) ID {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, ".desktop")
	return ID(s)
}

// Derive resolves the identity for a window from its announced application
// identity and its window class. ok is false when neither yields a usable
// identity, which callers treat as "ask again later".
func (r Rules) Derive(appID, class string) (ID, bool) {
	if appID != "" && !r.Transient(appID) {
		if id := Normalize(appID); id != "" {
			return id, true
		}
	}
	if id := Normalize(class); id != "" {
		return id, true
	}
	return "", false
}

// Transient reports whether raw is a placeholder identity handed out before
// the real application is associated with the window.
func (r Rules) Transient(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range r.transientPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Provisional reports whether id is expected to be superseded by a more
// specific identity shortly after the window appears.
func (r Rules) Provisional(id ID) bool {
	_, ok := r.provisional[id]
	return ok
}
