package client

import "github.com/MWade09/Live-Code-Editor-sub004/internal/shared/id"

// Tab binds one session to one Instance.
type Tab struct {
	ID       id.TabID
	Title    string
	Instance *Instance

	active bool
}

// SessionID returns the session the tab is bound to.
func (t *Tab) SessionID() string { return t.Instance.SessionID() }

// IsActive reports whether the tab currently receives keystrokes.
func (t *Tab) IsActive() bool { return t.active }
