package client

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/transport"
)

// ErrInputDisabled is returned for keystrokes after the session ended.
var ErrInputDisabled = errors.New("terminal input is disabled")

// Sender delivers client frames to the server.
type Sender interface {
	Send(msg transport.ClientMessage) error
}

// Mode selects how an Instance handles input.
type Mode int

const (
	// ModeLive forwards every keystroke to a remote shell.
	ModeLive Mode = iota
	// ModeLocal simulates a small command set without a server.
	ModeLocal
)

func (m Mode) String() string {
	if m == ModeLocal {
		return "local"
	}
	return "live"
}

// State is the lifecycle of the session behind an Instance.
type State int

const (
	StatePending State = iota
	StateRunning
	StateExited
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Instance is one terminal surface bound to a session id.
type Instance struct {
	sessionID string
	mode      Mode
	sender    Sender
	screen    *Screen
	editor    *LineEditor

	mu       sync.Mutex
	state    State
	shell    string
	exitCode *int
	closed   bool
}

// NewLiveInstance creates an instance backed by a remote shell. Nothing is
// sent until the caller requests the session.
func NewLiveInstance(sessionID string, sender Sender, cols, rows int) *Instance {
	return &Instance{
		sessionID: sessionID,
		mode:      ModeLive,
		sender:    sender,
		screen:    NewScreen(cols, rows),
	}
}

// NewLocalInstance creates an offline instance running the built-in
// command table.
func NewLocalInstance(sessionID string, cols, rows int, opts LocalOptions) *Instance {
	screen := NewScreen(cols, rows)
	return &Instance{
		sessionID: sessionID,
		mode:      ModeLocal,
		screen:    screen,
		editor:    NewLineEditor(screen, opts),
		state:     StateRunning,
	}
}

// SessionID returns the bound session id.
func (i *Instance) SessionID() string { return i.sessionID }

// Mode returns the input backend.
func (i *Instance) Mode() Mode { return i.mode }

// Screen returns the rendering surface.
func (i *Instance) Screen() *Screen { return i.screen }

// State returns the session lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Shell returns the shell name reported by the server.
func (i *Instance) Shell() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.shell
}

// ExitCode returns the exit code, nil while running or when unknown.
func (i *Instance) ExitCode() *int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exitCode
}

// InputEnabled reports whether keystrokes are accepted.
func (i *Instance) InputEnabled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.inputEnabled()
}

func (i *Instance) inputEnabled() bool {
	if i.closed {
		return false
	}
	if i.mode == ModeLocal {
		return !i.editor.Exited()
	}
	return i.state == StatePending || i.state == StateRunning
}

// HandleKey takes raw keyboard bytes. Live instances forward them verbatim;
// local instances run them through the line editor.
func (i *Instance) HandleKey(data []byte) error {
	i.mu.Lock()
	if !i.inputEnabled() {
		i.mu.Unlock()
		return ErrInputDisabled
	}
	if i.mode == ModeLocal {
		i.editor.Feed(data)
		if i.editor.Exited() {
			i.state = StateExited
		}
		i.mu.Unlock()
		return nil
	}
	i.mu.Unlock()

	return i.sender.Send(transport.Input(i.sessionID, string(data)))
}

// HandleEvent applies a server event addressed to this session.
func (i *Instance) HandleEvent(msg transport.ServerMessage) {
	if i.mode == ModeLocal {
		return
	}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}

	refit := false
	switch msg.Type {
	case transport.EventCreated:
		i.state = StateRunning
		i.shell = msg.Shell
		refit = true
	case transport.EventOutput:
		i.screen.WriteString(msg.Data)
	case transport.EventExit:
		i.state = StateExited
		i.exitCode = msg.Code
		if msg.Code != nil {
			i.notice(dimStyle.Render(fmt.Sprintf("[process exited with code %d]", *msg.Code)))
		} else {
			i.notice(dimStyle.Render("[process terminated]"))
		}
	case transport.EventError:
		i.state = StateFailed
		i.notice(errorStyle.Render("[error: " + msg.Error + "]"))
	}
	i.mu.Unlock()

	if refit {
		// The shell starts at its default size; report the real one.
		_ = i.Fit(i.screen.Size())
	}
}

// Disconnect ends a live session whose connection is gone. The server has
// already destroyed the shell, so input is disabled and the cause shown
// inline. Sessions that already ended are left untouched.
func (i *Instance) Disconnect(cause error) {
	if i.mode == ModeLocal {
		return
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed || (i.state != StatePending && i.state != StateRunning) {
		return
	}
	i.state = StateFailed
	text := "[connection closed]"
	if cause != nil {
		text = "[connection lost: " + cause.Error() + "]"
	}
	i.notice(errorStyle.Render(text))
}

// notice renders a status line after whatever the shell printed.
func (i *Instance) notice(text string) {
	i.screen.WriteString("\r\n" + text + "\r\n")
}

// Fit resizes the surface and, for a live session, asks the server to
// resize the shell.
func (i *Instance) Fit(cols, rows int) error {
	i.screen.Fit(cols, rows)
	cols, rows = i.screen.Size()

	i.mu.Lock()
	send := i.mode == ModeLive && !i.closed && i.state == StateRunning
	i.mu.Unlock()
	if !send {
		return nil
	}
	return i.sender.Send(transport.Resize(i.sessionID, cols, rows))
}

// View renders the visible part of the screen.
func (i *Instance) View() string {
	return i.screen.View()
}

// Close detaches the instance; later events and keystrokes are ignored.
func (i *Instance) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
}
