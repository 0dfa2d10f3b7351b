package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/shared/id"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/transport"
)

var (
	// ErrLastTab is returned when closing the only remaining tab. The tab is
	// cleared instead.
	ErrLastTab = errors.New("cannot close the last terminal tab")
	// ErrUnknownTab is returned for tab ids the multiplexer does not hold.
	ErrUnknownTab = errors.New("unknown terminal tab")
)

// Options configures a Multiplexer.
type Options struct {
	// Cwd is requested as the working directory of new sessions.
	Cwd    string
	Cols   int
	Rows   int
	Local  LocalOptions
	Logger *logging.Logger
}

// Multiplexer manages the terminal tabs of one client. With a nil sender
// it runs offline and every tab uses the local fallback.
type Multiplexer struct {
	sender Sender
	opts   Options
	logger *logging.Logger

	mu     sync.Mutex
	tabs   []*Tab
	active *Tab
	seq    int
}

// NewMultiplexer creates a multiplexer holding one active tab.
func NewMultiplexer(sender Sender, opts Options) (*Multiplexer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Cols <= 0 {
		opts.Cols = defaultCols
	}
	if opts.Rows <= 0 {
		opts.Rows = defaultRows
	}
	m := &Multiplexer{
		sender: sender,
		opts:   opts,
		logger: logger.Named("multiplexer"),
	}
	if _, err := m.CreateTab(); err != nil {
		return nil, err
	}
	return m, nil
}

// Offline reports whether tabs run without a server.
func (m *Multiplexer) Offline() bool { return m.sender == nil }

// CreateTab opens a new tab, requests its session and activates it.
func (m *Multiplexer) CreateTab() (*Tab, error) {
	sessionID := string(id.NewTerminalID())

	m.mu.Lock()
	m.seq++
	tab := &Tab{
		ID:    id.NewTabID(),
		Title: fmt.Sprintf("Terminal %d", m.seq),
	}
	if m.Offline() {
		tab.Instance = NewLocalInstance(sessionID, m.opts.Cols, m.opts.Rows, m.opts.Local)
	} else {
		tab.Instance = NewLiveInstance(sessionID, m.sender, m.opts.Cols, m.opts.Rows)
	}
	m.tabs = append(m.tabs, tab)
	m.activate(tab)
	m.mu.Unlock()

	m.logger.Debug("Opened terminal tab",
		zap.String("tab_id", string(tab.ID)),
		zap.String("session_id", sessionID),
		zap.String("mode", tab.Instance.Mode().String()),
	)

	if !m.Offline() {
		if err := m.sender.Send(transport.Create(sessionID, m.opts.Cwd)); err != nil {
			tab.Instance.HandleEvent(transport.ServerMessage{
				Type:  transport.EventError,
				ID:    sessionID,
				Error: err.Error(),
			})
			return tab, fmt.Errorf("request session %s: %w", sessionID, err)
		}
	}
	return tab, nil
}

// SetActive makes tabID the only active tab and refits its instance.
func (m *Multiplexer) SetActive(tabID id.TabID) error {
	m.mu.Lock()
	tab := m.find(tabID)
	if tab == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTab, tabID)
	}
	m.activate(tab)
	m.mu.Unlock()

	return tab.Instance.Fit(m.opts.Cols, m.opts.Rows)
}

// activate must be called with m.mu held.
func (m *Multiplexer) activate(tab *Tab) {
	for _, t := range m.tabs {
		t.active = t == tab
	}
	m.active = tab
}

// CloseTab destroys the tab's session and removes it. The last tab is never
// removed; its screen is cleared and ErrLastTab returned.
func (m *Multiplexer) CloseTab(tabID id.TabID) error {
	m.mu.Lock()
	tab := m.find(tabID)
	if tab == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTab, tabID)
	}
	if len(m.tabs) == 1 {
		m.mu.Unlock()
		tab.Instance.Screen().Clear()
		return ErrLastTab
	}

	idx := m.index(tab)
	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)
	var next *Tab
	if tab.active {
		next = m.tabs[0]
		m.activate(next)
	}
	m.mu.Unlock()

	tab.Instance.Close()

	var sendErr error
	if !m.Offline() {
		sendErr = m.sender.Send(transport.Destroy(tab.SessionID()))
	}
	if next != nil {
		if err := next.Instance.Fit(m.opts.Cols, m.opts.Rows); err != nil && sendErr == nil {
			sendErr = err
		}
	}
	if sendErr != nil {
		return fmt.Errorf("close tab %s: %w", tabID, sendErr)
	}
	return nil
}

// HandleEvent routes a server event to the tab owning its session id.
// Events for unknown sessions are dropped.
func (m *Multiplexer) HandleEvent(msg transport.ServerMessage) {
	if msg.ID == "" {
		m.logger.Warn("Server reported connection error", zap.String("error", msg.Error))
		return
	}

	tab := m.tabForSession(msg.ID)
	if tab == nil {
		m.logger.Debug("Dropping event for unknown session",
			zap.String("session_id", msg.ID),
			zap.String("type", msg.Type),
		)
		return
	}
	tab.Instance.HandleEvent(msg)
}

// Disconnected ends every live tab after the connection closed. Tabs stay
// open so their output can still be read.
func (m *Multiplexer) Disconnected(cause error) {
	if m.Offline() {
		return
	}
	m.logger.Warn("Connection to terminal server lost", zap.Error(cause))
	for _, tab := range m.Tabs() {
		tab.Instance.Disconnect(cause)
	}
}

// Run feeds events into HandleEvent until the channel closes or ctx is done.
func (m *Multiplexer) Run(ctx context.Context, events <-chan transport.ServerMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			m.HandleEvent(msg)
		}
	}
}

// SendInput routes keystrokes to the active tab.
func (m *Multiplexer) SendInput(data []byte) error {
	tab := m.Active()
	return tab.Instance.HandleKey(data)
}

// Resize records the new window size and refits the active tab.
func (m *Multiplexer) Resize(cols, rows int) error {
	m.mu.Lock()
	m.opts.Cols, m.opts.Rows = cols, rows
	tab := m.active
	m.mu.Unlock()
	return tab.Instance.Fit(cols, rows)
}

// Active returns the active tab.
func (m *Multiplexer) Active() *Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Tabs returns the tabs in display order.
func (m *Multiplexer) Tabs() []*Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Tab(nil), m.tabs...)
}

// Len returns the number of open tabs.
func (m *Multiplexer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tabs)
}

func (m *Multiplexer) find(tabID id.TabID) *Tab {
	for _, t := range m.tabs {
		if t.ID == tabID {
			return t
		}
	}
	return nil
}

func (m *Multiplexer) index(tab *Tab) int {
	for i, t := range m.tabs {
		if t == tab {
			return i
		}
	}
	return -1
}

func (m *Multiplexer) tabForSession(sessionID string) *Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tabs {
		if t.SessionID() == sessionID {
			return t
		}
	}
	return nil
}
