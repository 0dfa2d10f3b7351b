package main

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/client"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/transport"
)

var (
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12")).Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Padding(0, 1)
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// chromeRows is the tab bar plus the status line.
const chromeRows = 2

type serverEventMsg transport.ServerMessage

type connClosedMsg struct{ err error }

type model struct {
	mux    *client.Multiplexer
	events <-chan transport.ServerMessage
	conn   *client.Conn
	status string
	width  int
	height int
}

func newModel(mux *client.Multiplexer, conn *client.Conn) model {
	m := model{mux: mux, conn: conn}
	if conn != nil {
		m.events = conn.Events()
		m.status = "connected"
	} else {
		m.status = "offline"
	}
	return m
}

func (m model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events, conn := m.events, m.conn
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return connClosedMsg{err: conn.Err()}
		}
		return serverEventMsg(msg)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case serverEventMsg:
		m.mux.HandleEvent(transport.ServerMessage(msg))
		return m, m.waitForEvent()

	case connClosedMsg:
		m.events = nil
		m.mux.Disconnected(msg.err)
		m.status = "disconnected"
		if msg.err != nil {
			m.status = "disconnected: " + msg.err.Error()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.report(m.mux.Resize(msg.Width, max(msg.Height-chromeRows, 1)))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "alt+q":
		return m, tea.Quit
	case "alt+t":
		_, err := m.mux.CreateTab()
		m.report(err)
		return m, nil
	case "alt+w":
		m.report(m.mux.CloseTab(m.mux.Active().ID))
		return m, nil
	case "alt+n":
		m.report(m.cycle(1))
		return m, nil
	case "alt+p":
		m.report(m.cycle(-1))
		return m, nil
	case "alt+1", "alt+2", "alt+3", "alt+4", "alt+5", "alt+6", "alt+7", "alt+8", "alt+9":
		idx := int(msg.Runes[0] - '1')
		if tabs := m.mux.Tabs(); idx < len(tabs) {
			m.report(m.mux.SetActive(tabs[idx].ID))
		}
		return m, nil
	}

	if data := keyBytes(msg); data != nil {
		m.report(m.mux.SendInput(data))
	}
	return m, nil
}

func (m model) cycle(step int) error {
	tabs := m.mux.Tabs()
	active := m.mux.Active()
	for i, tab := range tabs {
		if tab == active {
			next := tabs[(i+step+len(tabs))%len(tabs)]
			return m.mux.SetActive(next.ID)
		}
	}
	return nil
}

// report shows err on the status line.
func (m *model) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, client.ErrLastTab):
		m.status = "last tab cannot be closed, cleared instead"
	case errors.Is(err, client.ErrInputDisabled):
		m.status = "session ended, open a new tab with alt+t"
	default:
		m.status = err.Error()
	}
}

func (m model) View() string {
	var b strings.Builder

	for i, tab := range m.mux.Tabs() {
		label := fmt.Sprintf("%d %s", i+1, tab.Title)
		if state := tab.Instance.State(); state == client.StateExited || state == client.StateFailed {
			label += " (" + state.String() + ")"
		}
		if tab.IsActive() {
			b.WriteString(activeTabStyle.Render(label))
		} else {
			b.WriteString(inactiveTabStyle.Render(label))
		}
	}
	b.WriteString("\n")

	b.WriteString(m.mux.Active().Instance.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status + "  alt+t new  alt+w close  alt+n/p switch  alt+q quit"))
	return b.String()
}
