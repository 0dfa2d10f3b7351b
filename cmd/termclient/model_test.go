package main

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/client"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/transport"
)

func newOfflineModel(t *testing.T) model {
	t.Helper()
	mux, err := client.NewMultiplexer(nil, client.Options{Local: client.LocalOptions{User: "guest"}})
	require.NoError(t, err)
	return newModel(mux, nil)
}

func press(t *testing.T, m model, keys ...tea.KeyMsg) model {
	t.Helper()
	var tm tea.Model = m
	for _, k := range keys {
		tm, _ = tm.Update(k)
	}
	return tm.(model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func alt(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s), Alt: true}
}

func TestModelOfflineTyping(t *testing.T) {
	m := newOfflineModel(t)
	m = press(t, m, runes("echo hi"), tea.KeyMsg{Type: tea.KeyEnter})

	assert.Contains(t, m.mux.Active().Instance.Screen().PlainLines(), "hi")
	assert.Contains(t, ansi.Strip(m.View()), "1 Terminal 1")
}

func TestModelTabKeys(t *testing.T) {
	m := newOfflineModel(t)

	m = press(t, m, alt("t"), alt("t"))
	require.Equal(t, 3, m.mux.Len())
	assert.Equal(t, "Terminal 3", m.mux.Active().Title)

	m = press(t, m, alt("1"))
	assert.Equal(t, "Terminal 1", m.mux.Active().Title)

	m = press(t, m, alt("p"))
	assert.Equal(t, "Terminal 3", m.mux.Active().Title)

	m = press(t, m, alt("w"), alt("w"))
	assert.Equal(t, 1, m.mux.Len())

	m = press(t, m, alt("w"))
	assert.Equal(t, 1, m.mux.Len())
	assert.Contains(t, m.status, "last tab")
}

func TestModelWindowResize(t *testing.T) {
	m := newOfflineModel(t)
	tm, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = tm.(model)

	cols, rows := m.mux.Active().Instance.Screen().Size()
	assert.Equal(t, 100, cols)
	assert.Equal(t, 30-chromeRows, rows)
}

func TestModelQuit(t *testing.T) {
	m := newOfflineModel(t)
	_, cmd := m.Update(alt("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

type discardSender struct{}

func (discardSender) Send(transport.ClientMessage) error { return nil }

func TestModelConnectionClosedEndsTabs(t *testing.T) {
	mux, err := client.NewMultiplexer(discardSender{}, client.Options{})
	require.NoError(t, err)
	tab := mux.Active()
	mux.HandleEvent(transport.ServerMessage{Type: transport.EventCreated, ID: tab.SessionID(), Shell: "bash"})

	tm, _ := newModel(mux, nil).Update(connClosedMsg{err: errors.New("EOF")})
	m := tm.(model)

	assert.Equal(t, "disconnected: EOF", m.status)
	assert.Equal(t, client.StateFailed, tab.Instance.State())
	assert.Contains(t, ansi.Strip(m.View()), "[connection lost: EOF]")
	assert.Contains(t, ansi.Strip(m.View()), "(failed)")
}
