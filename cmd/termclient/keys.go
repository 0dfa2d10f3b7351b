package main

import tea "github.com/charmbracelet/bubbletea"

// escapeKeys maps navigation keys to the xterm sequences shells expect.
var escapeKeys = map[tea.KeyType]string{
	tea.KeyUp:       "\x1b[A",
	tea.KeyDown:     "\x1b[B",
	tea.KeyRight:    "\x1b[C",
	tea.KeyLeft:     "\x1b[D",
	tea.KeyHome:     "\x1b[H",
	tea.KeyEnd:      "\x1b[F",
	tea.KeyShiftTab: "\x1b[Z",
	tea.KeyInsert:   "\x1b[2~",
	tea.KeyDelete:   "\x1b[3~",
	tea.KeyPgUp:     "\x1b[5~",
	tea.KeyPgDown:   "\x1b[6~",
}

// keyBytes translates a key press into the bytes a terminal would send.
// It returns nil for keys without a terminal encoding.
func keyBytes(msg tea.KeyMsg) []byte {
	var out string
	switch {
	case msg.Type == tea.KeyRunes:
		out = string(msg.Runes)
	case msg.Type == tea.KeySpace:
		out = " "
	case msg.Type >= 0 && msg.Type <= 127:
		// Control keys carry their ASCII code.
		out = string([]byte{byte(msg.Type)})
	default:
		seq, ok := escapeKeys[msg.Type]
		if !ok {
			return nil
		}
		out = seq
	}
	if msg.Alt {
		out = "\x1b" + out
	}
	return []byte(out)
}
