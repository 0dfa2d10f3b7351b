package client

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

const (
	defaultCols   = 80
	defaultRows   = 24
	maxScrollback = 2000
	// maxSequence bounds a pending escape sequence; longer ones are dropped.
	maxSequence = 64
)

type parseState int

const (
	stateGround parseState = iota
	stateEscape
	stateCSI
	// stateCSIIgnore discards an overlong CSI sequence up to its final byte.
	stateCSIIgnore
	// stateString swallows OSC, DCS, SOS, PM and APC payloads up to BEL or ST.
	stateString
	stateStringEscape
)

// Screen is a line-based rendering surface. It understands CR, LF, BS and
// the clear-screen sequences; other escape sequences are kept in the line
// so styled output survives rendering. String sequences such as window
// titles are dropped.
type Screen struct {
	mu    sync.Mutex
	cols  int
	rows  int
	lines [][]rune
	col   int

	state   parseState
	seq     []rune
	partial []byte
}

// NewScreen creates an empty screen of the given size.
func NewScreen(cols, rows int) *Screen {
	s := &Screen{}
	s.Fit(cols, rows)
	s.lines = [][]rune{{}}
	return s
}

// Fit records the visible size. Non-positive values keep the defaults.
func (s *Screen) Fit(cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cols <= 0 {
		cols = defaultCols
	}
	if rows <= 0 {
		rows = defaultRows
	}
	s.cols, s.rows = cols, rows
}

// Size returns the visible size.
func (s *Screen) Size() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Write renders p. Incomplete UTF-8 sequences are held until the next write.
func (s *Screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := p
	if len(s.partial) > 0 {
		data = append(s.partial, p...)
		s.partial = nil
	}
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 && !utf8.FullRune(data) {
			s.partial = append([]byte(nil), data...)
			break
		}
		s.feed(r)
		data = data[size:]
	}
	return len(p), nil
}

// WriteString renders str.
func (s *Screen) WriteString(str string) {
	_, _ = s.Write([]byte(str))
}

// Clear empties the screen and scrollback.
func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Screen) clear() {
	s.lines = [][]rune{{}}
	s.col = 0
}

func (s *Screen) feed(r rune) {
	switch s.state {
	case stateEscape:
		s.seq = append(s.seq, r)
		switch {
		case r == '[':
			s.state = stateCSI
		case r == ']' || r == 'P' || r == 'X' || r == '^' || r == '_':
			s.state = stateString
			s.seq = nil
		case r == 'c':
			// RIS, full reset.
			s.state = stateGround
			s.seq = nil
			s.clear()
		case r >= 0x20 && r <= 0x2f:
			// Intermediate byte, as in ESC ( B.
			if len(s.seq) > maxSequence {
				s.state = stateGround
				s.seq = nil
			}
		default:
			s.state = stateGround
			s.emitSequence()
		}
		return
	case stateCSI:
		s.seq = append(s.seq, r)
		switch {
		case r >= 0x40 && r <= 0x7e:
			s.state = stateGround
			s.finishCSI(r)
		case len(s.seq) > maxSequence:
			s.state = stateCSIIgnore
			s.seq = nil
		}
		return
	case stateCSIIgnore:
		if r >= 0x40 && r <= 0x7e {
			s.state = stateGround
		}
		return
	case stateString:
		switch r {
		case '\a':
			s.state = stateGround
		case '\x1b':
			s.state = stateStringEscape
		}
		return
	case stateStringEscape:
		if r == '\\' {
			s.state = stateGround
			return
		}
		// Any other escape ends the string and starts a new sequence.
		s.state = stateEscape
		s.seq = []rune{'\x1b'}
		s.feed(r)
		return
	}

	switch r {
	case '\x1b':
		s.state = stateEscape
		s.seq = []rune{r}
	case '\r':
		s.col = 0
	case '\n':
		s.newline()
	case '\b':
		if s.col > 0 {
			s.col--
		}
	case '\t':
		s.put(r)
	default:
		if r < 0x20 || r == 0x7f {
			return
		}
		s.put(r)
	}
}

func (s *Screen) finishCSI(final rune) {
	params := string(s.seq[2 : len(s.seq)-1])
	switch {
	case final == 'J' && (params == "2" || params == "3"):
		s.seq = nil
		s.clear()
	case final == 'H' && (params == "" || params == "1;1"):
		// Home on a line-based surface only matters after a clear.
		s.seq = nil
		s.col = 0
	case final == 'K':
		s.seq = nil
		line := s.lines[len(s.lines)-1]
		if s.col < len(line) {
			s.lines[len(s.lines)-1] = line[:s.col]
		}
	default:
		s.emitSequence()
	}
}

// emitSequence keeps an uninterpreted escape sequence in the current line.
func (s *Screen) emitSequence() {
	for _, r := range s.seq {
		s.put(r)
	}
	s.seq = nil
}

func (s *Screen) put(r rune) {
	i := len(s.lines) - 1
	line := s.lines[i]
	if s.col < len(line) {
		line[s.col] = r
	} else {
		line = append(line, r)
	}
	s.lines[i] = line
	s.col++
}

func (s *Screen) newline() {
	s.lines = append(s.lines, []rune{})
	s.col = 0
	if len(s.lines) > maxScrollback {
		s.lines = s.lines[len(s.lines)-maxScrollback:]
	}
}

// Lines returns every rendered line, including escape sequences. A trailing
// empty line holding only the cursor is omitted.
func (s *Screen) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.lines)
	if n > 0 && len(s.lines[n-1]) == 0 {
		n--
	}
	out := make([]string, n)
	for i := range n {
		out[i] = string(s.lines[i])
	}
	return out
}

// PlainLines returns Lines with ANSI sequences removed.
func (s *Screen) PlainLines() []string {
	lines := s.Lines()
	for i, line := range lines {
		lines[i] = ansi.Strip(line)
	}
	return lines
}

// View renders the last rows lines, truncated to the screen width.
func (s *Screen) View() string {
	s.mu.Lock()
	cols, rows := s.cols, s.rows
	start := max(len(s.lines)-rows, 0)
	visible := make([]string, 0, rows)
	for _, line := range s.lines[start:] {
		visible = append(visible, ansi.Truncate(string(line), cols, ""))
	}
	s.mu.Unlock()
	return strings.Join(visible, "\n")
}
