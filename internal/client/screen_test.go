package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenControlCharacters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"plain lines", "one\ntwo\n", []string{"one", "two"}},
		{"crlf", "one\r\ntwo", []string{"one", "two"}},
		{"carriage return overwrites", "hello\rJ", []string{"Jello"}},
		{"backspace moves left", "abc\bX", []string{"abX"}},
		{"backspace erase idiom", "abc\b \b", []string{"ab "}},
		{"backspace at line start", "\bx", []string{"x"}},
		{"clear screen", "old\n\x1b[2J\x1b[Hnew", []string{"new"}},
		{"full reset", "old\n\x1bcnew", []string{"new"}},
		{"erase to end of line", "hello\r\x1b[K", nil},
		{"bell ignored", "a\ab", []string{"ab"}},
		{"color kept out of plain text", "\x1b[31mred\x1b[0m\n", []string{"red"}},
		{"empty", "", nil},
		{"window title with bel", "\x1b]0;root@vm: ~\x07root@vm:~# ls\r\nfile\r\n", []string{"root@vm:~# ls", "file"}},
		{"window title with st", "\x1b]2;title\x1b\\$ ", []string{"$ "}},
		{"device control string", "a\x1bPq#0;2;0;0;0\x1b\\b", []string{"ab"}},
		{"string ended by new escape", "\x1b]0;t\x1b[31mred", []string{"red"}},
		{"charset designation", "\x1b(Bplain", []string{"plain"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScreen(80, 24)
			s.WriteString(tt.input)
			got := s.PlainLines()
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScreenTitleSequenceNotRendered(t *testing.T) {
	s := NewScreen(80, 24)
	s.WriteString("\x1b]0;root@vm: ~\x07root@vm:~# ")

	assert.Equal(t, "root@vm:~# ", s.View())
	assert.NotContains(t, s.View(), "\x1b]")
}

func TestScreenSplitTitleSequence(t *testing.T) {
	s := NewScreen(80, 24)
	s.WriteString("\x1b]0;ti")
	s.WriteString("tle\x07$ ")

	assert.Equal(t, []string{"$ "}, s.Lines())
}

func TestScreenUnterminatedSequenceIsBounded(t *testing.T) {
	s := NewScreen(80, 24)
	s.WriteString("\x1b[" + strings.Repeat("1;", 100) + "m")
	s.WriteString("ok")

	assert.Equal(t, []string{"ok"}, s.PlainLines())

	s = NewScreen(80, 24)
	s.WriteString("\x1b]0;" + strings.Repeat("x", 10000))
	s.mu.Lock()
	pending := len(s.seq)
	s.mu.Unlock()
	assert.Zero(t, pending, "string payloads are not buffered")
}

func TestScreenKeepsColorSequences(t *testing.T) {
	s := NewScreen(80, 24)
	s.WriteString("\x1b[32mok\x1b[0m")

	require.Len(t, s.Lines(), 1)
	assert.Equal(t, "\x1b[32mok\x1b[0m", s.Lines()[0])
}

func TestScreenSplitWrites(t *testing.T) {
	s := NewScreen(80, 24)
	euro := []byte("€")

	s.Write([]byte("cost "))
	s.Write(euro[:1])
	s.Write(euro[1:])
	s.Write([]byte("\x1b["))
	s.Write([]byte("2J"))
	s.Write([]byte("after"))

	assert.Equal(t, []string{"after"}, s.PlainLines())
}

func TestScreenSplitRune(t *testing.T) {
	s := NewScreen(80, 24)
	euro := []byte("€")

	s.Write(append([]byte("cost "), euro[:2]...))
	s.Write(euro[2:])

	assert.Equal(t, []string{"cost €"}, s.PlainLines())
}

func TestScreenViewShowsLastRows(t *testing.T) {
	s := NewScreen(5, 2)
	s.WriteString("first\nsecond line\nthird")

	assert.Equal(t, "secon\nthird", s.View())
}

func TestScreenFit(t *testing.T) {
	s := NewScreen(0, 0)
	cols, rows := s.Size()
	assert.Equal(t, defaultCols, cols)
	assert.Equal(t, defaultRows, rows)

	s.Fit(132, 43)
	cols, rows = s.Size()
	assert.Equal(t, 132, cols)
	assert.Equal(t, 43, rows)
}

func TestScreenScrollbackIsBounded(t *testing.T) {
	s := NewScreen(80, 24)
	s.WriteString(strings.Repeat("line\n", maxScrollback+50))

	assert.Len(t, s.Lines(), maxScrollback-1)
}
