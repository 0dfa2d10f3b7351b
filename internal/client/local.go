package client

import (
	"io"
	"strings"
	"time"
)

// LocalOptions configures the offline command simulation.
type LocalOptions struct {
	User  string
	Host  string
	Cwd   string
	Files []string
	Now   func() time.Time
}

func (o LocalOptions) withDefaults() LocalOptions {
	if o.User == "" {
		o.User = "guest"
	}
	if o.Host == "" {
		o.Host = "offline"
	}
	if o.Cwd == "" {
		o.Cwd = "/home/" + o.User
	}
	if o.Files == nil {
		o.Files = []string{"README.md", "src/", "package.json"}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type editorMode int

const (
	modeReady editorMode = iota
	// modeEscape swallows an escape sequence such as an arrow key.
	modeEscape
	modeCSI
	modeExited
)

const (
	keyCtrlC     = 0x03
	keyCtrlL     = 0x0c
	keyBackspace = 0x7f
	keyCtrlH     = 0x08
	keyEscape    = 0x1b
)

// LineEditor is the local-fallback input state machine: a line buffer plus
// a mode. It renders to any io.Writer and never touches the network.
type LineEditor struct {
	opts    LocalOptions
	out     io.Writer
	buf     []rune
	mode    editorMode
	afterCR bool
	history []string
}

// NewLineEditor creates an editor writing to out and prints the banner and
// first prompt.
func NewLineEditor(out io.Writer, opts LocalOptions) *LineEditor {
	e := &LineEditor{opts: opts.withDefaults(), out: out}
	e.println(dimStyle.Render("Offline terminal. Type 'help' for available commands."))
	e.prompt()
	return e
}

// Exited reports whether the exit command has run.
func (e *LineEditor) Exited() bool { return e.mode == modeExited }

// Buffer returns the line being edited.
func (e *LineEditor) Buffer() string { return string(e.buf) }

// History returns the entered command lines, oldest first.
func (e *LineEditor) History() []string {
	return append([]string(nil), e.history...)
}

// Feed processes raw keyboard bytes.
func (e *LineEditor) Feed(data []byte) {
	for _, r := range string(data) {
		e.key(r)
	}
}

func (e *LineEditor) key(r rune) {
	afterCR := e.afterCR
	e.afterCR = false

	switch e.mode {
	case modeExited:
		return
	case modeEscape:
		if r == '[' || r == 'O' {
			e.mode = modeCSI
		} else {
			e.mode = modeReady
		}
		return
	case modeCSI:
		if r >= 0x40 && r <= 0x7e {
			e.mode = modeReady
		}
		return
	}

	switch r {
	case '\r':
		e.afterCR = true
		e.enter()
	case '\n':
		// CRLF is one Enter.
		if !afterCR {
			e.enter()
		}
	case keyBackspace, keyCtrlH:
		if len(e.buf) == 0 {
			return
		}
		e.buf = e.buf[:len(e.buf)-1]
		e.write("\b \b")
	case keyCtrlC:
		e.buf = e.buf[:0]
		e.write("^C\r\n")
		e.prompt()
	case keyCtrlL:
		e.clearScreen()
		e.prompt()
		e.write(string(e.buf))
	case keyEscape:
		e.mode = modeEscape
	default:
		if r < 0x20 {
			return
		}
		e.buf = append(e.buf, r)
		e.write(string(r))
	}
}

func (e *LineEditor) enter() {
	line := strings.TrimSpace(string(e.buf))
	e.buf = e.buf[:0]
	e.write("\r\n")

	if line != "" {
		e.history = append(e.history, line)
		e.dispatch(line)
	}
	if e.mode != modeExited {
		e.prompt()
	}
}

func (e *LineEditor) dispatch(line string) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	cmd, ok := builtins[name]
	if !ok {
		e.println(notFound(name))
		return
	}
	cmd.run(e, args)
}

func (e *LineEditor) prompt() {
	e.write(promptUserStyle.Render(e.opts.User+"@"+e.opts.Host) + ":" +
		promptPathStyle.Render(e.opts.Cwd) + "$ ")
}

func (e *LineEditor) clearScreen() {
	e.write("\x1b[2J\x1b[H")
}

func (e *LineEditor) println(s string) {
	e.write(s + "\r\n")
}

func (e *LineEditor) write(s string) {
	_, _ = io.WriteString(e.out, s)
}
