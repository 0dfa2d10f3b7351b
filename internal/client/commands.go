package client

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	promptUserStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	promptPathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dirStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// builtin runs one local-fallback command. Output goes through e.println.
type builtin struct {
	summary string
	run     func(e *LineEditor, args []string)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"help": {"list available commands", runHelp},
		"clear": {"clear the screen", func(e *LineEditor, _ []string) {
			e.clearScreen()
		}},
		"echo": {"print arguments", func(e *LineEditor, args []string) {
			e.println(strings.Join(args, " "))
		}},
		"ls": {"list files", runLs},
		"pwd": {"print working directory", func(e *LineEditor, _ []string) {
			e.println(e.opts.Cwd)
		}},
		"date": {"print the current date", func(e *LineEditor, _ []string) {
			e.println(e.opts.Now().Format("Mon Jan _2 15:04:05 MST 2006"))
		}},
		"whoami": {"print the user name", func(e *LineEditor, _ []string) {
			e.println(e.opts.User)
		}},
		"history": {"show entered commands", runHistory},
		"exit": {"close this terminal", func(e *LineEditor, _ []string) {
			e.println("logout")
			e.mode = modeExited
		}},
	}
}

func runHelp(e *LineEditor, _ []string) {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)

	e.println("Offline terminal, available commands:")
	for _, name := range names {
		e.println(fmt.Sprintf("  %-8s %s", name, dimStyle.Render(builtins[name].summary)))
	}
}

func runLs(e *LineEditor, _ []string) {
	if len(e.opts.Files) == 0 {
		return
	}
	names := make([]string, len(e.opts.Files))
	for i, name := range e.opts.Files {
		if strings.HasSuffix(name, "/") {
			name = dirStyle.Render(strings.TrimSuffix(name, "/"))
		}
		names[i] = name
	}
	e.println(strings.Join(names, "  "))
}

func runHistory(e *LineEditor, _ []string) {
	for i, line := range e.history {
		e.println(fmt.Sprintf("%5d  %s", i+1, line))
	}
}

func notFound(name string) string {
	return errorStyle.Render(fmt.Sprintf("%s: command not found", name)) +
		dimStyle.Render(" (not available offline, type 'help')")
}
