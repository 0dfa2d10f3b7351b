package terminal

import (
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// Platform is the operating system family a shell is chosen for.
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformDarwin
	PlatformWindows
	PlatformOther
)

// String returns the GOOS-style name of the platform
func (p Platform) String() string {
	switch p {
	case PlatformLinux:
		return "linux"
	case PlatformDarwin:
		return "darwin"
	case PlatformWindows:
		return "windows"
	default:
		return "other"
	}
}

// PlatformFromGOOS maps a runtime.GOOS value onto a Platform.
func PlatformFromGOOS(goos string) Platform {
	switch goos {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformDarwin
	case "windows":
		return PlatformWindows
	default:
		return PlatformOther
	}
}

// CurrentPlatform returns the platform the server is running on.
func CurrentPlatform() Platform {
	return PlatformFromGOOS(runtime.GOOS)
}

// ShellSpec describes how to launch a session shell.
type ShellSpec struct {
	Command string
	Args    []string
	// Env is appended to the inherited environment, replacing any
	// variables with the same name.
	Env []string
}

// terminalEnv marks the session as a color-capable interactive terminal.
var terminalEnv = []string{
	"TERM=xterm-256color",
	"COLORTERM=truecolor",
	"FORCE_COLOR=1",
}

var shellTable = map[Platform]ShellSpec{
	PlatformLinux:   {Command: "bash", Args: []string{"--login", "-i"}},
	PlatformDarwin:  {Command: "zsh", Args: []string{"-l", "-i"}},
	PlatformWindows: {Command: "powershell.exe", Args: []string{"-NoLogo", "-NoProfile", "-Command", "-"}},
	PlatformOther:   {Command: "/bin/sh", Args: []string{"-i"}},
}

// ShellFor returns the shell used for new sessions on platform p.
// The returned spec is a copy and may be modified by the caller.
func ShellFor(p Platform) ShellSpec {
	spec, ok := shellTable[p]
	if !ok {
		spec = shellTable[PlatformOther]
	}
	return ShellSpec{
		Command: spec.Command,
		Args:    slices.Clone(spec.Args),
		Env:     slices.Clone(terminalEnv),
	}
}

// ResolveShell returns the table entry for p, or a spec running override
// with no arguments when override is non-empty.
func ResolveShell(p Platform, override string) ShellSpec {
	if override == "" {
		return ShellFor(p)
	}
	return ShellSpec{
		Command: override,
		Env:     slices.Clone(terminalEnv),
	}
}

// Name is the short shell name reported to clients in "created" events.
func (s ShellSpec) Name() string {
	name := filepath.Base(s.Command)
	if strings.EqualFold(filepath.Ext(name), ".exe") {
		name = name[:len(name)-len(filepath.Ext(name))]
	}
	return name
}

// Environ merges the spec environment over base.
func (s ShellSpec) Environ(base []string) []string {
	overridden := make(map[string]bool, len(s.Env))
	for _, kv := range s.Env {
		if key, _, ok := strings.Cut(kv, "="); ok {
			overridden[key] = true
		}
	}

	env := make([]string, 0, len(base)+len(s.Env))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if overridden[key] {
			continue
		}
		env = append(env, kv)
	}
	return append(env, s.Env...)
}
