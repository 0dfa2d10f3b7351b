//go:build windows

package terminal

import (
	"context"
	"errors"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
)

// PTYSpawner is unavailable on Windows; every Spawn fails with
// SpawnUnsupported so the server can fall back to pipes.
type PTYSpawner struct {
	shell ShellSpec
}

// NewPTYSpawner creates a spawner that always reports SpawnUnsupported.
func NewPTYSpawner(shell ShellSpec, _ *logging.Logger) *PTYSpawner {
	return &PTYSpawner{shell: shell}
}

// Spawn always fails on Windows.
func (s *PTYSpawner) Spawn(_ context.Context, req SpawnRequest) (Process, error) {
	return nil, newSpawnError(req.SessionID, s.shell.Command, errors.ErrUnsupported)
}
