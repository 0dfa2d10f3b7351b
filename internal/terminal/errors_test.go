package terminal

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySpawnError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want SpawnErrorKind
	}{
		{"executable missing", &exec.Error{Name: "nosh", Err: exec.ErrNotFound}, SpawnNotFound},
		{"path missing", &fs.PathError{Op: "fork/exec", Path: "/bin/nosh", Err: syscall.ENOENT}, SpawnNotFound},
		{"permission", &fs.PathError{Op: "fork/exec", Path: "/bin/sh", Err: syscall.EACCES}, SpawnPermissionDenied},
		{"process limit", fmt.Errorf("fork: %w", syscall.EAGAIN), SpawnResourceLimit},
		{"fd limit", fmt.Errorf("pipe: %w", syscall.EMFILE), SpawnResourceLimit},
		{"unsupported", fmt.Errorf("pty: %w", errors.ErrUnsupported), SpawnUnsupported},
		{"other", errors.New("boom"), SpawnFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifySpawnError(tt.err))
		})
	}
}

func TestSpawnErrorUnwraps(t *testing.T) {
	cause := &exec.Error{Name: "nosh", Err: exec.ErrNotFound}
	err := newSpawnError("term_1", "nosh", cause)

	var spawnErr *SpawnError
	assert.True(t, errors.As(fmt.Errorf("create: %w", err), &spawnErr))
	assert.Equal(t, "term_1", spawnErr.SessionID)
	assert.Equal(t, SpawnNotFound, spawnErr.Kind)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
	assert.Contains(t, err.Error(), "not_found")
}
