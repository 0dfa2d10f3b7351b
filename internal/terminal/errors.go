package terminal

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"syscall"
)

var (
	// ErrInputClosed is returned when writing to a process whose input
	// stream is gone. Callers log and drop the input.
	ErrInputClosed = errors.New("process input closed")

	// ErrInputBackpressure is returned when a process is not consuming
	// input fast enough and its input queue is full.
	ErrInputBackpressure = errors.New("process input queue full")

	// ErrResizeUnsupported is returned by processes without a
	// pseudo-terminal.
	ErrResizeUnsupported = errors.New("resize not supported without a pseudo-terminal")

	// ErrTooManySessions is reported when a connection reaches its session cap.
	ErrTooManySessions = errors.New("too many terminal sessions for this connection")

	// ErrRegistryClosed is reported for requests arriving after DestroyAll.
	ErrRegistryClosed = errors.New("terminal registry closed")
)

// SpawnErrorKind classifies why a shell could not be started.
type SpawnErrorKind string

const (
	SpawnNotFound         SpawnErrorKind = "not_found"
	SpawnPermissionDenied SpawnErrorKind = "permission_denied"
	SpawnResourceLimit    SpawnErrorKind = "resource_limit"
	SpawnBadDirectory     SpawnErrorKind = "bad_directory"
	SpawnUnsupported      SpawnErrorKind = "unsupported"
	SpawnFailed           SpawnErrorKind = "failed"
)

// SpawnError reports a shell that could not be started.
type SpawnError struct {
	SessionID string
	Command   string
	Kind      SpawnErrorKind
	Err       error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %s: %v", e.Command, e.Kind, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// newSpawnError wraps err and classifies it from the OS error it carries.
func newSpawnError(sessionID, command string, err error) *SpawnError {
	return &SpawnError{
		SessionID: sessionID,
		Command:   command,
		Kind:      classifySpawnError(err),
		Err:       err,
	}
}

func classifySpawnError(err error) SpawnErrorKind {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return SpawnNotFound
	case errors.Is(err, fs.ErrPermission):
		return SpawnPermissionDenied
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.ENOMEM),
		errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return SpawnResourceLimit
	case errors.Is(err, errors.ErrUnsupported):
		return SpawnUnsupported
	default:
		return SpawnFailed
	}
}
