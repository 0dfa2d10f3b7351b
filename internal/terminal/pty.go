//go:build !windows

package terminal

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
)

const (
	defaultCols = 80
	defaultRows = 24
)

// PTYSpawner starts shells attached to a pseudo-terminal. Output arrives
// as a single merged stream and Resize is applied to the terminal.
type PTYSpawner struct {
	shell  ShellSpec
	logger *logging.Logger
}

// NewPTYSpawner creates a pseudo-terminal spawner for the given shell.
func NewPTYSpawner(shell ShellSpec, logger *logging.Logger) *PTYSpawner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PTYSpawner{shell: shell, logger: logger.Named("pty")}
}

// Spawn starts the shell on a new pseudo-terminal sized req.Cols x req.Rows.
func (s *PTYSpawner) Spawn(ctx context.Context, req SpawnRequest) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, newSpawnError(req.SessionID, s.shell.Command, err)
	}
	if err := checkWorkingDir(req.SessionID, s.shell.Command, req.Cwd); err != nil {
		return nil, err
	}

	cols, rows := req.Cols, req.Rows
	if cols <= 0 {
		cols = defaultCols
	}
	if rows <= 0 {
		rows = defaultRows
	}

	cmd := exec.Command(s.shell.Command, s.shell.Args...)
	cmd.Dir = req.Cwd
	cmd.Env = s.shell.Environ(os.Environ())

	// pty.Start makes the shell a session leader, so its pid is also its
	// process group id and killProcessTree reaches its children.
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, newSpawnError(req.SessionID, s.shell.Command, err)
	}

	p := newProcess(req, s.shell.Name(), s.logger)
	p.cmd = cmd
	p.stdin = nopWriteCloser{ptmx}
	p.resize = func(cols, rows int) error {
		return pty.Setsize(ptmx, &pty.Winsize{
			Rows: uint16(rows),
			Cols: uint16(cols),
		})
	}

	out := p.newStream()
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		readOutput(ptmx, out)
	}()

	go p.pumpInput()
	go p.wait(func() {
		select {
		case <-readDone:
		case <-time.After(waitDelay):
			p.logger.Debug("PTY still open after shell exit, closing")
		}
		ptmx.Close()
		select {
		case <-readDone:
		case <-time.After(waitDelay):
			// Output arriving after this point is dropped by the registry.
		}
		out.flush()
	})

	return p, nil
}

// readOutput copies the PTY master into the output stream until the slave
// side is closed.
func readOutput(r io.Reader, out *stream) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				// EIO is the normal end of a PTY once the shell is gone.
				out.p.logger.Debug("PTY read ended", zap.Error(err))
			}
			return
		}
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
