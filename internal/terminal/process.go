package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
)

const (
	// inputQueueSize bounds buffered keystroke chunks per session.
	inputQueueSize = 256

	// waitDelay bounds how long output pipes may stay open after the shell
	// exits, e.g. when a background job inherited them.
	waitDelay = 2 * time.Second

	readBufferSize = 4096
)

// OutputFunc receives process output. data is owned by the callee.
type OutputFunc func(sessionID string, data []byte)

// ExitFunc is called exactly once when the process terminates, after the
// last OutputFunc call. code is nil when the process was killed by a signal
// or its status is unknown.
type ExitFunc func(sessionID string, code *int)

// SpawnRequest carries everything needed to start one session shell.
type SpawnRequest struct {
	SessionID string
	Cwd       string
	Cols      int
	Rows      int
	OnOutput  OutputFunc
	OnExit    ExitFunc
}

// Process is a live shell bound to one session.
type Process interface {
	// Pid returns the OS process id.
	Pid() int
	// Shell returns the short shell name.
	Shell() string
	// Write queues input for the shell. It never blocks on the shell.
	Write(data []byte) error
	// Resize changes the terminal size when a pseudo-terminal backs the
	// process and returns ErrResizeUnsupported otherwise.
	Resize(cols, rows int) error
	// Kill terminates the process and its process group. Idempotent.
	Kill() error
	// Done is closed once the process has exited and OnExit has returned.
	Done() <-chan struct{}
}

// Spawner starts session shells.
type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (Process, error)
}

// PipeSpawner starts shells connected over plain pipes. stdout and stderr
// are forwarded independently and may interleave arbitrarily.
type PipeSpawner struct {
	shell  ShellSpec
	logger *logging.Logger
}

// NewPipeSpawner creates a spawner for the given shell.
func NewPipeSpawner(shell ShellSpec, logger *logging.Logger) *PipeSpawner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PipeSpawner{shell: shell, logger: logger.Named("process")}
}

// Spawn starts the shell in req.Cwd and returns once the process is running.
func (s *PipeSpawner) Spawn(ctx context.Context, req SpawnRequest) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, newSpawnError(req.SessionID, s.shell.Command, err)
	}
	if err := checkWorkingDir(req.SessionID, s.shell.Command, req.Cwd); err != nil {
		return nil, err
	}

	cmd := exec.Command(s.shell.Command, s.shell.Args...)
	cmd.Dir = req.Cwd
	cmd.Env = s.shell.Environ(os.Environ())
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, newSpawnError(req.SessionID, s.shell.Command, err)
	}

	p := newProcess(req, s.shell.Name(), s.logger)
	stdout := p.newStream()
	stderr := p.newStream()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, newSpawnError(req.SessionID, s.shell.Command, err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.resize = func(int, int) error { return ErrResizeUnsupported }

	go p.pumpInput()
	go p.wait(func() {
		// exec's copy goroutines have finished once Wait returns.
		stdout.flush()
		stderr.flush()
	})

	return p, nil
}

func checkWorkingDir(sessionID, command, dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return &SpawnError{SessionID: sessionID, Command: command, Kind: SpawnBadDirectory, Err: err}
	}
	if !info.IsDir() {
		return &SpawnError{
			SessionID: sessionID,
			Command:   command,
			Kind:      SpawnBadDirectory,
			Err:       fmt.Errorf("%s is not a directory", dir),
		}
	}
	return nil
}

// process is the shared implementation behind pipe and PTY sessions.
type process struct {
	id     string
	shell  string
	logger *logging.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	resize func(cols, rows int) error

	onOutput OutputFunc
	onExit   ExitFunc

	input chan []byte
	// exited closes when the OS process is gone; done after OnExit returns.
	exited chan struct{}
	done   chan struct{}

	mu          sync.Mutex
	inputClosed bool
	killOnce    sync.Once
}

func newProcess(req SpawnRequest, shell string, logger *logging.Logger) *process {
	onOutput := req.OnOutput
	if onOutput == nil {
		onOutput = func(string, []byte) {}
	}
	onExit := req.OnExit
	if onExit == nil {
		onExit = func(string, *int) {}
	}
	return &process{
		id:       req.SessionID,
		shell:    shell,
		logger:   logger.ForSession(req.SessionID),
		onOutput: onOutput,
		onExit:   onExit,
		input:    make(chan []byte, inputQueueSize),
		exited:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) Shell() string { return p.shell }

func (p *process) Done() <-chan struct{} { return p.done }

func (p *process) Write(data []byte) error {
	p.mu.Lock()
	closed := p.inputClosed
	p.mu.Unlock()
	if closed {
		p.logger.Warn("Dropping input for closed process", zap.Int("bytes", len(data)))
		return ErrInputClosed
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	select {
	case <-p.exited:
		p.logger.Warn("Dropping input for exited process", zap.Int("bytes", len(data)))
		return ErrInputClosed
	default:
	}

	select {
	case p.input <- buf:
		return nil
	default:
		p.logger.Warn("Dropping input, process is not reading", zap.Int("bytes", len(data)))
		return ErrInputBackpressure
	}
}

func (p *process) Resize(cols, rows int) error {
	return p.resize(cols, rows)
}

func (p *process) Kill() error {
	var err error
	p.killOnce.Do(func() {
		select {
		case <-p.exited:
			return
		default:
		}
		if p.cmd == nil || p.cmd.Process == nil {
			return
		}
		err = killProcessTree(p.cmd.Process)
		p.closeInput()
	})
	return err
}

func (p *process) closeInput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inputClosed {
		return
	}
	p.inputClosed = true
	_ = p.stdin.Close()
}

// pumpInput drains the input queue into the process so a shell that stops
// reading never blocks the caller of Write.
func (p *process) pumpInput() {
	for {
		select {
		case <-p.exited:
			return
		case data := <-p.input:
			if _, err := p.stdin.Write(data); err != nil {
				p.logger.Warn("Failed to write to process input", zap.Error(err))
				p.closeInput()
				return
			}
		}
	}
}

// wait reaps the process. drain runs after the process has exited and
// before OnExit so trailing output is delivered first.
func (p *process) wait(drain func()) {
	err := p.cmd.Wait()
	close(p.exited)
	if drain != nil {
		drain()
	}

	code := exitCode(p.cmd.ProcessState)
	if err != nil && code == nil {
		p.logger.Debug("Process ended without exit status", zap.Error(err))
	}

	p.onExit(p.id, code)
	close(p.done)
}

func exitCode(state *os.ProcessState) *int {
	if state == nil {
		return nil
	}
	code := state.ExitCode()
	if code < 0 {
		return nil
	}
	return &code
}

// stream forwards one output stream, holding back an incomplete trailing
// UTF-8 sequence until the next chunk so clients never see split runes.
type stream struct {
	p       *process
	mu      sync.Mutex
	pending []byte
}

func (p *process) newStream() *stream {
	return &stream{p: p}
}

func (s *stream) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make([]byte, 0, len(s.pending)+len(b))
	data = append(data, s.pending...)
	data = append(data, b...)

	cut := completeUTF8Prefix(data)
	s.pending = append(s.pending[:0], data[cut:]...)
	if cut > 0 {
		s.p.onOutput(s.p.id, data[:cut])
	}
	return len(b), nil
}

func (s *stream) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return
	}
	data := s.pending
	s.pending = nil
	s.p.onOutput(s.p.id, data)
}

// completeUTF8Prefix returns the length of the longest prefix of b that
// does not end inside a multi-byte UTF-8 sequence.
func completeUTF8Prefix(b []byte) int {
	n := len(b)
	// A rune is at most utf8.UTFMax bytes; only the tail can be incomplete.
	for i := 1; i < utf8.UTFMax && i <= n; i++ {
		c := b[n-i]
		if c < utf8.RuneSelf {
			return n
		}
		if utf8.RuneStart(c) {
			if utf8.FullRune(b[n-i:]) {
				return n
			}
			return n - i
		}
	}
	return n
}
