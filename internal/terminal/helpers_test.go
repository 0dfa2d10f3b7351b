package terminal

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	kind  string
	id    string
	data  string
	shell string
	code  *int
	err   error
}

// recordingEmitter captures every Emitter call in order.
type recordingEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEmitter) add(ev recordedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEmitter) Created(id, shell string) {
	r.add(recordedEvent{kind: "created", id: id, shell: shell})
}

func (r *recordingEmitter) Output(id string, data []byte) {
	r.add(recordedEvent{kind: "output", id: id, data: string(data)})
}

func (r *recordingEmitter) Exit(id string, code *int) {
	r.add(recordedEvent{kind: "exit", id: id, code: code})
}

func (r *recordingEmitter) Error(id string, err error) {
	r.add(recordedEvent{kind: "error", id: id, err: err})
}

func (r *recordingEmitter) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func (r *recordingEmitter) forID(id string) []recordedEvent {
	var out []recordedEvent
	for _, ev := range r.snapshot() {
		if ev.id == id {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingEmitter) kinds(id string) []string {
	var kinds []string
	for _, ev := range r.forID(id) {
		kinds = append(kinds, ev.kind)
	}
	return kinds
}

func (r *recordingEmitter) output(id string) string {
	var sb strings.Builder
	for _, ev := range r.forID(id) {
		if ev.kind == "output" {
			sb.WriteString(ev.data)
		}
	}
	return sb.String()
}

func (r *recordingEmitter) waitForKind(t *testing.T, id, kind string) recordedEvent {
	t.Helper()
	var found recordedEvent
	require.Eventually(t, func() bool {
		for _, ev := range r.forID(id) {
			if ev.kind == kind {
				found = ev
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "no %s event for %s", kind, id)
	return found
}

// fakeProcess lets tests drive output and exit by hand.
type fakeProcess struct {
	req SpawnRequest
	pid int

	mu       sync.Mutex
	writes   []string
	resizes  [][2]int
	resizeFn func(cols, rows int) error
	killed   int
	writeErr error

	exitOnce sync.Once
	done     chan struct{}
}

func (p *fakeProcess) Pid() int      { return p.pid }
func (p *fakeProcess) Shell() string { return "fakesh" }

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return p.writeErr
	}
	p.writes = append(p.writes, string(data))
	return nil
}

func (p *fakeProcess) Resize(cols, rows int) error {
	p.mu.Lock()
	p.resizes = append(p.resizes, [2]int{cols, rows})
	fn := p.resizeFn
	p.mu.Unlock()
	if fn != nil {
		return fn(cols, rows)
	}
	return ErrResizeUnsupported
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed++
	p.mu.Unlock()
	// Like a real shell, a killed process still reports its exit.
	go p.exit(nil)
	return nil
}

func (p *fakeProcess) emit(data string) {
	p.req.OnOutput(p.req.SessionID, []byte(data))
}

func (p *fakeProcess) exit(code *int) {
	p.exitOnce.Do(func() {
		p.req.OnExit(p.req.SessionID, code)
		close(p.done)
	})
}

func (p *fakeProcess) killCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

func (p *fakeProcess) written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.writes...)
}

// fakeSpawner hands out fakeProcesses, or fails with err when set.
type fakeSpawner struct {
	mu    sync.Mutex
	err   error
	procs []*fakeProcess
	reqs  []SpawnRequest
}

func (s *fakeSpawner) Spawn(_ context.Context, req SpawnRequest) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	p := &fakeProcess{req: req, pid: 1000 + len(s.procs), done: make(chan struct{})}
	s.procs = append(s.procs, p)
	return p, nil
}

func (s *fakeSpawner) last() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[len(s.procs)-1]
}

func (s *fakeSpawner) lastRequest() SpawnRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqs[len(s.reqs)-1]
}

func intPtr(v int) *int { return &v }
