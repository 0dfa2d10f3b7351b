package terminal

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/monitoring"
)

// destroyAllWait bounds how long DestroyAll waits for killed shells to be
// reaped.
const destroyAllWait = 3 * time.Second

var errEmptySessionID = errors.New("session id is required")

// Emitter receives session lifecycle events for one connection.
// Calls for one session are serialized and arrive in order: Created, then
// any Output, then at most one Exit.
type Emitter interface {
	Created(sessionID, shell string)
	Output(sessionID string, data []byte)
	Exit(sessionID string, code *int)
	Error(sessionID string, err error)
}

// Session describes one live terminal session.
type Session struct {
	ID         string    `json:"id"`
	WorkingDir string    `json:"working_dir"`
	Shell      string    `json:"shell"`
	Pid        int       `json:"pid"`
	Cols       int       `json:"cols,omitempty"`
	Rows       int       `json:"rows,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Options configures a Registry.
type Options struct {
	// DefaultCwd is used when a create request has no cwd. Empty falls
	// back to the user's home directory.
	DefaultCwd string
	// MaxSessions caps live sessions; 0 means unlimited.
	MaxSessions int
	Logger      *logging.Logger
}

// Registry owns the sessions of a single connection.
type Registry struct {
	spawner Spawner
	emitter Emitter
	opts    Options
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

type entry struct {
	proc Process

	mu      sync.Mutex
	session Session
	// live is true between Created and Exit/Destroy; events are only
	// emitted while it holds.
	live bool
}

// NewRegistry creates an empty registry that spawns through spawner and
// reports through emitter.
func NewRegistry(spawner Spawner, emitter Emitter, opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		spawner: spawner,
		emitter: emitter,
		opts:    opts,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// WithMetrics attaches a metrics collector.
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// Create starts a shell for id in cwd. An existing session with the same
// id is killed and replaced; none of its events are emitted afterwards.
// Failures are reported through Emitter.Error and also returned.
func (r *Registry) Create(ctx context.Context, id, cwd string) error {
	if id == "" {
		r.emitter.Error(id, errEmptySessionID)
		return errEmptySessionID
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.emitter.Error(id, ErrRegistryClosed)
		return ErrRegistryClosed
	}
	old := r.entries[id]
	delete(r.entries, id)
	count := len(r.entries)
	r.mu.Unlock()

	if old != nil {
		r.logger.ForSession(id).Info("Replacing existing terminal session")
		r.retire(old, "replaced")
	}

	if r.opts.MaxSessions > 0 && count >= r.opts.MaxSessions {
		r.logger.Warn("Session limit reached",
			zap.String("session_id", id),
			zap.Int("max_sessions", r.opts.MaxSessions),
		)
		r.emitter.Error(id, ErrTooManySessions)
		return ErrTooManySessions
	}

	cwd = r.resolveCwd(cwd)
	e := &entry{session: Session{ID: id, WorkingDir: cwd, CreatedAt: time.Now()}}

	// Hold the entry until Created is emitted so early output waits behind it.
	e.mu.Lock()
	defer e.mu.Unlock()

	timer := monitoring.NewTimer(r.metrics)
	proc, err := r.spawner.Spawn(ctx, SpawnRequest{
		SessionID: id,
		Cwd:       cwd,
		OnOutput: func(_ string, data []byte) {
			r.forwardOutput(e, data)
		},
		OnExit: func(_ string, code *int) {
			r.handleExit(e, code)
		},
	})
	if err != nil {
		kind := SpawnFailed
		var spawnErr *SpawnError
		if errors.As(err, &spawnErr) {
			kind = spawnErr.Kind
		}
		if r.metrics != nil {
			r.metrics.RecordSpawnError(string(kind))
		}
		r.logger.Warn("Failed to spawn shell",
			zap.String("session_id", id),
			zap.String("cwd", cwd),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		r.emitter.Error(id, err)
		return err
	}
	elapsed := timer.ObserveSpawn()

	e.proc = proc
	e.session.Shell = proc.Shell()
	e.session.Pid = proc.Pid()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = proc.Kill()
		return ErrRegistryClosed
	}
	r.entries[id] = e
	r.mu.Unlock()

	e.live = true
	if r.metrics != nil {
		r.metrics.SessionStarted()
	}
	r.logger.Info("Terminal session created",
		zap.String("session_id", id),
		zap.String("shell", e.session.Shell),
		zap.Int("pid", e.session.Pid),
		zap.String("cwd", cwd),
		zap.Duration("spawn_time", elapsed),
	)
	r.emitter.Created(id, e.session.Shell)
	return nil
}

// Input forwards keystrokes to the session. Unknown sessions and closed
// inputs are logged and ignored.
func (r *Registry) Input(id string, data []byte) {
	e := r.lookup(id)
	if e == nil {
		r.logger.ForSession(id).Warn("Input for unknown session", zap.Int("bytes", len(data)))
		return
	}
	if err := e.proc.Write(data); err != nil {
		return
	}
	if r.metrics != nil {
		r.metrics.AddInputBytes(len(data))
	}
}

// Resize records the new terminal size and applies it when the session
// has a pseudo-terminal.
func (r *Registry) Resize(id string, cols, rows int) {
	e := r.lookup(id)
	if e == nil {
		r.logger.ForSession(id).Warn("Resize for unknown session")
		return
	}
	if cols <= 0 || rows <= 0 {
		r.logger.Warn("Ignoring invalid resize",
			zap.String("session_id", id),
			zap.Int("cols", cols),
			zap.Int("rows", rows),
		)
		return
	}

	e.mu.Lock()
	e.session.Cols = cols
	e.session.Rows = rows
	e.mu.Unlock()

	err := e.proc.Resize(cols, rows)
	switch {
	case err == nil:
		r.logger.ForSession(id).Debug("Terminal resized", zap.Int("cols", cols), zap.Int("rows", rows))
	case errors.Is(err, ErrResizeUnsupported):
		r.logger.Debug("Resize recorded, no pseudo-terminal to apply it",
			zap.String("session_id", id), zap.Int("cols", cols), zap.Int("rows", rows))
	default:
		r.logger.ForSession(id).Warn("Failed to resize terminal", zap.Error(err))
	}
}

// Destroy kills the session and removes it. Unknown ids are ignored.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	e := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if e == nil {
		r.logger.ForSession(id).Warn("Destroy for unknown session")
		return
	}
	r.retire(e, "destroyed")
	r.logger.ForSession(id).Info("Terminal session destroyed")
}

// DestroyAll kills every session and rejects further Create calls. It waits
// briefly for the killed shells to be reaped.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	r.closed = true
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	clear(r.entries)
	r.mu.Unlock()

	for _, e := range entries {
		r.retire(e, "disconnected")
	}

	deadline := time.After(destroyAllWait)
	for _, e := range entries {
		select {
		case <-e.proc.Done():
		case <-deadline:
			r.logger.Warn("Timed out waiting for shells to exit", zap.Int("sessions", len(entries)))
			return
		}
	}
	if len(entries) > 0 {
		r.logger.Info("Destroyed all terminal sessions", zap.Int("sessions", len(entries)))
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IDs returns the live session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Info returns a snapshot of the session.
func (r *Registry) Info(id string) (Session, bool) {
	e := r.lookup(id)
	if e == nil {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, true
}

func (r *Registry) lookup(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id]
}

func (r *Registry) resolveCwd(cwd string) string {
	if cwd != "" {
		return cwd
	}
	if r.opts.DefaultCwd != "" {
		return r.opts.DefaultCwd
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return ""
}

func (r *Registry) forwardOutput(e *entry, data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.live {
		return
	}
	r.emitter.Output(e.session.ID, data)
	if r.metrics != nil {
		r.metrics.AddOutputBytes(len(data))
	}
}

func (r *Registry) handleExit(e *entry, code *int) {
	e.mu.Lock()
	wasLive := e.live
	e.live = false
	id := e.session.ID
	if wasLive {
		r.emitter.Exit(id, code)
	}
	e.mu.Unlock()

	if !wasLive {
		return
	}

	r.mu.Lock()
	if r.entries[id] == e {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SessionEnded("exit")
	}
	fields := []zap.Field{zap.String("session_id", id)}
	if code != nil {
		fields = append(fields, zap.Int("exit_code", *code))
	}
	r.logger.Info("Terminal session exited", fields...)
}

// retire silences e and kills its process. The caller has already removed
// it from the map.
func (r *Registry) retire(e *entry, reason string) {
	e.mu.Lock()
	wasLive := e.live
	e.live = false
	e.mu.Unlock()

	if err := e.proc.Kill(); err != nil {
		r.logger.ForSession(e.session.ID).Warn("Failed to kill shell", zap.Error(err))
	}
	if wasLive && r.metrics != nil {
		r.metrics.SessionEnded(reason)
	}
}
