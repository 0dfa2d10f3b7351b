package transport

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/api/middleware"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/config"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/monitoring"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/terminal"
)

// Handler upgrades HTTP requests to terminal connections and tracks them
// until they close.
type Handler struct {
	spawner  terminal.Spawner
	ropts    terminal.Options
	opts     Options
	upgrader websocket.Upgrader
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu     sync.Mutex
	conns  map[*Connection]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewHandler creates a WebSocket handler
func NewHandler(spawner terminal.Spawner, cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		spawner: spawner,
		ropts: terminal.Options{
			DefaultCwd:  cfg.Terminal.DefaultCwd,
			MaxSessions: cfg.Terminal.MaxSessions,
		},
		opts: Options{
			MaxMessageSize: cfg.WebSocket.MaxMessageSize,
			SendQueue:      cfg.WebSocket.SendQueue,
			PingInterval:   cfg.WebSocket.PingInterval,
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.WebSocket.AllowedOrigins),
		},
		logger:  logger.Named("transport"),
		metrics: metrics,
		conns:   make(map[*Connection]struct{}),
	}
}

// originChecker allows requests without an Origin header, any origin when
// the list contains "*", and otherwise only exact matches.
func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := slices.Contains(allowed, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// HandleConnection handles WebSocket upgrade and serves the connection
// until it closes.
func (h *Handler) HandleConnection(c *gin.Context) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err), zap.String("remote_addr", c.Request.RemoteAddr))
		return
	}

	logger := h.logger
	if traceID := middleware.TraceID(c.Request.Context()); traceID != "" {
		logger = logger.With(zap.String("trace_id", traceID))
	}
	conn := NewConnection(ws, h.spawner, h.ropts, h.opts, logger, h.metrics)
	if !h.track(conn) {
		conn.Close()
		return
	}
	defer h.untrack(conn)

	conn.Serve(c.Request.Context())
}

// ActiveConnections returns the number of open connections.
func (h *Handler) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes every connection and waits until their sessions have
// been destroyed or ctx is done. New upgrades are refused afterwards.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Connection, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) track(conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}
	return true
}

func (h *Handler) untrack(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}
