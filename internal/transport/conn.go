package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/monitoring"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/terminal"
)

const (
	defaultSendQueue  = 256
	defaultWriteWait  = 10 * time.Second
	defaultMaxMessage = 1 << 20
	closeGracePeriod  = time.Second
)

// Options tunes a Connection.
type Options struct {
	// MaxMessageSize limits inbound frames; larger frames close the socket.
	MaxMessageSize int64
	// SendQueue bounds outbound frames waiting for the writer.
	SendQueue int
	// PingInterval enables keepalive pings; the peer must answer within
	// twice the interval. Zero disables keepalive.
	PingInterval time.Duration
	WriteWait    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessage
	}
	if o.SendQueue <= 0 {
		o.SendQueue = defaultSendQueue
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	return o
}

// Connection is one client WebSocket and the sessions it owns. It
// implements terminal.Emitter for its registry.
type Connection struct {
	id       string
	ws       *websocket.Conn
	registry *terminal.Registry
	opts     Options
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	send       chan []byte
	quit       chan struct{}
	quitOnce   sync.Once
	writerDone chan struct{}
}

// NewConnection wraps an upgraded socket. Sessions are started through
// spawner with registry options ropts.
func NewConnection(ws *websocket.Conn, spawner terminal.Spawner, ropts terminal.Options, opts Options, logger *logging.Logger, metrics *monitoring.Metrics) *Connection {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts = opts.withDefaults()
	id := uuid.NewString()
	c := &Connection{
		id:         id,
		ws:         ws,
		opts:       opts,
		logger:     logger.With(zap.String("conn_id", id)),
		metrics:    metrics,
		send:       make(chan []byte, opts.SendQueue),
		quit:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	ropts.Logger = c.logger.Named("registry")
	c.registry = terminal.NewRegistry(spawner, c, ropts)
	if metrics != nil {
		c.registry.WithMetrics(metrics)
	}
	return c
}

// ID returns the connection id used in logs.
func (c *Connection) ID() string { return c.id }

// Registry exposes the connection's sessions.
func (c *Connection) Registry() *terminal.Registry { return c.registry }

// Serve runs the connection until the socket closes or ctx is cancelled,
// then destroys every session it owns.
func (c *Connection) Serve(ctx context.Context) {
	if c.metrics != nil {
		c.metrics.IncWSConnections()
		defer c.metrics.DecWSConnections()
	}
	c.logger.Info("Terminal connection opened", zap.String("remote_addr", c.ws.RemoteAddr().String()))

	go c.writeLoop()

	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	c.readLoop(ctx)

	c.shutdown()
	c.registry.DestroyAll()
	<-c.writerDone
	_ = c.ws.Close()

	c.logger.Info("Terminal connection closed")
}

// Close ends the connection. Serve returns after its sessions are gone.
func (c *Connection) Close() {
	c.shutdown()
	_ = c.ws.Close()
}

func (c *Connection) shutdown() {
	c.quitOnce.Do(func() { close(c.quit) })
}

func (c *Connection) readLoop(ctx context.Context) {
	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	c.extendReadDeadline()
	c.ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			} else {
				c.logger.Debug("WebSocket closed", zap.Error(err))
			}
			return
		}
		c.extendReadDeadline()
		c.dispatch(ctx, data)
	}
}

func (c *Connection) extendReadDeadline() {
	if c.opts.PingInterval <= 0 {
		return
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(2 * c.opts.PingInterval))
}

// dispatch handles one inbound frame. Session-level failures are reported
// as events and never end the connection.
func (c *Connection) dispatch(ctx context.Context, data []byte) {
	msg, err := DecodeClientMessage(data)
	if err != nil {
		c.logger.Warn("Dropping malformed frame", zap.Error(err), zap.Int("bytes", len(data)))
		if c.metrics != nil {
			c.metrics.IncWSDropped()
		}
		return
	}
	if c.metrics != nil {
		c.metrics.RecordWSMessage("in", msg.Type)
	}

	switch msg.Type {
	case EventCreateTerminal:
		_ = c.registry.Create(ctx, msg.ID, msg.Cwd)
	case EventInput:
		c.registry.Input(msg.ID, []byte(msg.Input))
	case EventResize:
		c.registry.Resize(msg.ID, msg.Cols, msg.Rows)
	case EventDestroyTerminal:
		c.registry.Destroy(msg.ID)
	default:
		c.logger.Warn("Unknown event type", zap.String("type", msg.Type))
		c.enqueue(EventError, ErrorEvent{
			Type:  EventError,
			Error: fmt.Sprintf("unknown event type %q", msg.Type),
		})
	}
}

func (c *Connection) writeLoop() {
	defer close(c.writerDone)

	var ping <-chan time.Time
	if c.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ping:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteWait)); err != nil {
				c.logger.Debug("WebSocket ping failed", zap.Error(err))
				c.Close()
				return
			}
		case <-c.quit:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
			return
		}
	}
}

// enqueue hands a frame to the writer. It blocks while the queue is full so
// per-session ordering holds, and gives up once the connection is closing.
func (c *Connection) enqueue(eventType string, v any) {
	frame, err := Encode(v)
	if err != nil {
		c.logger.Error("Failed to encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	select {
	case c.send <- frame:
		if c.metrics != nil {
			c.metrics.RecordWSMessage("out", eventType)
		}
	case <-c.quit:
	}
}

// Created implements terminal.Emitter.
func (c *Connection) Created(sessionID, shell string) {
	c.enqueue(EventCreated, CreatedEvent{Type: EventCreated, ID: sessionID, Shell: shell})
}

// Output implements terminal.Emitter.
func (c *Connection) Output(sessionID string, data []byte) {
	c.enqueue(EventOutput, OutputEvent{Type: EventOutput, ID: sessionID, Data: string(data)})
}

// Exit implements terminal.Emitter.
func (c *Connection) Exit(sessionID string, code *int) {
	c.enqueue(EventExit, ExitEvent{Type: EventExit, ID: sessionID, Code: code})
}

// Error implements terminal.Emitter.
func (c *Connection) Error(sessionID string, err error) {
	c.enqueue(EventError, ErrorEvent{Type: EventError, ID: sessionID, Error: err.Error()})
}
