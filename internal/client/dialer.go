package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/transport"
)

const (
	writeWait   = 10 * time.Second
	eventBuffer = 256
)

// ErrClosed is returned by Send after the connection has closed.
var ErrClosed = errors.New("terminal connection closed")

// Conn is a client connection to a terminal server.
type Conn struct {
	ws     *websocket.Conn
	logger *logging.Logger
	events chan transport.ServerMessage

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once

	errMu sync.Mutex
	err   error
}

// Dial connects to the terminal endpoint at url (ws:// or wss://).
func Dial(ctx context.Context, url string, header http.Header, logger *logging.Logger) (*Conn, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Conn{
		ws:     ws,
		logger: logger.Named("conn").With(zap.String("url", url)),
		events: make(chan transport.ServerMessage, eventBuffer),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events delivers server events in arrival order. It is closed when the
// connection ends; Err then reports why.
func (c *Conn) Events() <-chan transport.ServerMessage { return c.events }

// Err returns the error that ended the connection, nil after Close.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Send writes one frame. Safe for concurrent use.
func (c *Conn) Send(msg transport.ClientMessage) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	data, err := transport.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// Close sends a close frame and releases the socket. The server destroys
// every session of this connection.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.setErr(err)
				}
				c.logger.Debug("Terminal connection ended", zap.Error(err))
			}
			return
		}

		msg, err := transport.DecodeServerMessage(data)
		if err != nil {
			c.logger.Warn("Dropping malformed server frame", zap.Error(err))
			continue
		}

		select {
		case c.events <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.err = err
}
