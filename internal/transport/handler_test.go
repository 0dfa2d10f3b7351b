package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/config"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/monitoring"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/terminal"
)

const eventTimeout = 10 * time.Second

type testServer struct {
	url     string
	handler *Handler
	metrics *monitoring.Metrics
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Terminal.DefaultCwd = t.TempDir()
	for _, m := range mutate {
		m(cfg)
	}

	metrics := monitoring.NewMetrics()
	spawner := terminal.NewPipeSpawner(terminal.ResolveShell(terminal.CurrentPlatform(), "/bin/sh"), nil)
	handler := NewHandler(spawner, cfg, nil, metrics)

	router := gin.New()
	router.GET(cfg.WebSocket.Path, handler.HandleConnection)
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = handler.Shutdown(ctx)
		srv.Close()
	})

	return &testServer{
		url:     "ws" + strings.TrimPrefix(srv.URL, "http") + cfg.WebSocket.Path,
		handler: handler,
		metrics: metrics,
	}
}

type testClient struct {
	t  *testing.T
	ws *websocket.Conn
}

func (s *testServer) dial(t *testing.T) *testClient {
	t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	c := &testClient{t: t, ws: ws}
	t.Cleanup(func() { ws.Close() })
	return c
}

func (c *testClient) send(msg ClientMessage) {
	c.t.Helper()
	data, err := Encode(msg)
	require.NoError(c.t, err)
	require.NoError(c.t, c.ws.WriteMessage(websocket.TextMessage, data))
}

func (c *testClient) sendRaw(frame string) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (c *testClient) next() ServerMessage {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(eventTimeout)))
	_, data, err := c.ws.ReadMessage()
	require.NoError(c.t, err)
	msg, err := DecodeServerMessage(data)
	require.NoError(c.t, err)
	return msg
}

// until reads events until stop returns true and returns all of them,
// including the last.
func (c *testClient) until(stop func(ServerMessage) bool) []ServerMessage {
	c.t.Helper()
	var events []ServerMessage
	for {
		msg := c.next()
		events = append(events, msg)
		if stop(msg) {
			return events
		}
	}
}

func isType(id, eventType string) func(ServerMessage) bool {
	return func(m ServerMessage) bool { return m.ID == id && m.Type == eventType }
}

func outputOf(events []ServerMessage, id string) string {
	var b strings.Builder
	for _, e := range events {
		if e.ID == id && e.Type == EventOutput {
			b.WriteString(e.Data)
		}
	}
	return b.String()
}

func TestCreatedPrecedesOutput(t *testing.T) {
	srv := newTestServer(t)
	c := srv.dial(t)

	c.send(Create("t1", ""))
	c.send(Input("t1", "echo ready\n"))

	events := c.until(func(m ServerMessage) bool {
		return strings.Contains(m.Data, "ready")
	})

	require.NotEmpty(t, events)
	assert.Equal(t, EventCreated, events[0].Type)
	assert.Equal(t, "t1", events[0].ID)
	assert.Equal(t, "sh", events[0].Shell)

	created := 0
	for _, e := range events {
		if e.Type == EventCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

func TestOutputOrderAndExit(t *testing.T) {
	srv := newTestServer(t)
	c := srv.dial(t)

	c.send(Create("t1", ""))
	c.send(Input("t1", "echo A; echo B; exit 7\n"))

	events := c.until(isType("t1", EventExit))
	assert.Equal(t, "A\nB\n", outputOf(events, "t1"))

	exit := events[len(events)-1]
	require.NotNil(t, exit.Code)
	assert.Equal(t, 7, *exit.Code)

	require.Eventually(t, func() bool {
		return srv.handler.ActiveConnections() == 1
	}, eventTimeout, 10*time.Millisecond)
}

func TestInputAfterDestroyIsIgnored(t *testing.T) {
	srv := newTestServer(t)
	c := srv.dial(t)

	c.send(Create("t1", ""))
	c.until(isType("t1", EventCreated))

	c.send(Destroy("t1"))
	c.send(Input("t1", "echo ghost\n"))
	c.send(Destroy("t1"))

	// A second session proves the connection still works and acts as a
	// barrier: everything sent before it has been dispatched.
	c.send(Create("t2", ""))
	c.send(Input("t2", "echo alive; exit 0\n"))
	events := c.until(isType("t2", EventExit))

	for _, e := range events {
		assert.NotEqual(t, "t1", e.ID, "unexpected %s event for destroyed session", e.Type)
	}
	assert.Equal(t, "alive\n", outputOf(events, "t2"))
}

func TestConcurrentSessionsDoNotCrossDeliver(t *testing.T) {
	srv := newTestServer(t)
	c := srv.dial(t)

	c.send(Create("a", ""))
	c.send(Create("b", ""))
	c.send(Input("a", "i=0; while [ $i -lt 50 ]; do echo from-a; i=$((i+1)); done; exit 0\n"))
	c.send(Input("b", "i=0; while [ $i -lt 50 ]; do echo from-b; i=$((i+1)); done; exit 0\n"))

	exited := map[string]bool{}
	events := c.until(func(m ServerMessage) bool {
		if m.Type == EventExit {
			exited[m.ID] = true
		}
		return exited["a"] && exited["b"]
	})

	for id, other := range map[string]string{"a": "from-b", "b": "from-a"} {
		out := outputOf(events, id)
		assert.Equal(t, 50, strings.Count(out, "from-"+id), "session %s", id)
		assert.NotContains(t, out, other, "session %s", id)
	}
}

func TestSpawnFailureIsPerSession(t *testing.T) {
	srv := newTestServer(t)
	c := srv.dial(t)

	c.send(Create("bad", "/definitely/not/here"))
	errEvent := c.next()
	assert.Equal(t, EventError, errEvent.Type)
	assert.Equal(t, "bad", errEvent.ID)
	assert.NotEmpty(t, errEvent.Error)

	c.send(Create("good", ""))
	created := c.next()
	assert.Equal(t, EventCreated, created.Type)
	assert.Equal(t, "good", created.ID)
}

func TestUnknownAndMalformedFrames(t *testing.T) {
	srv := newTestServer(t)
	c := srv.dial(t)

	c.sendRaw(`not json`)
	c.sendRaw(`{"id":"t1"}`)
	c.send(ClientMessage{Type: "launch-missiles", ID: "t1"})

	msg := c.next()
	assert.Equal(t, EventError, msg.Type)
	assert.Empty(t, msg.ID)
	assert.Contains(t, msg.Error, "launch-missiles")

	c.send(Input("nobody", "ls\n"))
	c.send(Resize("nobody", 80, 24))
	c.send(Create("t1", ""))
	msg = c.next()
	assert.Equal(t, EventCreated, msg.Type)
}

func TestResizeIsAcceptedOnPipes(t *testing.T) {
	srv := newTestServer(t)
	c := srv.dial(t)

	c.send(Create("t1", ""))
	c.until(isType("t1", EventCreated))
	c.send(Resize("t1", 120, 40))
	c.send(Input("t1", "echo still-here; exit 0\n"))

	events := c.until(isType("t1", EventExit))
	assert.Equal(t, "still-here\n", outputOf(events, "t1"))
}

func TestDisconnectDestroysSessions(t *testing.T) {
	srv := newTestServer(t)
	c := srv.dial(t)

	c.send(Create("t1", ""))
	c.send(Create("t2", ""))
	c.until(isType("t1", EventCreated))
	c.until(isType("t2", EventCreated))
	require.Equal(t, 1, srv.handler.ActiveConnections())

	require.NoError(t, c.ws.Close())
	require.Eventually(t, func() bool {
		return srv.handler.ActiveConnections() == 0
	}, eventTimeout, 10*time.Millisecond)

	// Same ids on a fresh connection start cleanly.
	c2 := srv.dial(t)
	c2.send(Create("t1", ""))
	c2.send(Create("t2", ""))
	first, second := c2.next(), c2.next()
	assert.Equal(t, EventCreated, first.Type)
	assert.Equal(t, EventCreated, second.Type)
	assert.ElementsMatch(t, []string{"t1", "t2"}, []string{first.ID, second.ID})
}

func TestConnectionsAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	c1 := srv.dial(t)
	c2 := srv.dial(t)

	c1.send(Create("t1", ""))
	c2.send(Create("t1", ""))
	c1.send(Input("t1", "echo one; exit 0\n"))
	c2.send(Input("t1", "echo two; exit 0\n"))

	assert.Equal(t, "one\n", outputOf(c1.until(isType("t1", EventExit)), "t1"))
	assert.Equal(t, "two\n", outputOf(c2.until(isType("t1", EventExit)), "t1"))
}

func TestOriginCheck(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.WebSocket.AllowedOrigins = []string{"http://editor.local"}
	})

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(srv.url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	header.Set("Origin", "http://editor.local")
	ws, resp, err := websocket.DefaultDialer.Dial(srv.url, header)
	require.NoError(t, err)
	resp.Body.Close()
	ws.Close()
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", []string{"http://a"}, "", true},
		{"wildcard", []string{"*"}, "http://anything", true},
		{"listed", []string{"http://a", "http://b"}, "http://b", true},
		{"not listed", []string{"http://a"}, "http://b", false},
		{"empty list", nil, "http://a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/terminal", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed)(req))
		})
	}
}

func TestShutdownClosesConnections(t *testing.T) {
	srv := newTestServer(t)
	c := srv.dial(t)

	c.send(Create("t1", ""))
	c.until(isType("t1", EventCreated))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.handler.Shutdown(ctx))
	assert.Equal(t, 0, srv.handler.ActiveConnections())

	require.NoError(t, c.ws.SetReadDeadline(time.Now().Add(eventTimeout)))
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			break
		}
	}
}
