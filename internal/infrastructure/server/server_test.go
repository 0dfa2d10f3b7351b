package server

import (
	"context"
	"io"
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
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/transport"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.Terminal.DefaultCwd = t.TempDir()
	cfg.Terminal.Shell = "/bin/sh"
	cfg.RateLimit.Enabled = false

	s, err := NewServer(cfg, logging.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.terminals.Shutdown(ctx)
		ts.Close()
	})
	return s, ts
}

func TestRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/", http.StatusOK, "Terminal Service"},
		{"/health", http.StatusOK, `"shell":"sh"`},
		{"/metrics", http.StatusOK, "termserver_ws_connections"},
		{"/missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
			if tt.contains != "" {
				body := new(strings.Builder)
				_, err := io.Copy(body, resp.Body)
				require.NoError(t, err)
				assert.Contains(t, body.String(), tt.contains)
			}
		})
	}
}

func TestTerminalRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	_, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/terminal"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer ws.Close()

	send := func(msg transport.ClientMessage) {
		data, err := transport.Encode(msg)
		require.NoError(t, err)
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))
	}
	send(transport.Create("t1", ""))
	send(transport.Input("t1", "echo round-trip; exit 0\n"))

	var output strings.Builder
	for {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(10*time.Second)))
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		msg, err := transport.DecodeServerMessage(data)
		require.NoError(t, err)
		if msg.Type == transport.EventOutput {
			output.WriteString(msg.Data)
		}
		if msg.Type == transport.EventExit {
			break
		}
	}
	assert.Equal(t, "round-trip\n", output.String())
}
