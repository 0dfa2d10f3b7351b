package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (f fixedCounter) ActiveConnections() int { return int(f) }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(fixedCounter(3), "bash", true)
	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Terminal    struct {
			Shell string `json:"shell"`
			PTY   bool   `json:"pty"`
		} `json:"terminal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 3, body.Connections)
	assert.Equal(t, "bash", body.Terminal.Shell)
	assert.True(t, body.Terminal.PTY)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), Version)
}
