package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// ConnectionCounter reports open terminal connections.
type ConnectionCounter interface {
	ActiveConnections() int
}

// Handlers contains the plain HTTP handlers
type Handlers struct {
	connections ConnectionCounter
	shell       string
	pty         bool
	started     time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(connections ConnectionCounter, shell string, pty bool) *Handlers {
	return &Handlers{
		connections: connections,
		shell:       shell,
		pty:         pty,
		started:     time.Now(),
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Terminal Service (Go)",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"connections":    h.connections.ActiveConnections(),
		"terminal": gin.H{
			"shell": h.shell,
			"pty":   h.pty,
		},
	})
}
