package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/shared/id"
)

// TraceHeader carries the request id in and out of the server.
const TraceHeader = "X-Trace-ID"

type traceKey struct{}

// Trace tags every request with an id. A well-formed id sent by the caller
// is kept so a client can correlate its own logs with the server's.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if !id.IsPrefixed(traceID, id.RequestPrefix) {
			traceID = id.NewRequestID()
		}

		c.Request = c.Request.WithContext(WithTraceID(c.Request.Context(), traceID))
		c.Header(TraceHeader, traceID)
		c.Next()
	}
}

// WithTraceID returns a copy of ctx carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceID returns the request id stored by Trace, or "".
func TraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(traceKey{}).(string)
	return traceID
}
