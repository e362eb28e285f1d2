package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

const correlationHeader = "X-Correlation-ID"

// CorrelationIDMiddleware reuses the caller's X-Correlation-ID or mints one,
// echoes it on the response and stores it in the request context.
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.GetHeader(correlationHeader))
		if cid == "" {
			cid = id.NewCorrelationID()
		}
		c.Header(correlationHeader, cid)
		c.Request = c.Request.WithContext(id.WithCorrelationID(c.Request.Context(), cid))
		c.Next()
	}
}

// LoggingMiddleware logs one line per request once the handler has finished.
func LoggingMiddleware(logger logging.Logger) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		reqLogger := logging.FromContext(c.Request.Context(), logger)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		switch {
		case status >= 500:
			reqLogger.Error("%s %s -> %d (%s)", c.Request.Method, route, status, time.Since(start).Round(time.Millisecond))
		case status >= 400:
			reqLogger.Warn("%s %s -> %d (%s)", c.Request.Method, route, status, time.Since(start).Round(time.Millisecond))
		default:
			reqLogger.Info("%s %s -> %d (%s)", c.Request.Method, route, status, time.Since(start).Round(time.Millisecond))
		}
	}
}
