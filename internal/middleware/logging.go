package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tripperhq/tripper/internal/metrics"
)

// Logging returns a middleware that logs every request with its route,
// status, user ID, and duration, and records the request in the Prometheus
// counters.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)

		metrics.ObserveRequest(c.Request.Method, route, status, duration)

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"user_id", GetUserID(c.Request.Context()),
			"email", GetEmail(c.Request.Context()),
			"duration_ms", duration.Milliseconds(),
		}
		switch {
		case status >= 500:
			slog.Error("Request failed", attrs...)
		case status >= 400:
			slog.Warn("Request rejected", attrs...)
		default:
			slog.Info("Request completed", attrs...)
		}
	}
}
