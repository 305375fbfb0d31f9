package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// slowRequestThreshold marks a request worth a warning-level log line even
// on success: the trend engine's own upstream round trip plus its fixed
// inter-request delay can legitimately take several seconds, so the bar
// for "slow" here sits above that rather than flagging every query.
const slowRequestThreshold = 10 * time.Second

// SlogRequestLogger logs one structured line per request, tagged with the
// request id RequestID assigned so it can be correlated with the engine's
// own per-query log lines.
func SlogRequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if logger == nil {
			return
		}

		attrs := []any{
			"method", method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", RequestIDFromContext(c),
		}

		switch {
		case status >= 500:
			logger.Error("api request", attrs...)
		case latency >= slowRequestThreshold:
			logger.Warn("api request slow", attrs...)
		default:
			logger.Info("api request", attrs...)
		}
	}
}
