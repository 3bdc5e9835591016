package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/bikers/internal/observ"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// RequestID reuses the client's X-Request-ID or makes one, echoes it back
// and puts a logger carrying it on the request context.
func RequestID(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)

		logger := base.With(zap.String("request_id", id))
		c.Request = c.Request.WithContext(observ.WithLogger(c.Request.Context(), logger))
		c.Next()
	}
}

// RequestLogger writes one line per request. Server errors log at error
// level, client errors at warn.
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		logger := Logger(c, base)
		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// Metrics records request count and latency per route template, so
// /bikes/:id is one series rather than one per bike.
func Metrics(m *observ.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start).Seconds())
	}
}
