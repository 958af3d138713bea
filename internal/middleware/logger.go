package middleware

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// safeQueryParams are the only query parameters written to logs.
var safeQueryParams = []string{"language"}

// GinZapLogger logs every request except /health and /metrics. Query strings
// are reduced to safeQueryParams so ids and free text never reach the logs.
func GinZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", SanitizedPath(c.Request.URL)),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID),
		}

		if len(c.Errors) > 0 {
			for _, ginErr := range c.Errors.ByType(gin.ErrorTypeAny) {
				log.Error("Request error", append(fields, zap.Error(ginErr.Err))...)
			}
			return
		}
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("Server error", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}

// SanitizedPath returns the path with only the safe query parameters.
func SanitizedPath(u *url.URL) string {
	q := u.Query()
	safe := url.Values{}
	for _, key := range safeQueryParams {
		if v, ok := q[key]; ok {
			safe[key] = v
		}
	}
	if len(safe) == 0 {
		return u.Path
	}
	return u.Path + "?" + safe.Encode()
}
