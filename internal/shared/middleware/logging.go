package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/draftforge/server/internal/shared/logger"
)

// Logging returns a middleware that logs HTTP requests.
func Logging(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		if query != "" {
			attrs = append(attrs, "query", query)
		}

		if requestID := GetRequestID(c); requestID != "" {
			attrs = append(attrs, "request_id", requestID)
		}

		if tenantID, exists := c.Get(TenantIDKey); exists {
			attrs = append(attrs, "tenant_id", tenantID)
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		msg := "HTTP Request"
		switch {
		case status >= 500:
			log.Error(msg, attrs...)
		case status >= 400:
			log.Warn(msg, attrs...)
		default:
			log.Info(msg, attrs...)
		}
	}
}
