package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/tenantctx"
)

// CorrelationIDHeader is the header used for request tracing
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationID accepts a caller-provided correlation ID or generates
// one, stores it on the request context and echoes it on the response.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(tenantctx.CorrelationIDKey, correlationID)
		c.Header(CorrelationIDHeader, correlationID)

		c.Next()
	}
}

// StructuredLogger logs each request with structured fields
func StructuredLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"status":         c.Writer.Status(),
			"duration_ms":    time.Since(start).Milliseconds(),
			"ip":             c.ClientIP(),
			"user_agent":     c.Request.UserAgent(),
			"correlation_id": tenantctx.CorrelationID(c),
		}
		if tenantID := tenantctx.TenantID(c); tenantID != uuid.Nil {
			fields["tenant_id"] = tenantID.String()
		}

		entry := logger.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request completed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}
