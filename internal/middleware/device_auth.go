package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/services"
	"github.com/hrms-hub/platform-service/internal/tenantctx"
)

// DeviceKeyHeader carries the raw device API key on sync requests
const DeviceKeyHeader = "X-Device-API-Key"

// DeviceKeyValidator validates a raw device API key, returning the key
// record and the owning tenant's schema name
type DeviceKeyValidator interface {
	ValidateAPIKey(ctx context.Context, rawKey, clientIP string) (*models.DeviceAPIKey, string, error)
}

// DeviceAuth authenticates biometric devices on the sync endpoints.
// Invalid credentials are rejected with 401; infrastructure failures
// (database or Redis unavailable) fail closed with 503 rather than
// letting unverified devices through.
func DeviceAuth(validator DeviceKeyValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader(DeviceKeyHeader)
		if rawKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "device API key required",
				"code":  "DEVICE_KEY_REQUIRED",
			})
			return
		}

		key, schemaName, err := validator.ValidateAPIKey(c.Request.Context(), rawKey, c.ClientIP())
		if err != nil {
			switch {
			case errors.Is(err, services.ErrDeviceRateLimited):
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error": "rate limit exceeded",
					"code":  "DEVICE_RATE_LIMITED",
				})
			case errors.Is(err, services.ErrDeviceKeyInvalid),
				errors.Is(err, services.ErrDeviceKeyExpired),
				errors.Is(err, services.ErrDeviceIPNotAllowed):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "invalid device API key",
					"code":  "DEVICE_KEY_INVALID",
				})
			default:
				logger.WithError(err).WithField("ip", c.ClientIP()).Error("Device key validation unavailable")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "device authentication temporarily unavailable",
					"code":  "DEVICE_AUTH_UNAVAILABLE",
				})
			}
			return
		}

		tenantctx.SetDevice(c, key.DeviceID, key.TenantID, schemaName)
		c.Next()
	}
}
