package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/tenantctx"
)

// ErrorResponse sends a standardized error response. Internal error
// details are logged, never exposed to clients.
func ErrorResponse(c *gin.Context, logger *logrus.Logger, statusCode int, message string, err error) {
	correlationID := tenantctx.CorrelationID(c)

	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"correlation_id": correlationID,
			"path":           c.Request.URL.Path,
		}).Error(message)
	}

	c.JSON(statusCode, gin.H{
		"success":        false,
		"message":        message,
		"correlation_id": correlationID,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// SuccessResponse sends a standardized success response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	response := gin.H{
		"success":        true,
		"message":        message,
		"correlation_id": tenantctx.CorrelationID(c),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	if data != nil {
		response["data"] = data
	}
	c.JSON(statusCode, response)
}
