package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/tenantctx"
)

// SuperAdminRole is the platform operator role claim forwarded by the
// authenticating gateway
const SuperAdminRole = "SUPER_ADMIN"

// RequireSuperAdmin gates the platform-admin surface on the identity
// the gateway authenticated and forwarded. No identity gets 401, an
// identity without the operator role gets 403. This is a separate
// concern from the tenant gate: admin routes are tenant-exempt by
// path, and the role checked here never exempts anything else.
func RequireSuperAdmin(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := tenantctx.UserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
				"code":  "ADMIN_AUTH_REQUIRED",
			})
			return
		}

		if role := tenantctx.UserRole(c); role != SuperAdminRole {
			logger.WithFields(logrus.Fields{
				"user_id": userID,
				"role":    role,
				"path":    c.Request.URL.Path,
			}).Warn("Admin route denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient privileges",
				"code":  "ADMIN_ROLE_REQUIRED",
			})
			return
		}

		c.Next()
	}
}
