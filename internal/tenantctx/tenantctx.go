package tenantctx

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys for request-scoped tenant and actor data. All
// cross-cutting state is carried on the gin request context so nothing
// leaks between requests.
const (
	TenantIDKey      = "tenant_id"
	SchemaNameKey    = "tenant_schema"
	UserIDKey        = "user_id"
	UserEmailKey     = "user_email"
	UserRoleKey      = "user_role"
	CorrelationIDKey = "correlation_id"
	DeviceIDKey      = "device_id"
)

// SetTenant stores the resolved tenant identity on the request context
func SetTenant(c *gin.Context, tenantID uuid.UUID, schemaName string) {
	c.Set(TenantIDKey, tenantID.String())
	c.Set(SchemaNameKey, schemaName)
}

// TenantID returns the resolved tenant ID, or uuid.Nil when the request
// carries no tenant context
func TenantID(c *gin.Context) uuid.UUID {
	if id, exists := c.Get(TenantIDKey); exists {
		if parsed, err := uuid.Parse(id.(string)); err == nil {
			return parsed
		}
	}
	return uuid.Nil
}

// SchemaName returns the resolved tenant schema name
func SchemaName(c *gin.Context) string {
	if schema, exists := c.Get(SchemaNameKey); exists {
		return schema.(string)
	}
	return ""
}

// HasTenant reports whether tenant context was resolved for this request
func HasTenant(c *gin.Context) bool {
	return TenantID(c) != uuid.Nil && SchemaName(c) != ""
}

// UserID returns the authenticated user ID, falling back to the
// gateway-provided header
func UserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		return id.(string)
	}
	return c.GetHeader("X-User-ID")
}

// UserEmail returns the authenticated user email
func UserEmail(c *gin.Context) string {
	if email, exists := c.Get(UserEmailKey); exists {
		return email.(string)
	}
	return c.GetHeader("X-User-Email")
}

// UserRole returns the authenticated user role claim
func UserRole(c *gin.Context) string {
	if role, exists := c.Get(UserRoleKey); exists {
		return role.(string)
	}
	return c.GetHeader("X-User-Role")
}

// CorrelationID returns the request correlation ID
func CorrelationID(c *gin.Context) string {
	if id, exists := c.Get(CorrelationIDKey); exists {
		return id.(string)
	}
	return ""
}

// SetDevice stores the authenticated device identity after API key validation
func SetDevice(c *gin.Context, deviceID string, tenantID uuid.UUID, schemaName string) {
	c.Set(DeviceIDKey, deviceID)
	SetTenant(c, tenantID, schemaName)
}

// DeviceID returns the authenticated device ID
func DeviceID(c *gin.Context) string {
	if id, exists := c.Get(DeviceIDKey); exists {
		return id.(string)
	}
	return ""
}
