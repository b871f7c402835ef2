package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hrms-hub/platform-service/internal/redis"
	"github.com/hrms-hub/platform-service/internal/repository"
	"github.com/hrms-hub/platform-service/internal/tenantctx"
)

// TenantResolver resolves a request to a tenant identity. An empty
// result with a nil error means the request carries no tenant context,
// which is not itself an error; the validation gate decides whether
// the route requires one.
type TenantResolver interface {
	Resolve(c *gin.Context) (tenantID uuid.UUID, schemaName string, err error)
}

// SubdomainResolver resolves tenants from the request host subdomain
// against the tenant registry, with a Redis cache in front of the
// database lookup.
type SubdomainResolver struct {
	tenants    repository.TenantRepositoryInterface
	cache      *redis.Client
	baseDomain string
	cacheTTL   time.Duration
	logger     *logrus.Logger
}

// NewSubdomainResolver creates a subdomain-based tenant resolver
func NewSubdomainResolver(tenants repository.TenantRepositoryInterface, cache *redis.Client, baseDomain string, cacheTTL time.Duration, logger *logrus.Logger) *SubdomainResolver {
	return &SubdomainResolver{
		tenants:    tenants,
		cache:      cache,
		baseDomain: strings.ToLower(baseDomain),
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Resolve extracts the subdomain from the request host and looks up the
// owning tenant
func (r *SubdomainResolver) Resolve(c *gin.Context) (uuid.UUID, string, error) {
	subdomain := r.subdomainFromHost(c.Request.Host)
	if subdomain == "" {
		return uuid.Nil, "", nil
	}

	ctx := c.Request.Context()

	if r.cache != nil {
		cached, err := r.cache.GetCachedTenant(ctx, subdomain)
		if err != nil {
			r.logger.WithError(err).WithField("subdomain", subdomain).Warn("Tenant cache lookup failed, falling back to database")
		} else if cached != nil {
			if tenantID, err := uuid.Parse(cached.TenantID); err == nil {
				return tenantID, cached.SchemaName, nil
			}
		}
	}

	tenant, err := r.tenants.GetBySubdomain(ctx, subdomain)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, "", nil
	}
	if err != nil {
		return uuid.Nil, "", err
	}

	if r.cache != nil {
		if err := r.cache.SetCachedTenant(ctx, subdomain, &redis.CachedTenant{
			TenantID:   tenant.ID.String(),
			SchemaName: tenant.SchemaName,
			Status:     string(tenant.Status),
		}, r.cacheTTL); err != nil {
			r.logger.WithError(err).WithField("subdomain", subdomain).Warn("Failed to cache tenant resolution")
		}
	}

	return tenant.ID, tenant.SchemaName, nil
}

func (r *SubdomainResolver) subdomainFromHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)

	suffix := "." + r.baseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}

	subdomain := strings.TrimSuffix(host, suffix)
	// Nested subdomains (a.b.hrms.mu) do not map to a tenant
	if subdomain == "" || strings.Contains(subdomain, ".") {
		return ""
	}
	return subdomain
}

// ResolveTenant runs the resolver and stores any resolved identity on
// the request context. Resolution failures are logged and treated as
// unresolved rather than failing the request here.
func ResolveTenant(resolver TenantResolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, schemaName, err := resolver.Resolve(c)
		if err != nil {
			logger.WithError(err).WithField("host", c.Request.Host).Warn("Tenant resolution failed")
		} else if tenantID != uuid.Nil {
			tenantctx.SetTenant(c, tenantID, schemaName)
		}
		c.Next()
	}
}

// Paths reachable without tenant context. Platform-admin and device
// surfaces carry their own authentication and are not tenant-scoped.
// Everything else under /api requires a resolved tenant; exemptions are
// by path only, never by caller role.
var tenantExemptPrefixes = []string{
	"/health",
	"/metrics",
	"/api/auth/login",
	"/api/setup/",
	"/api/admin/",
	"/api/devices/",
}

func tenantExempt(path string) bool {
	if path == "/" || path == "/api/setup" {
		return true
	}
	for _, prefix := range tenantExemptPrefixes {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RequireTenant rejects API requests that reached a tenant-scoped route
// without resolved tenant context
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, "/api") || tenantExempt(path) {
			c.Next()
			return
		}

		if !tenantctx.HasTenant(c) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "tenant context required",
				"message": "This endpoint requires a tenant context. Access the API through your organization subdomain.",
				"code":    "TENANT_CONTEXT_REQUIRED",
			})
			return
		}

		c.Next()
	}
}
