package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/audit"
	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/tenantctx"
)

// classificationRule maps a request shape to an audit action. Rules are
// evaluated in order and the first match wins, so specific routes must
// precede generic ones.
type classificationRule struct {
	pathContains string
	method       string // empty matches any method
	action       models.AuditActionType
}

var classificationRules = []classificationRule{
	{pathContains: "/auth/login", method: "POST", action: models.ActionLogin},
	{pathContains: "/auth/logout", method: "POST", action: models.ActionLogout},

	{pathContains: "/devices/sync", method: "POST", action: models.ActionDeviceSync},

	{pathContains: "/leave", method: "POST", action: models.ActionLeaveRequested},
	{pathContains: "/approve", method: "PUT", action: models.ActionLeaveApproved},

	{pathContains: "/payroll", method: "POST", action: models.ActionPayrollProcessed},

	{pathContains: "/employees", method: "POST", action: models.ActionEmployeeCreated},
	{pathContains: "/employees", method: "PUT", action: models.ActionEmployeeUpdated},
	{pathContains: "/employees", method: "PATCH", action: models.ActionEmployeeUpdated},
	{pathContains: "/employees", method: "DELETE", action: models.ActionEmployeeDeleted},

	{pathContains: "/tenants", method: "POST", action: models.ActionTenantCreated},
	{pathContains: "/tenants", method: "PUT", action: models.ActionTenantUpdated},
	{pathContains: "/tenants", method: "PATCH", action: models.ActionTenantUpdated},
	{pathContains: "/tenants", method: "DELETE", action: models.ActionTenantDeleted},
}

var methodDefaults = map[string]models.AuditActionType{
	"GET":    models.ActionRead,
	"HEAD":   models.ActionRead,
	"POST":   models.ActionCreate,
	"PUT":    models.ActionUpdate,
	"PATCH":  models.ActionUpdate,
	"DELETE": models.ActionDelete,
}

var categoryRules = []struct {
	pathContains string
	category     models.AuditCategory
}{
	{"/auth", models.CategoryAuthentication},
	{"/tenants", models.CategoryTenant},
	{"/employees", models.CategoryEmployee},
	{"/leave", models.CategoryLeave},
	{"/payroll", models.CategoryPayroll},
	{"/attendance", models.CategoryAttendance},
	{"/devices", models.CategoryAttendance},
	{"/payments", models.CategoryBilling},
	{"/billing", models.CategoryBilling},
	{"/audit", models.CategorySecurity},
}

// Actions that are never routine, whatever the response code
var warningFloorActions = map[models.AuditActionType]bool{
	models.ActionPayrollProcessed:  true,
	models.ActionEmployeeDeleted:   true,
	models.ActionTenantDeleted:     true,
	models.ActionTenantHardDeleted: true,
}

// Query parameters whose values are masked before persistence
var sensitiveQueryParams = regexp.MustCompile(`(?i)\b(password|passwd|secret|token|api_?key|key|auth)=[^&]*`)

// ClassifyAction resolves the audit action for a request. A failed
// login attempt is recorded as its own action type.
func ClassifyAction(method, path string, status int) models.AuditActionType {
	for _, rule := range classificationRules {
		if strings.Contains(path, rule.pathContains) && (rule.method == "" || rule.method == method) {
			if rule.action == models.ActionLogin && status >= 400 {
				return models.ActionLoginFailed
			}
			return rule.action
		}
	}
	if action, ok := methodDefaults[method]; ok {
		return action
	}
	return models.ActionRead
}

// ClassifyCategory resolves the functional area for a request path
func ClassifyCategory(path string) models.AuditCategory {
	for _, rule := range categoryRules {
		if strings.Contains(path, rule.pathContains) {
			return rule.category
		}
	}
	return models.CategorySystem
}

// ClassifySeverity derives severity from the response code, flooring
// high-value actions at WARNING even on success
func ClassifySeverity(action models.AuditActionType, status int) models.AuditSeverity {
	switch {
	case status >= 500:
		return models.SeverityCritical
	case status >= 400:
		return models.SeverityWarning
	case warningFloorActions[action]:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

// SanitizeQueryString masks credential-bearing query parameter values
func SanitizeQueryString(query string) string {
	return sensitiveQueryParams.ReplaceAllString(query, "$1="+Masked)
}

// ClientIP prefers the first X-Forwarded-For segment over the socket
// peer, matching the load balancer in front of the service
func ClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}

// AuditTrail records every API request as a classified audit entry,
// submitted to the background writer after the handler completes. A
// panicking handler is still audited: the entry is recorded as a 500
// at CRITICAL severity before the panic is re-raised for the recovery
// middleware to turn into the response.
func AuditTrail(writer audit.Submitter, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, "/api") {
			c.Next()
			return
		}

		start := time.Now()

		defer func() {
			recovered := recover()

			status := c.Writer.Status()
			if recovered != nil {
				status = http.StatusInternalServerError
			}
			action := ClassifyAction(c.Request.Method, path, status)
			severity := ClassifySeverity(action, status)
			if recovered != nil {
				severity = models.SeverityCritical
			}

			entry := &models.AuditLog{
				ActionType:    action,
				Category:      ClassifyCategory(path),
				Severity:      severity,
				UserID:        tenantctx.UserID(c),
				UserEmail:     tenantctx.UserEmail(c),
				TenantID:      tenantctx.TenantID(c),
				HTTPMethod:    c.Request.Method,
				RequestPath:   path,
				QueryString:   SanitizeQueryString(c.Request.URL.RawQuery),
				ResponseCode:  status,
				DurationMs:    time.Since(start).Milliseconds(),
				IPAddress:     ClientIP(c),
				UserAgent:     c.Request.UserAgent(),
				CorrelationID: tenantctx.CorrelationID(c),
				PerformedAt:   time.Now().UTC(),
			}
			if deviceID := tenantctx.DeviceID(c); deviceID != "" && entry.UserID == "" {
				entry.UserID = "device:" + deviceID
			}
			if recovered != nil {
				entry.Description = fmt.Sprintf("Unhandled error: %v", recovered)
			}

			if !writer.Submit(entry) {
				logger.WithFields(logrus.Fields{
					"path":   path,
					"action": action,
				}).Warn("Audit entry not recorded")
			}

			if recovered != nil {
				panic(recovered)
			}
		}()

		c.Next()
	}
}
