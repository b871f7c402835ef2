package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/services"
)

// AuditHandler serves the audit trail search and export surface
type AuditHandler struct {
	audits *services.AuditService
	logger *logrus.Logger
}

// NewAuditHandler creates an audit handler
func NewAuditHandler(audits *services.AuditService, logger *logrus.Logger) *AuditHandler {
	return &AuditHandler{audits: audits, logger: logger}
}

// RegisterRoutes mounts the admin audit routes
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit-logs", h.Search)
	rg.GET("/audit-logs/:id", h.Get)
	rg.GET("/audit-logs/export", h.Export)
}

// Search returns audit logs matching the query filters
func (h *AuditHandler) Search(c *gin.Context) {
	filter := h.parseFilter(c)

	logs, total, err := h.audits.Search(c.Request.Context(), filter)
	if err != nil {
		ErrorResponse(c, h.logger, http.StatusInternalServerError, "Failed to search audit logs", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Audit logs retrieved", gin.H{
		"logs":   logs,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// Get returns a single audit log entry
func (h *AuditHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, h.logger, http.StatusBadRequest, "Invalid audit log ID", nil)
		return
	}

	log, err := h.audits.GetByID(c.Request.Context(), id)
	if err != nil {
		ErrorResponse(c, h.logger, http.StatusNotFound, "Audit log not found", nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Audit log retrieved", log)
}

// Export streams matching audit logs as CSV or JSON
func (h *AuditHandler) Export(c *gin.Context) {
	filter := h.parseFilter(c)
	format := c.DefaultQuery("format", "csv")
	filename := fmt.Sprintf("audit-logs-%s", time.Now().UTC().Format("20060102-150405"))

	switch format {
	case "json":
		data, err := h.audits.ExportJSON(c.Request.Context(), filter)
		if err != nil {
			ErrorResponse(c, h.logger, http.StatusInternalServerError, "Failed to export audit logs", err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", filename))
		c.Data(http.StatusOK, "application/json", data)
	case "csv":
		data, err := h.audits.ExportCSV(c.Request.Context(), filter)
		if err != nil {
			ErrorResponse(c, h.logger, http.StatusInternalServerError, "Failed to export audit logs", err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Data(http.StatusOK, "text/csv", data)
	default:
		ErrorResponse(c, h.logger, http.StatusBadRequest, "Unsupported export format", nil)
	}
}

func (h *AuditHandler) parseFilter(c *gin.Context) *models.AuditLogFilter {
	filter := &models.AuditLogFilter{
		UserID:        c.Query("userId"),
		ActionType:    models.AuditActionType(c.Query("actionType")),
		Category:      models.AuditCategory(c.Query("category")),
		Severity:      models.AuditSeverity(c.Query("severity")),
		IPAddress:     c.Query("ipAddress"),
		CorrelationID: c.Query("correlationId"),
		SearchText:    c.Query("search"),
		SortBy:        c.Query("sortBy"),
		SortOrder:     c.Query("sortOrder"),
	}

	if tenantID, err := uuid.Parse(c.Query("tenantId")); err == nil {
		filter.TenantID = &tenantID
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.FromDate = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.ToDate = &to
	}

	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return filter
}
