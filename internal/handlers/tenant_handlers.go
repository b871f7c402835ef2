package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hrms-hub/platform-service/internal/models"
	"github.com/hrms-hub/platform-service/internal/services"
	"github.com/hrms-hub/platform-service/internal/tenantctx"
)

// TenantHandler serves the platform-administrator tenant operations
type TenantHandler struct {
	admin  *services.TenantAdminService
	logger *logrus.Logger
}

// NewTenantHandler creates a tenant handler
func NewTenantHandler(admin *services.TenantAdminService, logger *logrus.Logger) *TenantHandler {
	return &TenantHandler{admin: admin, logger: logger}
}

// RegisterRoutes mounts the admin tenant routes
func (h *TenantHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tenants", h.List)
	rg.GET("/tenants/:id", h.Get)
	rg.POST("/tenants/:id/suspend", h.Suspend)
	rg.POST("/tenants/:id/reactivate", h.Reactivate)
	rg.DELETE("/tenants/:id", h.SoftDelete)
	rg.DELETE("/tenants/:id/permanent", h.HardDelete)
}

// List returns a page of tenants
func (h *TenantHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tenants, total, err := h.admin.List(c.Request.Context(), limit, offset)
	if err != nil {
		ErrorResponse(c, h.logger, http.StatusInternalServerError, "Failed to list tenants", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Tenants retrieved", gin.H{
		"tenants": tenants,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get returns a single tenant
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	tenant, err := h.admin.Get(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, err, "Failed to get tenant")
		return
	}
	SuccessResponse(c, http.StatusOK, "Tenant retrieved", tenant)
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

// Suspend suspends a tenant
func (h *TenantHandler) Suspend(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req suspendRequest
	_ = c.ShouldBindJSON(&req)

	tenant, err := h.admin.Suspend(c.Request.Context(), id, req.Reason, h.actor(c))
	if err != nil {
		h.writeServiceError(c, err, "Failed to suspend tenant")
		return
	}
	SuccessResponse(c, http.StatusOK, "Tenant suspended", tenant)
}

// Reactivate restores a suspended or expired tenant to active service
func (h *TenantHandler) Reactivate(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	tenant, err := h.admin.Reactivate(c.Request.Context(), id, h.actor(c))
	if err != nil {
		h.writeServiceError(c, err, "Failed to reactivate tenant")
		return
	}
	SuccessResponse(c, http.StatusOK, "Tenant reactivated", tenant)
}

// SoftDelete marks a tenant deleted while retaining its data
func (h *TenantHandler) SoftDelete(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	if err := h.admin.SoftDelete(c.Request.Context(), id, h.actor(c)); err != nil {
		h.writeServiceError(c, err, "Failed to delete tenant")
		return
	}
	SuccessResponse(c, http.StatusOK, "Tenant deleted", nil)
}

// HardDelete permanently removes a soft-deleted tenant
func (h *TenantHandler) HardDelete(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	if err := h.admin.HardDelete(c.Request.Context(), id, h.actor(c)); err != nil {
		h.writeServiceError(c, err, "Failed to permanently delete tenant")
		return
	}
	SuccessResponse(c, http.StatusOK, "Tenant permanently deleted", nil)
}

func (h *TenantHandler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, h.logger, http.StatusBadRequest, "Invalid tenant ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *TenantHandler) actor(c *gin.Context) string {
	if email := tenantctx.UserEmail(c); email != "" {
		return email
	}
	if userID := tenantctx.UserID(c); userID != "" {
		return userID
	}
	return models.SystemActor
}

func (h *TenantHandler) writeServiceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrTenantNotFound):
		ErrorResponse(c, h.logger, http.StatusNotFound, "Tenant not found", nil)
	case errors.Is(err, services.ErrTenantConflict):
		ErrorResponse(c, h.logger, http.StatusConflict, "Tenant state does not permit this operation", nil)
	default:
		ErrorResponse(c, h.logger, http.StatusInternalServerError, message, err)
	}
}
