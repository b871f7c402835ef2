package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	natsclient "github.com/hrms-hub/platform-service/internal/nats"
	"github.com/hrms-hub/platform-service/internal/redis"
)

var startTime = time.Now()

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db    *gorm.DB
	cache *redis.Client
	nats  *natsclient.Client
}

// NewHealthHandler creates a health handler
func NewHealthHandler(db *gorm.DB, cache *redis.Client, nats *natsclient.Client) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, nats: nats}
}

// Check represents one dependency check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Liveness reports that the process is up
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "platform-service",
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness reports whether dependencies are reachable
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]Check{}
	healthy := true

	checks["database"] = h.checkDatabase(ctx)
	if checks["database"].Status != "ok" {
		healthy = false
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = Check{Status: "degraded", Message: err.Error()}
		} else {
			checks["redis"] = Check{Status: "ok"}
		}
	}

	if h.nats != nil {
		if h.nats.IsConnected() {
			checks["nats"] = Check{Status: "ok"}
		} else {
			// Events are best-effort, a NATS outage degrades but does
			// not fail readiness
			checks["nats"] = Check{Status: "degraded", Message: "not connected"}
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unavailable"
	}

	c.JSON(status, gin.H{
		"status":    overall,
		"service":   "platform-service",
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	sqlDB, err := h.db.DB()
	if err != nil {
		return Check{Status: "error", Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return Check{Status: "error", Message: err.Error()}
	}
	return Check{Status: "ok"}
}
