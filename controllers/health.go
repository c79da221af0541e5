package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

// BackendInfo describes the configured classifier for readiness reports.
type BackendInfo interface {
	Backend() string
	DegradedAllowed() bool
}

// HealthController handles health check endpoints
type HealthController struct {
	db      *gorm.DB
	backend BackendInfo
}

func NewHealthController(db *gorm.DB, backend BackendInfo) *HealthController {
	return &HealthController{db: db, backend: backend}
}

// GET /health
// Liveness only: the process is up and serving.
func (h *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /ready
func (h *HealthController) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{}
	ready := true

	if h.db != nil {
		if err := h.db.DB().PingContext(ctx); err != nil {
			components["database"] = "error: " + err.Error()
			ready = false
		} else {
			components["database"] = "ok"
		}
	} else {
		components["database"] = "not configured"
	}

	if h.backend != nil {
		components["classifier"] = h.backend.Backend()
		if h.backend.DegradedAllowed() {
			components["degraded_mode"] = "allowed"
		} else {
			components["degraded_mode"] = "disabled"
		}
	} else {
		components["classifier"] = "not configured"
		ready = false
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "components": components})
}
