package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"revpace/internal/cache"
)

// HealthHandler serves the liveness and readiness probes. Readiness checks
// the database and, when configured, the overview cache; a nil Cache is
// treated as ok since caching is optional.
type HealthHandler struct {
	DB    *gorm.DB
	Cache *cache.Cache
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]any
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	checks := map[string]string{}
	ready := true

	switch {
	case h.DB == nil:
		checks["db"] = "missing"
		ready = false
	default:
		if sqlDB, err := h.DB.DB(); err != nil {
			checks["db"] = "error"
			ready = false
		} else if err := sqlDB.Ping(); err != nil {
			checks["db"] = "unreachable"
			ready = false
		} else {
			checks["db"] = "ok"
		}
	}

	// A configured but unreachable redis fails readiness so a half-broken
	// deploy is caught before it serves stale overviews.
	if err := h.Cache.Ping(c.Request.Context()); err != nil {
		checks["cache"] = "unreachable"
		ready = false
	} else {
		checks["cache"] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}
