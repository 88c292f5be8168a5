package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health pings both backing stores. Any failed dependency degrades the
// response to 503 so load balancers rotate the instance out.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "cache": "ok"}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "error"
		healthy = false
		h.log.Error().Err(err).Msg("health: postgres ping failed")
	}
	if err := h.cache.Ping(ctx).Err(); err != nil {
		checks["cache"] = "error"
		healthy = false
		h.log.Error().Err(err).Msg("health: redis ping failed")
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":      overall,
		"environment": h.cfg.Environment,
		"checks":      checks,
	})
}
