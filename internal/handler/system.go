package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"EchoJournal/pkg/response"
)

func (h *Handlers) registerSystemRoutes(engine *gin.Engine) {
	engine.GET("/health", h.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// handleHealth 探活：DB 与 Redis 任一不可用即 503
func (h *Handlers) handleHealth(c *gin.Context) {
	checks := gin.H{"db": "ok", "redis": "ok"}
	healthy := true

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		checks["db"] = "down"
		healthy = false
	}
	if h.redisPing != nil && h.redisPing() != nil {
		checks["redis"] = "down"
		healthy = false
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

// handleWebsocket 状态推送长连接，登录态校验后交给 hub
func (h *Handlers) handleWebsocket(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request, userID); err != nil {
		response.Fail(c, http.StatusBadRequest, "WS_UPGRADE_FAILED", "websocket upgrade failed")
	}
}
