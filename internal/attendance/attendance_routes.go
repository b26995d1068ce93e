package attendance

import (
	"github.com/gin-gonic/gin"

	"go-presence/internal/middleware"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	attendance := r.Group("/attendance")
	attendance.Use(middleware.TenantMiddleware())
	{
		attendance.POST("/messages", h.ProcessMessage)
		attendance.GET("/status", h.GetTeamStatus)
		attendance.GET("/users/:user_id/history", h.GetUserHistory)
		attendance.POST("/reset-daily", h.ResetDailyStats)
	}
}
