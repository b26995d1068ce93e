package analytics

import (
	"github.com/gin-gonic/gin"

	"go-presence/internal/middleware"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	analytics := r.Group("/analytics")
	analytics.Use(middleware.TenantMiddleware())
	{
		analytics.GET("/users/:user_id/patterns", h.GetUserPatterns)
		analytics.GET("/summary", h.GetSummary)
		analytics.GET("/insights", h.GetInsights)
	}
}
