package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-presence/internal/shared/contextutil"
	"go-presence/internal/shared/response"
)

// TenantMiddleware requires an X-Tenant-ID header on every request and
// propagates it to both the gin context and the request context. Tenant
// authentication itself is handled by the gateway in front of this
// service.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID == "" {
			response.Error(c, http.StatusBadRequest, "MISSING_TENANT", "X-Tenant-ID header is required", nil)
			c.Abort()
			return
		}
		if _, err := uuid.Parse(tenantID); err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_TENANT", "X-Tenant-ID must be a UUID", nil)
			c.Abort()
			return
		}

		c.Set("tenant_id", tenantID)

		ctx := contextutil.WithTenantID(c.Request.Context(), tenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
