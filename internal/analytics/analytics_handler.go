package analytics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-presence/internal/shared/apperror"
	"go-presence/internal/shared/response"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func queryDays(c *gin.Context, def int) int {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return days
}

func (h *Handler) GetUserPatterns(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.Param("user_id")

	resp, err := h.service.GetUserPatterns(c.Request.Context(), tenantID, userID, queryDays(c, defaultPatternDays))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetSummary(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	resp, err := h.service.GetSummary(c.Request.Context(), tenantID, queryDays(c, defaultSummaryDays))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetInsights(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	resp, err := h.service.GetInsights(c.Request.Context(), tenantID, queryDays(c, defaultPatternDays))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}
