package attendance

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

// ProcessMessage ingests one chat message over HTTP. This is the same
// entry point the kafka consumer uses; the HTTP surface exists for
// bridges that cannot produce to the broker.
func (h *Handler) ProcessMessage(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req ProcessMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", apperror.MapValidationError(err).Error())
		return
	}

	resp, err := h.service.ProcessMessage(c.Request.Context(), Message{
		TenantID:         tenantID,
		AuthorExternalID: req.AuthorExternalID,
		ChannelID:        req.ChannelID,
		MessageID:        req.MessageID,
		Text:             req.Text,
		AuthoredAt:       req.AuthoredAt,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// Not every message carries an attendance event; a nil response
	// means the message was ignored (or already processed).
	if resp == nil {
		response.Success(c, http.StatusOK, nil, nil)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetTeamStatus(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	resp, err := h.service.GetTeamStatus(c.Request.Context(), tenantID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetUserHistory(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.Param("user_id")

	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days < 1 {
		days = 7
	}

	resp, err := h.service.GetUserHistory(c.Request.Context(), tenantID, userID, days)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ResetDailyStats(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	if err := h.service.ResetDailyStats(c.Request.Context(), tenantID); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reset": true}, nil)
}
