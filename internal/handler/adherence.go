package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/internal/service"
)

// AdherenceHandler exposes the adherence computation
type AdherenceHandler struct {
	service *service.AdherenceService
	logger  *zap.Logger
}

// NewAdherenceHandler creates a new AdherenceHandler
func NewAdherenceHandler(service *service.AdherenceService, logger *zap.Logger) *AdherenceHandler {
	return &AdherenceHandler{
		service: service,
		logger:  logger,
	}
}

// GetAdherenceSummary returns the computed adherence statistics for a user
func (h *AdherenceHandler) GetAdherenceSummary(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "user_id query parameter is required",
		})
		return
	}

	summary, err := h.service.ComputeAdherence(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to compute adherence",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		respondError(c, err, "Failed to compute adherence")
		return
	}

	c.JSON(http.StatusOK, summary)
}
