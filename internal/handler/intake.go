package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/internal/audit"
	"github.com/vidaplena/adherence-backend/internal/service"
)

// ToggleIntakeRequest marks one dose taken or not taken.
type ToggleIntakeRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Date       string `json:"date" binding:"required"` // YYYY-MM-DD
	TimeSlot   string `json:"time_slot" binding:"required"`
	Medication string `json:"medication" binding:"required"`
	Taken      bool   `json:"taken"`
}

// IntakeHandler exposes dose logging and the per-day schedule view
type IntakeHandler struct {
	service *service.IntakeService
	auditor *audit.Logger
	logger  *zap.Logger
}

// NewIntakeHandler creates a new IntakeHandler. auditor may be nil in tests.
func NewIntakeHandler(service *service.IntakeService, auditor *audit.Logger, logger *zap.Logger) *IntakeHandler {
	return &IntakeHandler{
		service: service,
		auditor: auditor,
		logger:  logger,
	}
}

// ToggleIntake sets the taken state of one (date, slot, medication) dose
func (h *IntakeHandler) ToggleIntake(c *gin.Context) {
	var req ToggleIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	event, err := h.service.ToggleIntake(
		c.Request.Context(),
		req.UserID,
		req.Date,
		req.TimeSlot,
		req.Medication,
		req.Taken,
	)
	if err != nil {
		h.logger.Error("failed to toggle intake",
			zap.Error(err),
			zap.String("user_id", req.UserID),
			zap.String("date", req.Date),
		)
		respondError(c, err, "Failed to save intake")
		return
	}

	if h.auditor != nil {
		if err := h.auditor.LogUpdate(
			c.Request.Context(),
			req.UserID,
			string(audit.ResourceIntakeEvent),
			event.ID,
			c.ClientIP(),
			c.Request.UserAgent(),
		); err != nil {
			h.logger.Warn("failed to write audit log", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, event)
}

// GetDaySchedule returns the slot-by-medication schedule for one date
func (h *IntakeHandler) GetDaySchedule(c *gin.Context) {
	userID := c.Query("user_id")
	date := c.Query("date")
	if userID == "" || date == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "user_id and date query parameters are required",
		})
		return
	}

	schedule, err := h.service.GetDaySchedule(c.Request.Context(), userID, date)
	if err != nil {
		h.logger.Error("failed to load day schedule",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("date", date),
		)
		respondError(c, err, "Failed to load day schedule")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":    date,
		"entries": schedule,
	})
}
