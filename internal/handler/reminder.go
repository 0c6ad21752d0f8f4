package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/internal/audit"
	"github.com/vidaplena/adherence-backend/internal/service"
	"github.com/vidaplena/adherence-backend/pkg/model"
)

// RescheduleRequest triggers a rebuild of one reminder family's plan.
type RescheduleRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ReminderHandler exposes reminder planning and the pending reminder list
type ReminderHandler struct {
	planner   *service.ReminderPlanner
	scheduler *service.ReminderScheduler
	auditor   *audit.Logger
	logger    *zap.Logger
}

// NewReminderHandler creates a new ReminderHandler. auditor may be nil in tests.
func NewReminderHandler(planner *service.ReminderPlanner, scheduler *service.ReminderScheduler, auditor *audit.Logger, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{
		planner:   planner,
		scheduler: scheduler,
		auditor:   auditor,
		logger:    logger,
	}
}

// RescheduleMedication replaces the medication reminder plan
func (h *ReminderHandler) RescheduleMedication(c *gin.Context) {
	h.reschedule(c, "medication", h.planner.RescheduleMedicationReminders)
}

// RescheduleMotivational replaces the motivational and daily check-up plans
func (h *ReminderHandler) RescheduleMotivational(c *gin.Context) {
	h.reschedule(c, "motivational", h.planner.RescheduleMotivationalMessages)
}

func (h *ReminderHandler) reschedule(c *gin.Context, family string, run func(ctx context.Context, userID string) (*service.RescheduleResult, error)) {
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	result, err := run(c.Request.Context(), req.UserID)
	if err != nil {
		h.logger.Error("failed to reschedule reminders",
			zap.Error(err),
			zap.String("family", family),
			zap.String("user_id", req.UserID),
		)
		respondError(c, err, "Failed to reschedule reminders")
		return
	}

	if h.auditor != nil {
		if err := h.auditor.LogUpdate(
			c.Request.Context(),
			req.UserID,
			string(audit.ResourceReminderPlan),
			family,
			c.ClientIP(),
			c.Request.UserAgent(),
		); err != nil {
			h.logger.Warn("failed to write audit log", zap.Error(err))
		}
	}

	status := http.StatusOK
	if result.Partial() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

// ListReminders returns pending reminders filtered by class
func (h *ReminderHandler) ListReminders(c *gin.Context) {
	class := c.Query("class")
	if class == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "class query parameter is required",
		})
		return
	}

	reminders, err := h.scheduler.ListByClass(c.Request.Context(), model.ReminderClass(class))
	if err != nil {
		h.logger.Error("failed to list reminders",
			zap.Error(err),
			zap.String("class", class),
		)
		respondError(c, err, "Failed to list reminders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"class":     class,
		"reminders": reminders,
		"count":     len(reminders),
	})
}
