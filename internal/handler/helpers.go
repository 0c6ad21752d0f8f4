package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidaplena/adherence-backend/internal/notify"
	"github.com/vidaplena/adherence-backend/internal/repository"
	"github.com/vidaplena/adherence-backend/internal/service"
)

// ErrorResponse is the JSON error envelope returned by all endpoints.
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// respondError maps service errors to HTTP statuses. Precondition violations
// and permission denial get distinct codes so clients can render the right
// state instead of a generic failure.
func respondError(c *gin.Context, err error, fallbackMessage string) {
	switch {
	case errors.Is(err, repository.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "PROFILE_NOT_FOUND",
			Message: "No profile exists for this user",
			Details: stringPtr(err.Error()),
		})
	case errors.Is(err, service.ErrNoActiveMedications),
		errors.Is(err, service.ErrUnresolvedStartDate):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "INCOMPLETE_PROFILE",
			Message: "Profile is missing active medications or a treatment start date",
			Details: stringPtr(err.Error()),
		})
	case errors.Is(err, service.ErrStartDateInFuture):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "START_DATE_IN_FUTURE",
			Message: "Treatment start date is after today",
			Details: stringPtr(err.Error()),
		})
	case errors.Is(err, service.ErrDateBeforeStart),
		errors.Is(err, service.ErrFutureDate),
		errors.Is(err, service.ErrUnknownTimeSlot),
		errors.Is(err, service.ErrInactiveMedication):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Intake request is not valid",
			Details: stringPtr(err.Error()),
		})
	case errors.Is(err, notify.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Code:    "PERMISSION_DENIED",
			Message: "Notification permission was not granted; nothing was scheduled",
			Details: stringPtr(err.Error()),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: fallbackMessage,
			Details: stringPtr(err.Error()),
		})
	}
}
