// Package notify defines the notification registry the reminder scheduler
// plans against, plus an in-memory implementation for local development and
// tests. The production registry is backed by PostgreSQL (see
// internal/repository) and drained by the mobile client's push channel.
package notify

import (
	"context"
	"errors"

	"github.com/vidaplena/adherence-backend/pkg/model"
)

// ErrPermissionDenied indicates notification permission was not granted.
// Scheduling must be skipped entirely when this is returned, never partially
// applied.
var ErrPermissionDenied = errors.New("notification permission denied")

// ErrCapacityExceeded indicates the registry's pending-notification cap is
// full and the registration was rejected.
var ErrCapacityExceeded = errors.New("pending notification capacity exceeded")

// Registry registers future local reminders and cancels them by identifier.
type Registry interface {
	// HasPermission reports whether reminders may be registered at all.
	HasPermission(ctx context.Context) bool

	// RequestPermission asks for notification permission, returning the
	// resulting grant state.
	RequestPermission(ctx context.Context) (bool, error)

	// ListPending returns every currently registered reminder.
	ListPending(ctx context.Context) ([]model.Reminder, error)

	// Register adds a reminder and returns its assigned identifier.
	// Returns ErrCapacityExceeded when the pending cap is full.
	Register(ctx context.Context, r model.Reminder) (string, error)

	// Cancel removes a pending reminder. Cancelling an unknown identifier is
	// not an error.
	Cancel(ctx context.Context, id string) error

	// MaxPending is the platform cap on simultaneously pending reminders.
	MaxPending() int
}
