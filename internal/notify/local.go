package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/pkg/model"
)

// LocalRegistry is an in-memory Registry. It backs the scheduler in tests and
// in environments without a persistent registry.
type LocalRegistry struct {
	mu         sync.Mutex
	pending    map[string]model.Reminder
	granted    bool
	maxPending int
	logger     *zap.Logger
}

// NewLocalRegistry creates a LocalRegistry with the given pending cap.
// Permission starts out granted; tests flip it with SetPermission.
func NewLocalRegistry(maxPending int, logger *zap.Logger) *LocalRegistry {
	return &LocalRegistry{
		pending:    make(map[string]model.Reminder),
		granted:    true,
		maxPending: maxPending,
		logger:     logger,
	}
}

// SetPermission overrides the permission state.
func (r *LocalRegistry) SetPermission(granted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.granted = granted
}

// HasPermission reports the current grant state.
func (r *LocalRegistry) HasPermission(_ context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.granted
}

// RequestPermission returns the current grant state; the local registry has
// no prompt to show.
func (r *LocalRegistry) RequestPermission(_ context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.granted, nil
}

// ListPending returns all pending reminders ordered by fire instant.
func (r *LocalRegistry) ListPending(_ context.Context) ([]model.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Reminder, 0, len(r.pending))
	for _, rem := range r.pending {
		out = append(out, rem)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

// Register stores the reminder, assigning an identifier when none is set.
func (r *LocalRegistry) Register(_ context.Context, rem model.Reminder) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.granted {
		return "", ErrPermissionDenied
	}
	if r.maxPending > 0 && len(r.pending) >= r.maxPending {
		return "", ErrCapacityExceeded
	}

	if rem.ID == "" {
		rem.ID = uuid.New().String()
	}
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now()
	}
	r.pending[rem.ID] = rem

	return rem.ID, nil
}

// Cancel removes a pending reminder if present.
func (r *LocalRegistry) Cancel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
	return nil
}

// MaxPending returns the configured cap.
func (r *LocalRegistry) MaxPending() int {
	return r.maxPending
}
