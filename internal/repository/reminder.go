package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/internal/notify"
	"github.com/vidaplena/adherence-backend/pkg/model"
)

// ReminderRepository is the persistent notify.Registry: pending reminders
// live in the pending_reminders table until a delivery worker or the mobile
// client drains them. Permission state is delegated to the client at delivery
// time, so the server-side registry always reports permission granted.
type ReminderRepository struct {
	db         *pgxpool.Pool
	logger     *zap.Logger
	maxPending int
}

// NewReminderRepository creates a new ReminderRepository with the given
// pending cap.
func NewReminderRepository(db *pgxpool.Pool, maxPending int, logger *zap.Logger) *ReminderRepository {
	return &ReminderRepository{
		db:         db,
		logger:     logger,
		maxPending: maxPending,
	}
}

var _ notify.Registry = (*ReminderRepository)(nil)

// HasPermission always reports true for the server-side registry.
func (r *ReminderRepository) HasPermission(_ context.Context) bool {
	return true
}

// RequestPermission always grants for the server-side registry.
func (r *ReminderRepository) RequestPermission(_ context.Context) (bool, error) {
	return true, nil
}

// ListPending retrieves all pending reminders ordered by fire instant
func (r *ReminderRepository) ListPending(ctx context.Context) ([]model.Reminder, error) {
	query := `
		SELECT id, user_id, class, fire_at, title, body, data, created_at
		FROM pending_reminders
		ORDER BY fire_at
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("failed to list pending reminders", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		var rem model.Reminder
		err := rows.Scan(
			&rem.ID,
			&rem.UserID,
			&rem.Class,
			&rem.FireAt,
			&rem.Title,
			&rem.Body,
			&rem.Data,
			&rem.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan reminder", zap.Error(err))
			continue
		}
		reminders = append(reminders, rem)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating reminders", zap.Error(err))
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}

	return reminders, nil
}

// Register inserts a pending reminder, enforcing the pending cap
func (r *ReminderRepository) Register(ctx context.Context, rem model.Reminder) (string, error) {
	if rem.ID == "" {
		rem.ID = uuid.New().String()
	}
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now()
	}

	// The cap check and insert are not atomic; the cap is a soft platform
	// limit, not an integrity constraint.
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM pending_reminders`).Scan(&count); err != nil {
		r.logger.Error("failed to count pending reminders", zap.Error(err))
		return "", fmt.Errorf("failed to count pending reminders: %w", err)
	}
	if r.maxPending > 0 && count >= r.maxPending {
		return "", notify.ErrCapacityExceeded
	}

	query := `
		INSERT INTO pending_reminders (id, user_id, class, fire_at, title, body, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		rem.ID,
		rem.UserID,
		rem.Class,
		rem.FireAt,
		rem.Title,
		rem.Body,
		rem.Data,
		rem.CreatedAt,
	)

	if err != nil {
		r.logger.Error("failed to register reminder",
			zap.Error(err),
			zap.String("class", string(rem.Class)),
			zap.Time("fire_at", rem.FireAt),
		)
		return "", fmt.Errorf("failed to register reminder: %w", err)
	}

	return rem.ID, nil
}

// Cancel removes a pending reminder by identifier
func (r *ReminderRepository) Cancel(ctx context.Context, id string) error {
	query := `DELETE FROM pending_reminders WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.logger.Error("failed to cancel reminder",
			zap.Error(err),
			zap.String("reminder_id", id),
		)
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}

	return nil
}

// MaxPending returns the configured pending cap
func (r *ReminderRepository) MaxPending() int {
	return r.maxPending
}
