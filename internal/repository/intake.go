package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/pkg/model"
)

// IntakeRepository manages the day-keyed intake event log. Each event is
// identified by the (user, date, time slot, medication) triple; SetEvent
// overwrites, never duplicates.
type IntakeRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewIntakeRepository creates a new IntakeRepository
func NewIntakeRepository(db *pgxpool.Pool, logger *zap.Logger) *IntakeRepository {
	return &IntakeRepository{
		db:     db,
		logger: logger,
	}
}

// SetEvent upserts an intake event for the given triple
func (r *IntakeRepository) SetEvent(ctx context.Context, event *model.IntakeEvent) error {
	query := `
		INSERT INTO intake_events (
			id, user_id, date, time_slot, medication,
			taken, actual_time_taken, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id, date, time_slot, medication)
		DO UPDATE SET
			taken = EXCLUDED.taken,
			actual_time_taken = EXCLUDED.actual_time_taken,
			updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.UserID,
		event.DateKey,
		event.TimeSlot,
		event.Medication,
		event.Taken,
		event.ActualTimeTaken,
	)

	if err != nil {
		r.logger.Error("failed to set intake event",
			zap.Error(err),
			zap.String("user_id", event.UserID),
			zap.String("date", event.DateKey),
			zap.String("time_slot", event.TimeSlot),
			zap.String("medication", event.Medication),
		)
		return fmt.Errorf("failed to set intake event: %w", err)
	}

	return nil
}

// GetEventsForDay retrieves all intake events logged for a single date key
func (r *IntakeRepository) GetEventsForDay(ctx context.Context, userID, dateKey string) ([]model.IntakeEvent, error) {
	query := `
		SELECT id, user_id, date, time_slot, medication,
		       taken, actual_time_taken, updated_at
		FROM intake_events
		WHERE user_id = $1 AND date = $2
		ORDER BY time_slot, medication
	`

	rows, err := r.db.Query(ctx, query, userID, dateKey)
	if err != nil {
		r.logger.Error("failed to get intake events for day",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("date", dateKey),
		)
		return nil, fmt.Errorf("failed to get intake events for day: %w", err)
	}
	defer rows.Close()

	return scanIntakeEvents(rows, r.logger)
}

// GetEventsOnOrAfter retrieves all intake events dated on or after the given
// date key, ordered by date. Date keys are YYYY-MM-DD, so the comparison is
// a plain string comparison.
func (r *IntakeRepository) GetEventsOnOrAfter(ctx context.Context, userID, dateKey string) ([]model.IntakeEvent, error) {
	query := `
		SELECT id, user_id, date, time_slot, medication,
		       taken, actual_time_taken, updated_at
		FROM intake_events
		WHERE user_id = $1 AND date >= $2
		ORDER BY date, time_slot, medication
	`

	rows, err := r.db.Query(ctx, query, userID, dateKey)
	if err != nil {
		r.logger.Error("failed to get intake events",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("since", dateKey),
		)
		return nil, fmt.Errorf("failed to get intake events: %w", err)
	}
	defer rows.Close()

	return scanIntakeEvents(rows, r.logger)
}

func scanIntakeEvents(rows pgx.Rows, logger *zap.Logger) ([]model.IntakeEvent, error) {
	var events []model.IntakeEvent
	for rows.Next() {
		var ev model.IntakeEvent
		err := rows.Scan(
			&ev.ID,
			&ev.UserID,
			&ev.DateKey,
			&ev.TimeSlot,
			&ev.Medication,
			&ev.Taken,
			&ev.ActualTimeTaken,
			&ev.UpdatedAt,
		)
		if err != nil {
			logger.Error("failed to scan intake event", zap.Error(err))
			continue
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		logger.Error("error iterating intake events", zap.Error(err))
		return nil, fmt.Errorf("error iterating intake events: %w", err)
	}

	return events, nil
}
