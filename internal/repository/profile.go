package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/pkg/model"
)

// ErrProfileNotFound indicates no profile record exists for the user.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository reads the profile slice the adherence engine needs. The
// profile itself is written by the profile screens; this repository is
// read-only to the core.
type ProfileRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *pgxpool.Pool, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// GetProfile retrieves the active medication set and anchor timestamps for a user
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	query := `
		SELECT user_id, active_medications, last_medication_change_at, created_at
		FROM profiles
		WHERE user_id = $1
	`

	var p model.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.ActiveMedications,
		&p.LastMedicationChangeAt,
		&p.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
		}
		r.logger.Error("failed to get profile", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}
