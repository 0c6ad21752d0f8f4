package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/pkg/model"
)

// ContentRepository picks motivational messages per dimension. Rows carry a
// uniform random_sort value; a pick draws a random threshold and takes the
// first row at or above it, wrapping to the lowest row when the draw lands
// past the end. Uniform enough for message rotation without a full scan.
type ContentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
	rng    func() float64
}

// NewContentRepository creates a new ContentRepository
func NewContentRepository(db *pgxpool.Pool, logger *zap.Logger) *ContentRepository {
	return &ContentRepository{
		db:     db,
		logger: logger,
		rng:    rand.Float64,
	}
}

// PickRandom returns a random message for the dimension, or nil when the
// dimension has no content.
func (r *ContentRepository) PickRandom(ctx context.Context, dimension string) (*model.MotivationalMessage, error) {
	query := `
		SELECT id, dimension, message, random_sort
		FROM motivational_messages
		WHERE dimension = $1 AND random_sort >= $2
		ORDER BY random_sort
		LIMIT 1
	`

	threshold := r.rng()

	var msg model.MotivationalMessage
	err := r.db.QueryRow(ctx, query, dimension, threshold).Scan(
		&msg.ID,
		&msg.Dimension,
		&msg.Message,
		&msg.RandomSort,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		// Wrap around to the lowest-sorted row.
		fallback := `
			SELECT id, dimension, message, random_sort
			FROM motivational_messages
			WHERE dimension = $1
			ORDER BY random_sort
			LIMIT 1
		`
		err = r.db.QueryRow(ctx, fallback, dimension).Scan(
			&msg.ID,
			&msg.Dimension,
			&msg.Message,
			&msg.RandomSort,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
	}

	if err != nil {
		r.logger.Error("failed to pick motivational message",
			zap.Error(err),
			zap.String("dimension", dimension),
		)
		return nil, fmt.Errorf("failed to pick motivational message: %w", err)
	}

	return &msg, nil
}
