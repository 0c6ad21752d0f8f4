package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/internal/dategrid"
	"github.com/vidaplena/adherence-backend/pkg/model"
)

// Named precondition violations, distinct from collaborator I/O failures.
// Callers surface these as "incomplete profile" states, never as crashes.
var (
	// ErrNoActiveMedications indicates the profile has no active medication
	// selected, so there is no plan to measure adherence against.
	ErrNoActiveMedications = errors.New("no active medications in profile")

	// ErrUnresolvedStartDate indicates neither a medication-change timestamp
	// nor a profile-creation timestamp could anchor the computation.
	ErrUnresolvedStartDate = errors.New("treatment start date could not be resolved")

	// ErrStartDateInFuture indicates the resolved start date is after today.
	// This is a caller precondition violation and is never silently clamped
	// to zero elapsed days.
	ErrStartDateInFuture = errors.New("treatment start date is after today")
)

// ProfileReader supplies the profile slice adherence computation depends on.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// IntakeLogReader supplies logged intake events from a date key onward.
type IntakeLogReader interface {
	GetEventsOnOrAfter(ctx context.Context, userID, dateKey string) ([]model.IntakeEvent, error)
}

// IntakeChangeFeed pushes a signal whenever a user's intake log changes.
// Unsubscribe via the returned function.
type IntakeChangeFeed interface {
	Subscribe(userID string, fn func()) func()
}

// AdherenceService computes adherence statistics for the active medication
// set. The computation is stateless and re-derives everything from the
// profile and the intake log on every call; nothing is patched incrementally.
type AdherenceService struct {
	profiles ProfileReader
	intakes  IntakeLogReader
	feed     IntakeChangeFeed
	grid     dategrid.Grid
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdherenceService creates a new AdherenceService over the given dose grid.
func NewAdherenceService(profiles ProfileReader, intakes IntakeLogReader, feed IntakeChangeFeed, grid dategrid.Grid, logger *zap.Logger) *AdherenceService {
	return &AdherenceService{
		profiles: profiles,
		intakes:  intakes,
		feed:     feed,
		grid:     grid,
		logger:   logger,
		now:      time.Now,
	}
}

// ResolveStartDate applies the anchor priority chain: last medication change,
// then profile creation, else unresolved. The returned date is normalized to
// midnight in loc.
func ResolveStartDate(p *model.Profile, loc *time.Location) (time.Time, model.StartDateAnchor, error) {
	if p.LastMedicationChangeAt != nil {
		return dategrid.NormalizeToDayStart(p.LastMedicationChangeAt.In(loc)), model.AnchorMedicationChange, nil
	}
	if p.CreatedAt != nil {
		return dategrid.NormalizeToDayStart(p.CreatedAt.In(loc)), model.AnchorProfileCreation, nil
	}
	return time.Time{}, model.AnchorUnresolved, ErrUnresolvedStartDate
}

// ExpectedDoses is the scheduled dose count for the period:
// active medications × daily slots × elapsed days inclusive.
func ExpectedDoses(activeMedCount, slotsPerDay, daysElapsed int) int {
	return activeMedCount * slotsPerDay * daysElapsed
}

// CountTakenDoses counts events marked taken whose medication is in the
// current active set. Doses logged for since-deactivated medications are
// excluded even for dates when they were active; the engine measures against
// the current plan, not the historical one.
func CountTakenDoses(events []model.IntakeEvent, activeMedications []string) int {
	active := make(map[string]bool, len(activeMedications))
	for _, med := range activeMedications {
		active[med] = true
	}

	taken := 0
	for _, ev := range events {
		if ev.Taken && active[ev.Medication] {
			taken++
		}
	}
	return taken
}

// ComputeAdherence derives the adherence summary for a user as of today.
//
// Preconditions: the profile must have at least one active medication and a
// resolvable start date not after today; violations return the named errors
// above. Collaborator read failures are returned wrapped and are recoverable.
func (s *AdherenceService) ComputeAdherence(ctx context.Context, userID string) (*model.AdherenceSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load profile for adherence",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if len(profile.ActiveMedications) == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNoActiveMedications, userID)
	}

	now := s.now()
	today := dategrid.NormalizeToDayStart(now)

	startDate, anchor, err := ResolveStartDate(profile, now.Location())
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}

	if startDate.After(today) {
		return nil, fmt.Errorf("%w: start %s, today %s",
			ErrStartDateInFuture,
			dategrid.FormatDateKey(startDate),
			dategrid.FormatDateKey(today),
		)
	}

	daysElapsed, err := dategrid.DaysElapsedInclusive(startDate, today)
	if err != nil {
		return nil, fmt.Errorf("failed to count elapsed days: %w", err)
	}

	startKey := dategrid.FormatDateKey(startDate)
	events, err := s.intakes.GetEventsOnOrAfter(ctx, userID, startKey)
	if err != nil {
		s.logger.Error("failed to load intake events for adherence",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("since", startKey),
		)
		return nil, fmt.Errorf("failed to load intake events: %w", err)
	}

	expected := ExpectedDoses(len(profile.ActiveMedications), len(s.grid), daysElapsed)
	taken := CountTakenDoses(events, profile.ActiveMedications)

	ratio := 0.0
	if expected > 0 {
		// Not clamped: re-logged doses can push the ratio above 1.
		ratio = float64(taken) / float64(expected)
	}

	missed := expected - taken
	if missed < 0 {
		missed = 0
	}

	summary := &model.AdherenceSummary{
		UserID:         userID,
		StartDate:      startKey,
		Anchor:         anchor,
		DaysElapsed:    daysElapsed,
		ActiveMedCount: len(profile.ActiveMedications),
		SlotsPerDay:    len(s.grid),
		ExpectedDoses:  expected,
		TakenDoses:     taken,
		MissedDoses:    missed,
		AdherenceRatio: ratio,
		ComputedAt:     now,
	}

	s.logger.Info("adherence computed",
		zap.String("user_id", userID),
		zap.String("start_date", startKey),
		zap.String("anchor", string(anchor)),
		zap.Int("expected", expected),
		zap.Int("taken", taken),
	)

	return summary, nil
}

// WatchAdherence emits a freshly computed summary now and after every intake
// log change, until ctx is cancelled. Each recomputation starts from scratch;
// failures are logged and skipped, and the watch stays alive.
func (s *AdherenceService) WatchAdherence(ctx context.Context, userID string) (<-chan model.AdherenceSummary, error) {
	if s.feed == nil {
		return nil, fmt.Errorf("no intake change feed configured")
	}

	out := make(chan model.AdherenceSummary, 1)
	changed := make(chan struct{}, 1)

	unsubscribe := s.feed.Subscribe(userID, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	emit := func() {
		summary, err := s.ComputeAdherence(ctx, userID)
		if err != nil {
			s.logger.Warn("adherence recomputation failed",
				zap.Error(err),
				zap.String("user_id", userID),
			)
			return
		}
		select {
		case out <- *summary:
		case <-ctx.Done():
		}
	}

	go func() {
		defer unsubscribe()
		defer close(out)

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				emit()
			}
		}
	}()

	return out, nil
}
