package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/internal/dategrid"
	"github.com/vidaplena/adherence-backend/pkg/model"
)

var (
	// ErrDateBeforeStart indicates an intake toggle for a date before the
	// treatment anchor date.
	ErrDateBeforeStart = errors.New("date precedes treatment start date")

	// ErrFutureDate indicates an intake toggle for a date after today.
	ErrFutureDate = errors.New("cannot log intake for a future date")

	// ErrUnknownTimeSlot indicates a time slot outside the configured grid.
	ErrUnknownTimeSlot = errors.New("time slot is not in the daily grid")

	// ErrInactiveMedication indicates a toggle for a medication that is not
	// in the user's active set.
	ErrInactiveMedication = errors.New("medication is not active in profile")
)

// IntakeLogWriter persists intake events, overwriting per triple.
type IntakeLogWriter interface {
	SetEvent(ctx context.Context, event *model.IntakeEvent) error
}

// IntakeDayReader reads one day's worth of intake events.
type IntakeDayReader interface {
	GetEventsForDay(ctx context.Context, userID, dateKey string) ([]model.IntakeEvent, error)
}

// IntakeService handles dose logging and the per-day schedule view. It also
// fans out change signals so adherence recomputes on every write.
type IntakeService struct {
	profiles ProfileReader
	reader   IntakeDayReader
	writer   IntakeLogWriter
	grid     dategrid.Grid
	logger   *zap.Logger
	now      func() time.Time

	mu          sync.Mutex
	subscribers map[string]map[int]func()
	nextSubID   int
}

// NewIntakeService creates a new IntakeService over the given dose grid.
func NewIntakeService(profiles ProfileReader, reader IntakeDayReader, writer IntakeLogWriter, grid dategrid.Grid, logger *zap.Logger) *IntakeService {
	return &IntakeService{
		profiles:    profiles,
		reader:      reader,
		writer:      writer,
		grid:        grid,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[string]map[int]func()),
	}
}

// Subscribe registers fn to run after every intake change for userID.
// The returned function removes the subscription.
func (s *IntakeService) Subscribe(userID string, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribers[userID] == nil {
		s.subscribers[userID] = make(map[int]func())
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[userID][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers[userID], id)
	}
}

func (s *IntakeService) notify(userID string) {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subscribers[userID]))
	for _, fn := range s.subscribers[userID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ToggleIntake sets the taken state for one (date, slot, medication) triple.
// Marking taken records the wall-clock time; unmarking clears it. Toggles are
// rejected for dates before the treatment anchor and for future dates,
// matching what the tracker screen allows.
func (s *IntakeService) ToggleIntake(ctx context.Context, userID, dateKey, timeSlot, medication string, taken bool) (*model.IntakeEvent, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if medication == "" {
		return nil, fmt.Errorf("medication is required")
	}

	slot, err := dategrid.ParseSlot(timeSlot)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeSlot, timeSlot)
	}
	inGrid := false
	for _, g := range s.grid {
		if g == slot {
			inGrid = true
			break
		}
	}
	if !inGrid {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeSlot, timeSlot)
	}

	now := s.now()
	day, err := dategrid.ParseDateKey(dateKey, now.Location())
	if err != nil {
		return nil, err
	}

	today := dategrid.NormalizeToDayStart(now)
	if day.After(today) {
		return nil, fmt.Errorf("%w: %s", ErrFutureDate, dateKey)
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if start, _, err := ResolveStartDate(profile, now.Location()); err == nil && day.Before(start) {
		return nil, fmt.Errorf("%w: %s is before %s",
			ErrDateBeforeStart, dateKey, dategrid.FormatDateKey(start))
	}

	active := false
	for _, med := range profile.ActiveMedications {
		if med == medication {
			active = true
			break
		}
	}
	if !active {
		return nil, fmt.Errorf("%w: %s", ErrInactiveMedication, medication)
	}

	event := &model.IntakeEvent{
		ID:         uuid.New().String(),
		UserID:     userID,
		DateKey:    dateKey,
		TimeSlot:   slot.String(),
		Medication: medication,
		Taken:      taken,
		UpdatedAt:  now,
	}
	if taken {
		actual := now.Format("15:04:05")
		event.ActualTimeTaken = &actual
	}

	if err := s.writer.SetEvent(ctx, event); err != nil {
		s.logger.Error("failed to save intake event",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("date", dateKey),
			zap.String("time_slot", event.TimeSlot),
			zap.String("medication", medication),
		)
		return nil, fmt.Errorf("failed to save intake event: %w", err)
	}

	s.logger.Info("intake toggled",
		zap.String("user_id", userID),
		zap.String("date", dateKey),
		zap.String("time_slot", event.TimeSlot),
		zap.String("medication", medication),
		zap.Bool("taken", taken),
	)

	s.notify(userID)

	return event, nil
}

// GetDaySchedule returns the full slot × active-medication schedule for a
// date, joined with whatever has been logged, ordered by time of day.
func (s *IntakeService) GetDaySchedule(ctx context.Context, userID, dateKey string) ([]model.DayScheduleEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if _, err := dategrid.ParseDateKey(dateKey, s.now().Location()); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if len(profile.ActiveMedications) == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNoActiveMedications, userID)
	}

	events, err := s.reader.GetEventsForDay(ctx, userID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load intake events: %w", err)
	}

	logged := make(map[string]model.IntakeEvent, len(events))
	for _, ev := range events {
		logged[ev.TimeSlot+"|"+ev.Medication] = ev
	}

	meds := make([]string, len(profile.ActiveMedications))
	copy(meds, profile.ActiveMedications)
	sort.Strings(meds)

	var schedule []model.DayScheduleEntry
	for _, slot := range s.grid.Sorted() {
		for _, med := range meds {
			entry := model.DayScheduleEntry{
				TimeSlot:   slot.String(),
				Medication: med,
			}
			if ev, ok := logged[slot.String()+"|"+med]; ok {
				entry.Taken = ev.Taken
				entry.ActualTimeTaken = ev.ActualTimeTaken
			}
			schedule = append(schedule, entry)
		}
	}

	return schedule, nil
}
