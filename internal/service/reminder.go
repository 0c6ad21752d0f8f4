package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/internal/dategrid"
	"github.com/vidaplena/adherence-backend/internal/notify"
	"github.com/vidaplena/adherence-backend/pkg/model"
)

// ContentPicker supplies random motivational content per dimension; nil
// message means the dimension has no content.
type ContentPicker interface {
	PickRandom(ctx context.Context, dimension string) (*model.MotivationalMessage, error)
}

// ReminderItem is one piece of content to register at a slot. MinuteOffset
// shifts the fire time within the slot with carry arithmetic, so several
// items stacked on the same base slot fire a minute apart.
type ReminderItem struct {
	Class        model.ReminderClass
	Title        string
	Body         string
	Data         map[string]string
	MinuteOffset int
}

// ReminderGenerator produces the items for one (day offset, slot) cell of the
// planning horizon.
type ReminderGenerator interface {
	// Classes lists the reminder families this generator owns. A reschedule
	// cancels exactly these classes' pending entries and no others.
	Classes() []model.ReminderClass

	// Items returns the content for the cell. A cell error is logged and the
	// cell skipped; generation continues.
	Items(ctx context.Context, dayOffset int, slot dategrid.TimeSlot) ([]ReminderItem, error)
}

// SkippedReminder records one reminder that was not registered and why.
type SkippedReminder struct {
	FireAt time.Time `json:"fire_at"`
	Reason string    `json:"reason"`
}

// RescheduleResult reports the outcome of a reschedule: the new
// registrations, how many prior same-class entries were cancelled, what was
// skipped, and how many tail candidates the pending cap cut off.
type RescheduleResult struct {
	Registered []string          `json:"registered"`
	Cancelled  int               `json:"cancelled"`
	Skipped    []SkippedReminder `json:"skipped,omitempty"`
	Truncated  int               `json:"truncated"`
}

// Partial reports whether the plan was only partially applied.
func (r *RescheduleResult) Partial() bool {
	return r.Truncated > 0 || len(r.Skipped) > 0
}

// ReminderScheduler plans bounded-horizon reminder sets against a
// notification registry. Cancel-then-generate is best effort, not
// transactional; recovery from a partial run is simply rescheduling again.
// Concurrent reschedules of the same class must be serialized by the caller;
// different classes are independent.
type ReminderScheduler struct {
	registry notify.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// NewReminderScheduler creates a new ReminderScheduler
func NewReminderScheduler(registry notify.Registry, logger *zap.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Reschedule replaces the user's reminders in the generator's classes with a
// fresh plan: for each day in the horizon, for each slot, every generated item
// strictly in the future is registered. Other users' entries and the user's
// entries in other classes are untouched.
//
// Permission is checked first; denial returns notify.ErrPermissionDenied
// before anything is cancelled or registered. The registry's pending cap is
// a soft limit: candidates beyond the remaining budget are dropped from the
// tail (furthest-future first) and counted in RescheduleResult.Truncated.
func (s *ReminderScheduler) Reschedule(ctx context.Context, userID string, gen ReminderGenerator, horizonDays int, slots dategrid.Grid) (*RescheduleResult, error) {
	if horizonDays <= 0 {
		return nil, fmt.Errorf("horizon days must be positive")
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("time slot grid must not be empty")
	}

	if !s.registry.HasPermission(ctx) {
		granted, err := s.registry.RequestPermission(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to request notification permission: %w", err)
		}
		if !granted {
			return nil, notify.ErrPermissionDenied
		}
	}

	owned := make(map[model.ReminderClass]bool, len(gen.Classes()))
	for _, class := range gen.Classes() {
		owned[class] = true
	}

	// Cancellation phase: clear this user's entries in this generator's
	// classes only. The registry is shared across users, so other users'
	// reminders are never touched and never consume this user's budget.
	pending, err := s.registry.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reminders: %w", err)
	}

	result := &RescheduleResult{}
	surviving := 0
	for _, rem := range pending {
		if rem.UserID != userID {
			continue
		}
		if !owned[rem.Class] {
			surviving++
			continue
		}
		if err := s.registry.Cancel(ctx, rem.ID); err != nil {
			s.logger.Warn("failed to cancel stale reminder",
				zap.Error(err),
				zap.String("reminder_id", rem.ID),
				zap.String("class", string(rem.Class)),
			)
			continue
		}
		result.Cancelled++
	}

	// Generation phase. Candidates accumulate in day order, so truncating
	// the tail drops the furthest-future instants first.
	now := s.now()
	today := dategrid.NormalizeToDayStart(now)

	var candidates []model.Reminder
	for day := 0; day < horizonDays; day++ {
		date := today.AddDate(0, 0, day)
		for _, slot := range slots {
			items, err := gen.Items(ctx, day, slot)
			if err != nil {
				s.logger.Warn("reminder generation failed for cell",
					zap.Error(err),
					zap.Int("day_offset", day),
					zap.String("slot", slot.String()),
				)
				result.Skipped = append(result.Skipped, SkippedReminder{
					FireAt: slot.At(date),
					Reason: err.Error(),
				})
				continue
			}
			for _, item := range items {
				fireAt := slot.WithMinuteOffset(item.MinuteOffset).At(date)
				if !fireAt.After(now) {
					continue
				}
				candidates = append(candidates, model.Reminder{
					UserID: userID,
					Class:  item.Class,
					FireAt: fireAt,
					Title:  item.Title,
					Body:   item.Body,
					Data:   item.Data,
				})
			}
		}
	}

	budget := s.registry.MaxPending() - surviving
	if budget < 0 {
		budget = 0
	}
	if len(candidates) > budget {
		result.Truncated = len(candidates) - budget
		candidates = candidates[:budget]
		s.logger.Warn("reminder plan truncated at pending cap",
			zap.Int("cap", s.registry.MaxPending()),
			zap.Int("surviving_other_classes", surviving),
			zap.Int("truncated", result.Truncated),
		)
	}

	for _, rem := range candidates {
		id, err := s.registry.Register(ctx, rem)
		if err != nil {
			s.logger.Warn("failed to register reminder",
				zap.Error(err),
				zap.String("class", string(rem.Class)),
				zap.Time("fire_at", rem.FireAt),
			)
			result.Skipped = append(result.Skipped, SkippedReminder{
				FireAt: rem.FireAt,
				Reason: err.Error(),
			})
			continue
		}
		result.Registered = append(result.Registered, id)
	}

	s.logger.Info("reminders rescheduled",
		zap.String("user_id", userID),
		zap.Int("registered", len(result.Registered)),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("truncated", result.Truncated),
	)

	return result, nil
}

// ListByClass returns the pending reminders of one class, in fire order.
func (s *ReminderScheduler) ListByClass(ctx context.Context, class model.ReminderClass) ([]model.Reminder, error) {
	pending, err := s.registry.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reminders: %w", err)
	}

	var out []model.Reminder
	for _, rem := range pending {
		if rem.Class == class {
			out = append(out, rem)
		}
	}
	return out, nil
}

// medicationGenerator emits one reminder per active medication per slot.
type medicationGenerator struct {
	medications []string
}

func (g *medicationGenerator) Classes() []model.ReminderClass {
	return []model.ReminderClass{model.ReminderClassMedication}
}

func (g *medicationGenerator) Items(_ context.Context, _ int, slot dategrid.TimeSlot) ([]ReminderItem, error) {
	items := make([]ReminderItem, 0, len(g.medications))
	for _, med := range g.medications {
		items = append(items, ReminderItem{
			Class: model.ReminderClassMedication,
			Title: "Medication reminder",
			Body:  "Time to take: " + med,
			Data: map[string]string{
				"medication": med,
				"time_slot":  slot.String(),
			},
		})
	}
	return items, nil
}

// motivationalGenerator emits one random message per content dimension plus a
// trailing daily check-up nudge. Dimension order reshuffles every day so the
// same category doesn't always fire first; items stack a minute apart from
// the base slot.
type motivationalGenerator struct {
	dimensions []string
	picker     ContentPicker
	shuffle    func([]string)
	logger     *zap.Logger
}

func (g *motivationalGenerator) Classes() []model.ReminderClass {
	return []model.ReminderClass{
		model.ReminderClassMotivation,
		model.ReminderClassDailyCheckup,
	}
}

func (g *motivationalGenerator) Items(ctx context.Context, _ int, _ dategrid.TimeSlot) ([]ReminderItem, error) {
	dims := make([]string, len(g.dimensions))
	copy(dims, g.dimensions)
	g.shuffle(dims)

	var items []ReminderItem
	for i, dim := range dims {
		msg, err := g.picker.PickRandom(ctx, dim)
		if err != nil {
			g.logger.Warn("failed to pick motivational content",
				zap.Error(err),
				zap.String("dimension", dim),
			)
			continue
		}
		if msg == nil {
			continue
		}
		items = append(items, ReminderItem{
			Class: model.ReminderClassMotivation,
			Title: dim,
			Body:  msg.Message,
			Data: map[string]string{
				"dimension":   dim,
				"resource_id": msg.ID,
			},
			MinuteOffset: i,
		})
	}

	items = append(items, ReminderItem{
		Class:        model.ReminderClassDailyCheckup,
		Title:        "Daily check-up",
		Body:         "Time for your wellbeing check-in!",
		MinuteOffset: len(dims),
	})

	return items, nil
}

// ReminderPlanner wires the scheduler to profiles and content: it builds the
// right generator for each reminder family and runs the reschedule.
type ReminderPlanner struct {
	scheduler   *ReminderScheduler
	profiles    ProfileReader
	picker      ContentPicker
	grid        dategrid.Grid
	baseSlot    dategrid.TimeSlot
	dimensions  []string
	horizonDays int
	logger      *zap.Logger
	shuffle     func([]string)
}

// NewReminderPlanner creates a new ReminderPlanner
func NewReminderPlanner(scheduler *ReminderScheduler, profiles ProfileReader, picker ContentPicker, grid dategrid.Grid, baseSlot dategrid.TimeSlot, dimensions []string, horizonDays int, logger *zap.Logger) *ReminderPlanner {
	return &ReminderPlanner{
		scheduler:   scheduler,
		profiles:    profiles,
		picker:      picker,
		grid:        grid,
		baseSlot:    baseSlot,
		dimensions:  dimensions,
		horizonDays: horizonDays,
		logger:      logger,
		shuffle: func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		},
	}
}

// RescheduleMedicationReminders rebuilds the medication reminder plan from
// the user's current active medication set.
func (p *ReminderPlanner) RescheduleMedicationReminders(ctx context.Context, userID string) (*RescheduleResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	profile, err := p.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if len(profile.ActiveMedications) == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNoActiveMedications, userID)
	}

	gen := &medicationGenerator{medications: profile.ActiveMedications}
	return p.scheduler.Reschedule(ctx, userID, gen, p.horizonDays, p.grid)
}

// RescheduleMotivationalMessages rebuilds the motivational and daily
// check-up reminder plans. Medication reminders are untouched.
func (p *ReminderPlanner) RescheduleMotivationalMessages(ctx context.Context, userID string) (*RescheduleResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	gen := &motivationalGenerator{
		dimensions: p.dimensions,
		picker:     p.picker,
		shuffle:    p.shuffle,
		logger:     p.logger,
	}
	return p.scheduler.Reschedule(ctx, userID, gen, p.horizonDays, dategrid.Grid{p.baseSlot})
}
