package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/pkg/model"
)

func TestProperty_ExpectedDosesProduct(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("expected doses equal medications x slots x days", prop.ForAll(
		func(meds, slots, days int) bool {
			return ExpectedDoses(meds, slots, days) == meds*slots*days
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 6),
		gen.IntRange(1, 365),
	))

	properties.Property("expected doses never decrease as days advance", prop.ForAll(
		func(meds, slots, days, extra int) bool {
			return ExpectedDoses(meds, slots, days+extra) >= ExpectedDoses(meds, slots, days)
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 6),
		gen.IntRange(1, 365),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_TakenDosesFilteredByActiveSet(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("only taken doses of active medications count", prop.ForAll(
		func(activeTaken, activeNotTaken, inactiveTaken int) bool {
			active := []string{"med-active"}

			var events []model.IntakeEvent
			for i := 0; i < activeTaken; i++ {
				events = append(events, model.IntakeEvent{Medication: "med-active", Taken: true})
			}
			for i := 0; i < activeNotTaken; i++ {
				events = append(events, model.IntakeEvent{Medication: "med-active", Taken: false})
			}
			for i := 0; i < inactiveTaken; i++ {
				events = append(events, model.IntakeEvent{Medication: "med-retired", Taken: true})
			}

			return CountTakenDoses(events, active) == activeTaken
		},
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
	))

	properties.Property("taken count is bounded by event count", prop.ForAll(
		func(medIdx []int, takenFlags []bool) bool {
			names := []string{"a", "b", "c"}
			active := []string{"a", "b"}

			n := len(medIdx)
			if len(takenFlags) < n {
				n = len(takenFlags)
			}

			events := make([]model.IntakeEvent, 0, n)
			for i := 0; i < n; i++ {
				events = append(events, model.IntakeEvent{
					Medication: names[((medIdx[i]%3)+3)%3],
					Taken:      takenFlags[i],
				})
			}

			taken := CountTakenDoses(events, active)
			return taken >= 0 && taken <= len(events)
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestProperty_AdherenceRatioConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("summary fields are mutually consistent", prop.ForAll(
		func(medCount, daysBack, takenPerDay int) bool {
			meds := make([]string, medCount)
			for i := range meds {
				meds[i] = fmt.Sprintf("med-%d", i)
			}

			now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
			start := now.AddDate(0, 0, -daysBack)

			var events []model.IntakeEvent
			for d := 0; d <= daysBack; d++ {
				day := start.AddDate(0, 0, d)
				for i := 0; i < takenPerDay && i < medCount; i++ {
					events = append(events, model.IntakeEvent{
						DateKey:    day.Format("2006-01-02"),
						TimeSlot:   "06:00",
						Medication: meds[i],
						Taken:      true,
					})
				}
			}

			profiles := new(MockProfileReader)
			intakes := new(MockIntakeLogReader)
			profiles.On("GetProfile", mock.Anything, "user-1").Return(&model.Profile{
				UserID:                 "user-1",
				ActiveMedications:      meds,
				LastMedicationChangeAt: &start,
			}, nil)
			intakes.On("GetEventsOnOrAfter", mock.Anything, "user-1", mock.Anything).Return(events, nil)

			svc := NewAdherenceService(profiles, intakes, nil, testGrid(t), zap.NewNop())
			svc.now = func() time.Time { return now }

			summary, err := svc.ComputeAdherence(context.Background(), "user-1")
			if err != nil {
				t.Logf("ComputeAdherence failed: %v", err)
				return false
			}

			if summary.DaysElapsed != daysBack+1 {
				t.Logf("expected %d elapsed days, got %d", daysBack+1, summary.DaysElapsed)
				return false
			}
			if summary.ExpectedDoses != medCount*3*(daysBack+1) {
				t.Logf("unexpected expected dose count: %d", summary.ExpectedDoses)
				return false
			}
			if summary.TakenDoses != len(events) {
				t.Logf("expected %d taken, got %d", len(events), summary.TakenDoses)
				return false
			}
			if summary.MissedDoses != summary.ExpectedDoses-summary.TakenDoses {
				return false
			}

			want := float64(summary.TakenDoses) / float64(summary.ExpectedDoses)
			diff := summary.AdherenceRatio - want
			return diff < 1e-9 && diff > -1e-9
		},
		gen.IntRange(1, 5),
		gen.IntRange(0, 60),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
