package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/pkg/model"
)

type MockIntakeLogWriter struct {
	mock.Mock
}

func (m *MockIntakeLogWriter) SetEvent(ctx context.Context, event *model.IntakeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockIntakeDayReader struct {
	mock.Mock
}

func (m *MockIntakeDayReader) GetEventsForDay(ctx context.Context, userID, dateKey string) ([]model.IntakeEvent, error) {
	args := m.Called(ctx, userID, dateKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IntakeEvent), args.Error(1)
}

func newTestIntakeService(t *testing.T, profiles *MockProfileReader, reader *MockIntakeDayReader, writer *MockIntakeLogWriter) *IntakeService {
	svc := NewIntakeService(profiles, reader, writer, testGrid(t), zap.NewNop())
	svc.now = fixedClock(t, "2024-03-15T18:00:00Z")
	return svc
}

func activeProfile(meds ...string) *model.Profile {
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	return &model.Profile{
		UserID:                 "user-1",
		ActiveMedications:      meds,
		LastMedicationChangeAt: &start,
	}
}

func TestToggleIntake_MarksTakenWithWallClockTime(t *testing.T) {
	profiles := new(MockProfileReader)
	writer := new(MockIntakeLogWriter)
	profiles.On("GetProfile", mock.Anything, "user-1").Return(activeProfile("Biktarvy"), nil)
	writer.On("SetEvent", mock.Anything, mock.Anything).Return(nil)

	svc := newTestIntakeService(t, profiles, nil, writer)

	event, err := svc.ToggleIntake(context.Background(), "user-1", "2024-03-15", "06:00", "Biktarvy", true)
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.True(t, event.Taken)
	require.NotNil(t, event.ActualTimeTaken)
	assert.Equal(t, "18:00:00", *event.ActualTimeTaken)

	writer.AssertCalled(t, "SetEvent", mock.Anything, mock.MatchedBy(func(ev *model.IntakeEvent) bool {
		return ev.DateKey == "2024-03-15" && ev.TimeSlot == "06:00" && ev.Medication == "Biktarvy" && ev.Taken
	}))
}

func TestToggleIntake_UnmarkClearsActualTime(t *testing.T) {
	profiles := new(MockProfileReader)
	writer := new(MockIntakeLogWriter)
	profiles.On("GetProfile", mock.Anything, "user-1").Return(activeProfile("Biktarvy"), nil)
	writer.On("SetEvent", mock.Anything, mock.Anything).Return(nil)

	svc := newTestIntakeService(t, profiles, nil, writer)

	event, err := svc.ToggleIntake(context.Background(), "user-1", "2024-03-15", "06:00", "Biktarvy", false)
	require.NoError(t, err)

	assert.False(t, event.Taken)
	assert.Nil(t, event.ActualTimeTaken)
}

func TestToggleIntake_Guards(t *testing.T) {
	tests := []struct {
		name        string
		dateKey     string
		timeSlot    string
		medication  string
		expectedErr error
	}{
		{
			name:        "slot outside the grid",
			dateKey:     "2024-03-15",
			timeSlot:    "07:30",
			medication:  "Biktarvy",
			expectedErr: ErrUnknownTimeSlot,
		},
		{
			name:        "unparseable slot",
			dateKey:     "2024-03-15",
			timeSlot:    "morning",
			medication:  "Biktarvy",
			expectedErr: ErrUnknownTimeSlot,
		},
		{
			name:        "future date",
			dateKey:     "2024-03-16",
			timeSlot:    "06:00",
			medication:  "Biktarvy",
			expectedErr: ErrFutureDate,
		},
		{
			name:        "date before treatment start",
			dateKey:     "2024-03-09",
			timeSlot:    "06:00",
			medication:  "Biktarvy",
			expectedErr: ErrDateBeforeStart,
		},
		{
			name:        "inactive medication",
			dateKey:     "2024-03-15",
			timeSlot:    "06:00",
			medication:  "Truvada",
			expectedErr: ErrInactiveMedication,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := new(MockProfileReader)
			writer := new(MockIntakeLogWriter)
			profiles.On("GetProfile", mock.Anything, "user-1").Return(activeProfile("Biktarvy"), nil)

			svc := newTestIntakeService(t, profiles, nil, writer)

			_, err := svc.ToggleIntake(context.Background(), "user-1", tt.dateKey, tt.timeSlot, tt.medication, true)
			assert.ErrorIs(t, err, tt.expectedErr)
			writer.AssertNotCalled(t, "SetEvent", mock.Anything, mock.Anything)
		})
	}
}

func TestToggleIntake_NotifiesSubscribers(t *testing.T) {
	profiles := new(MockProfileReader)
	writer := new(MockIntakeLogWriter)
	profiles.On("GetProfile", mock.Anything, "user-1").Return(activeProfile("Biktarvy"), nil)
	writer.On("SetEvent", mock.Anything, mock.Anything).Return(nil)

	svc := newTestIntakeService(t, profiles, nil, writer)

	notified := 0
	unsubscribe := svc.Subscribe("user-1", func() { notified++ })

	otherUser := 0
	svc.Subscribe("user-2", func() { otherUser++ })

	_, err := svc.ToggleIntake(context.Background(), "user-1", "2024-03-15", "06:00", "Biktarvy", true)
	require.NoError(t, err)

	assert.Equal(t, 1, notified)
	assert.Equal(t, 0, otherUser, "signals are scoped per user")

	unsubscribe()
	_, err = svc.ToggleIntake(context.Background(), "user-1", "2024-03-15", "14:00", "Biktarvy", true)
	require.NoError(t, err)
	assert.Equal(t, 1, notified, "no signal after unsubscribe")
}

func TestToggleIntake_NoSignalOnFailedWrite(t *testing.T) {
	profiles := new(MockProfileReader)
	writer := new(MockIntakeLogWriter)
	profiles.On("GetProfile", mock.Anything, "user-1").Return(activeProfile("Biktarvy"), nil)
	writer.On("SetEvent", mock.Anything, mock.Anything).Return(assert.AnError)

	svc := newTestIntakeService(t, profiles, nil, writer)

	notified := 0
	svc.Subscribe("user-1", func() { notified++ })

	_, err := svc.ToggleIntake(context.Background(), "user-1", "2024-03-15", "06:00", "Biktarvy", true)
	assert.Error(t, err)
	assert.Equal(t, 0, notified)
}

func TestGetDaySchedule_FullGridJoinedWithLog(t *testing.T) {
	profiles := new(MockProfileReader)
	reader := new(MockIntakeDayReader)
	profiles.On("GetProfile", mock.Anything, "user-1").Return(activeProfile("Truvada", "Biktarvy"), nil)

	actual := "06:12:00"
	reader.On("GetEventsForDay", mock.Anything, "user-1", "2024-03-15").Return([]model.IntakeEvent{
		{
			UserID:          "user-1",
			DateKey:         "2024-03-15",
			TimeSlot:        "06:00",
			Medication:      "Biktarvy",
			Taken:           true,
			ActualTimeTaken: &actual,
		},
	}, nil)

	svc := newTestIntakeService(t, profiles, reader, nil)

	schedule, err := svc.GetDaySchedule(context.Background(), "user-1", "2024-03-15")
	require.NoError(t, err)

	// 3 slots x 2 medications, slots ascending, medications alphabetical.
	require.Len(t, schedule, 6)
	assert.Equal(t, "06:00", schedule[0].TimeSlot)
	assert.Equal(t, "Biktarvy", schedule[0].Medication)
	assert.True(t, schedule[0].Taken)
	require.NotNil(t, schedule[0].ActualTimeTaken)
	assert.Equal(t, actual, *schedule[0].ActualTimeTaken)

	for _, entry := range schedule[1:] {
		assert.False(t, entry.Taken)
		assert.Nil(t, entry.ActualTimeTaken)
	}
	assert.Equal(t, "22:00", schedule[5].TimeSlot)
	assert.Equal(t, "Truvada", schedule[5].Medication)
}

func TestGetDaySchedule_RequiresActiveMedications(t *testing.T) {
	profiles := new(MockProfileReader)
	reader := new(MockIntakeDayReader)
	profiles.On("GetProfile", mock.Anything, "user-1").Return(&model.Profile{UserID: "user-1"}, nil)

	svc := newTestIntakeService(t, profiles, reader, nil)

	_, err := svc.GetDaySchedule(context.Background(), "user-1", "2024-03-15")
	assert.ErrorIs(t, err, ErrNoActiveMedications)
}

func TestGetDaySchedule_RejectsBadDateKey(t *testing.T) {
	svc := newTestIntakeService(t, new(MockProfileReader), new(MockIntakeDayReader), nil)

	_, err := svc.GetDaySchedule(context.Background(), "user-1", "15-03-2024")
	assert.Error(t, err)
}

func TestGetDaySchedule_ResolvesDatesInClockLocation(t *testing.T) {
	profiles := new(MockProfileReader)
	reader := new(MockIntakeDayReader)
	profiles.On("GetProfile", mock.Anything, "user-1").Return(activeProfile("Biktarvy"), nil)
	reader.On("GetEventsForDay", mock.Anything, "user-1", "2024-03-15").
		Return([]model.IntakeEvent{}, nil)

	svc := NewIntakeService(profiles, reader, nil, testGrid(t), zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2024, 3, 15, 18, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))
	}

	schedule, err := svc.GetDaySchedule(context.Background(), "user-1", "2024-03-15")
	require.NoError(t, err)
	assert.Len(t, schedule, 3)
}
