package model

import "time"

// Profile represents the slice of a user profile the adherence engine consumes.
// ActiveMedications holds the currently selected medication identifiers; the
// profile screens own the rest of the record.
type Profile struct {
	UserID                 string     `json:"user_id"`
	ActiveMedications      []string   `json:"active_medications"`
	LastMedicationChangeAt *time.Time `json:"last_medication_change_at,omitempty"`
	CreatedAt              *time.Time `json:"created_at,omitempty"`
}

// IntakeEvent is a single dose record, identified by the
// (date, time slot, medication) triple. Later writes for the same triple
// overwrite the earlier state.
type IntakeEvent struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	DateKey         string    `json:"date"` // YYYY-MM-DD
	TimeSlot        string    `json:"time_slot"`
	Medication      string    `json:"medication"`
	Taken           bool      `json:"taken"`
	ActualTimeTaken *string   `json:"actual_time_taken,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DayScheduleEntry is one row of the per-day intake view: a slot/medication
// pair joined with whatever the user has logged for it.
type DayScheduleEntry struct {
	TimeSlot        string  `json:"time_slot"`
	Medication      string  `json:"medication"`
	Taken           bool    `json:"taken"`
	ActualTimeTaken *string `json:"actual_time_taken,omitempty"`
}

// StartDateAnchor tags which fallback resolved the treatment start date.
type StartDateAnchor string

const (
	AnchorMedicationChange StartDateAnchor = "medication_change"
	AnchorProfileCreation  StartDateAnchor = "profile_creation"
	AnchorUnresolved       StartDateAnchor = "unresolved"
)

// AdherenceSummary is the computed adherence state for a user as of today.
// AdherenceRatio is taken/expected and is deliberately not clamped; logging
// more doses than scheduled pushes it above 1.
type AdherenceSummary struct {
	UserID         string          `json:"user_id"`
	StartDate      string          `json:"start_date"` // YYYY-MM-DD
	Anchor         StartDateAnchor `json:"start_date_anchor"`
	DaysElapsed    int             `json:"days_elapsed"`
	ActiveMedCount int             `json:"active_medication_count"`
	SlotsPerDay    int             `json:"slots_per_day"`
	ExpectedDoses  int             `json:"expected_doses"`
	TakenDoses     int             `json:"taken_doses"`
	MissedDoses    int             `json:"missed_doses"`
	AdherenceRatio float64         `json:"adherence_ratio"`
	ComputedAt     time.Time       `json:"computed_at"`
}

// ReminderClass distinguishes reminder families so re-planning one family
// never cancels another's pending notifications.
type ReminderClass string

const (
	ReminderClassMedication   ReminderClass = "medication"
	ReminderClassMotivation   ReminderClass = "motivation"
	ReminderClassDailyCheckup ReminderClass = "daily_checkup"
)

// Reminder is a pending local notification registration.
type Reminder struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Class     ReminderClass     `json:"class"`
	FireAt    time.Time         `json:"fire_at"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// MotivationalMessage is one piece of content from the motivational store.
// RandomSort supports the uniform random pick (see repository.ContentRepository).
type MotivationalMessage struct {
	ID         string  `json:"id"`
	Dimension  string  `json:"dimension"`
	Message    string  `json:"message"`
	RandomSort float64 `json:"random_sort"`
}
