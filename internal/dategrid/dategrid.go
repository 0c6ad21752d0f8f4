// Package dategrid provides the day-boundary and time-slot arithmetic shared
// by the adherence engine and the reminder scheduler.
package dategrid

import (
	"fmt"
	"sort"
	"time"
)

// DateKeyLayout is the canonical storage form for calendar dates.
const DateKeyLayout = "2006-01-02"

// InvalidRangeError reports a day-count request where end precedes start.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: end %s precedes start %s",
		e.End.Format(DateKeyLayout), e.Start.Format(DateKeyLayout))
}

// NormalizeToDayStart truncates t to midnight in its own location. Idempotent.
func NormalizeToDayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormatDateKey renders t's calendar date as YYYY-MM-DD.
func FormatDateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key back into midnight of that day in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// DaysElapsedInclusive counts the calendar days from start through end,
// counting both endpoints: DaysElapsedInclusive(d, d) == 1.
//
// Days are counted as civil days rather than 24h spans, so a DST transition
// inside the range cannot drop a day.
func DaysElapsedInclusive(start, end time.Time) (int, error) {
	s := NormalizeToDayStart(start)
	e := NormalizeToDayStart(end)
	if e.Before(s) {
		return 0, &InvalidRangeError{Start: s, End: e}
	}

	sy, sm, sd := s.Date()
	ey, em, ed := e.Date()
	su := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	eu := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)

	return int(eu.Sub(su)/(24*time.Hour)) + 1, nil
}

// TimeSlot is one entry of the fixed daily dose grid.
type TimeSlot struct {
	Hour   int
	Minute int
}

// ParseSlot parses "H:MM" or "HH:MM" into a TimeSlot.
func ParseSlot(s string) (TimeSlot, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return TimeSlot{}, fmt.Errorf("invalid time slot %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeSlot{}, fmt.Errorf("invalid time slot %q: out of range", s)
	}
	return TimeSlot{Hour: h, Minute: m}, nil
}

// String renders the slot as HH:MM, the form used in intake event keys.
func (s TimeSlot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// At returns the instant of this slot on day's calendar date, in day's location.
func (s TimeSlot) At(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, s.Hour, s.Minute, 0, 0, day.Location())
}

// WithMinuteOffset shifts the slot forward by n minutes, carrying into the
// hour and wrapping at midnight: minute' = (m+n) % 60, hour' = (h + (m+n)/60) % 24.
func (s TimeSlot) WithMinuteOffset(n int) TimeSlot {
	total := s.Minute + n
	return TimeSlot{
		Hour:   (s.Hour + total/60) % 24,
		Minute: total % 60,
	}
}

// Grid is the ordered set of daily dose times. Order is the declared schedule
// order; every active medication is expected once per slot per day.
type Grid []TimeSlot

// ParseGrid parses the configured slot strings, rejecting duplicates.
func ParseGrid(slots []string) (Grid, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("time slot grid must not be empty")
	}
	grid := make(Grid, 0, len(slots))
	seen := make(map[string]bool, len(slots))
	for _, raw := range slots {
		slot, err := ParseSlot(raw)
		if err != nil {
			return nil, err
		}
		if seen[slot.String()] {
			return nil, fmt.Errorf("duplicate time slot %q", slot.String())
		}
		seen[slot.String()] = true
		grid = append(grid, slot)
	}
	return grid, nil
}

// Strings returns the slots in declared order as HH:MM strings.
func (g Grid) Strings() []string {
	out := make([]string, len(g))
	for i, s := range g {
		out[i] = s.String()
	}
	return out
}

// Sorted returns a copy of the grid in chronological order. The intake day
// view presents slots by time of day regardless of declared order.
func (g Grid) Sorted() Grid {
	out := make(Grid, len(g))
	copy(out, g)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hour != out[j].Hour {
			return out[i].Hour < out[j].Hour
		}
		return out[i].Minute < out[j].Minute
	})
	return out
}
