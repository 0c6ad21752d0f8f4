package dategrid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeToDayStart(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*60*60)
	in := time.Date(2024, 3, 15, 18, 42, 57, 123456, loc)

	got := NormalizeToDayStart(in)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, loc), got)
	assert.Equal(t, got, NormalizeToDayStart(got), "normalization should be idempotent")
	assert.Equal(t, loc, got.Location(), "location should be preserved")
}

func TestFormatDateKey_RoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*60*60)

	tests := []struct {
		name string
		in   time.Time
		key  string
	}{
		{"plain date", time.Date(2024, 3, 15, 14, 0, 0, 0, loc), "2024-03-15"},
		{"single digit padding", time.Date(2024, 1, 2, 0, 0, 0, 0, loc), "2024-01-02"},
		{"leap day", time.Date(2024, 2, 29, 23, 59, 59, 0, loc), "2024-02-29"},
		{"year rollover", time.Date(2023, 12, 31, 23, 0, 0, 0, loc), "2023-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, FormatDateKey(tt.in))

			parsed, err := ParseDateKey(tt.key, loc)
			require.NoError(t, err)
			assert.Equal(t, NormalizeToDayStart(tt.in), parsed)
		})
	}
}

func TestParseDateKey_Invalid(t *testing.T) {
	for _, key := range []string{"", "20240315", "2024-13-01", "15-03-2024", "2024-02-30"} {
		_, err := ParseDateKey(key, time.UTC)
		assert.Error(t, err, "key %q should not parse", key)
	}
}

func TestDaysElapsedInclusive(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"same day", day(2024, 6, 10), day(2024, 6, 10), 1},
		{"adjacent days", day(2024, 6, 10), day(2024, 6, 11), 2},
		{"two days back", day(2024, 6, 8), day(2024, 6, 10), 3},
		{"month rollover", day(2024, 1, 31), day(2024, 2, 1), 2},
		{"year rollover", day(2023, 12, 30), day(2024, 1, 2), 4},
		{"leap february", day(2024, 2, 28), day(2024, 3, 1), 3},
		{"non-leap february", day(2023, 2, 28), day(2023, 3, 1), 2},
		{"full leap year", day(2024, 1, 1), day(2024, 12, 31), 366},
		{"full non-leap year", day(2023, 1, 1), day(2023, 12, 31), 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DaysElapsedInclusive(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDaysElapsedInclusive_IgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2024, 6, 10, 23, 59, 0, 0, time.UTC)
	end := time.Date(2024, 6, 11, 0, 1, 0, 0, time.UTC)

	got, err := DaysElapsedInclusive(start, end)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestDaysElapsedInclusive_AcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-10 is the spring-forward date; the civil span is still 3 days
	// even though only 71 hours elapse between the midnights.
	start := time.Date(2024, 3, 9, 12, 0, 0, 0, ny)
	end := time.Date(2024, 3, 11, 12, 0, 0, 0, ny)

	got, err := DaysElapsedInclusive(start, end)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	// Fall-back (2024-11-03) likewise must not double-count.
	start = time.Date(2024, 11, 2, 12, 0, 0, 0, ny)
	end = time.Date(2024, 11, 4, 12, 0, 0, 0, ny)

	got, err = DaysElapsedInclusive(start, end)
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestDaysElapsedInclusive_InvalidRange(t *testing.T) {
	start := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	_, err := DaysElapsedInclusive(start, end)
	require.Error(t, err)

	var rangeErr *InvalidRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, start, rangeErr.End.AddDate(0, 0, 1))
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeSlot
		wantErr bool
	}{
		{in: "6:00", want: TimeSlot{Hour: 6, Minute: 0}},
		{in: "06:00", want: TimeSlot{Hour: 6, Minute: 0}},
		{in: "14:00", want: TimeSlot{Hour: 14, Minute: 0}},
		{in: "22:30", want: TimeSlot{Hour: 22, Minute: 30}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSlot(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeSlot_String(t *testing.T) {
	assert.Equal(t, "06:00", TimeSlot{Hour: 6}.String())
	assert.Equal(t, "22:05", TimeSlot{Hour: 22, Minute: 5}.String())
}

func TestTimeSlot_At(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*60*60)
	day := time.Date(2024, 3, 15, 9, 30, 0, 0, loc)

	got := TimeSlot{Hour: 22, Minute: 0}.At(day)
	assert.Equal(t, time.Date(2024, 3, 15, 22, 0, 0, 0, loc), got)
}

func TestTimeSlot_WithMinuteOffset(t *testing.T) {
	tests := []struct {
		name   string
		slot   TimeSlot
		offset int
		want   TimeSlot
	}{
		{"no carry", TimeSlot{Hour: 9, Minute: 15}, 3, TimeSlot{Hour: 9, Minute: 18}},
		{"minute carry into hour", TimeSlot{Hour: 9, Minute: 58}, 4, TimeSlot{Hour: 10, Minute: 2}},
		{"multi hour carry", TimeSlot{Hour: 9, Minute: 0}, 125, TimeSlot{Hour: 11, Minute: 5}},
		{"midnight wrap", TimeSlot{Hour: 23, Minute: 59}, 2, TimeSlot{Hour: 0, Minute: 1}},
		{"zero offset", TimeSlot{Hour: 6, Minute: 0}, 0, TimeSlot{Hour: 6, Minute: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.slot.WithMinuteOffset(tt.offset))
		})
	}
}

func TestParseGrid(t *testing.T) {
	grid, err := ParseGrid([]string{"6:00", "14:00", "22:00"})
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Equal(t, []string{"06:00", "14:00", "22:00"}, grid.Strings())

	_, err = ParseGrid(nil)
	assert.Error(t, err, "empty grid should be rejected")

	_, err = ParseGrid([]string{"6:00", "06:00"})
	assert.Error(t, err, "duplicate slots should be rejected")

	_, err = ParseGrid([]string{"6:00", "25:00"})
	assert.Error(t, err)
}

func TestGrid_Sorted(t *testing.T) {
	grid, err := ParseGrid([]string{"22:00", "6:00", "14:00"})
	require.NoError(t, err)

	sorted := grid.Sorted()
	assert.Equal(t, []string{"06:00", "14:00", "22:00"}, sorted.Strings())
	assert.Equal(t, []string{"22:00", "06:00", "14:00"}, grid.Strings(), "original order untouched")
}
