package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStreak(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }
	tests := []struct {
		name string
		days []time.Time
		want int
	}{
		{name: "no workout", want: 0},
		{name: "single day", days: []time.Time{day(5, 8)}, want: 1},
		{name: "consecutive days", days: []time.Time{day(1, 8), day(2, 20), day(3, 6)}, want: 3},
		{name: "same day counts once", days: []time.Time{day(1, 8), day(1, 18), day(2, 7)}, want: 2},
		{name: "unsorted", days: []time.Time{day(3, 8), day(1, 8), day(2, 8)}, want: 3},
		{name: "gap resets from the latest day", days: []time.Time{day(1, 8), day(2, 8), day(4, 8)}, want: 1},
		{
			name: "month boundary",
			days: []time.Time{time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), day(1, 9)},
			want: 3,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Streak(tc.days))
		})
	}
}

func TestWorkoutLog_VolumeKg(t *testing.T) {
	wl := WorkoutLog{Sets: []SetLog{{Reps: 10, WeightKg: 60}, {Reps: 8, WeightKg: 62.5}, {Reps: 12}}}
	assert.Equal(t, 1100.0, wl.VolumeKg())
	assert.Zero(t, WorkoutLog{}.VolumeKg())
}

func TestTimeRange_Contains(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.True(t, TimeRange{}.Contains(from))
	assert.True(t, TimeRange{From: from, To: to}.Contains(from))
	assert.True(t, TimeRange{From: from, To: to}.Contains(to))
	assert.False(t, TimeRange{From: from}.Contains(from.Add(-time.Second)))
	assert.False(t, TimeRange{To: to}.Contains(to.Add(time.Second)))
}
