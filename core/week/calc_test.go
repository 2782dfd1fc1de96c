package week

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/parokia/core/clock"
)

var (
	newYork = clock.MustLoadLocation("America/New_York")
	kinsha  = clock.MustLoadLocation("Africa/Kinshasa")
)

func TestStartMonday(t *testing.T) {
	tests := []struct {
		name  string
		local time.Time
		want  time.Time
	}{
		{
			name:  "wednesday",
			local: time.Date(2024, 9, 4, 8, 0, 0, 0, newYork),
			want:  time.Date(2024, 9, 2, 0, 0, 0, 0, newYork),
		},
		{
			name:  "monday midnight is its own start",
			local: time.Date(2024, 9, 2, 0, 0, 0, 0, newYork),
			want:  time.Date(2024, 9, 2, 0, 0, 0, 0, newYork),
		},
		{
			name:  "sunday late",
			local: time.Date(2024, 9, 8, 23, 59, 59, 0, newYork),
			want:  time.Date(2024, 9, 2, 0, 0, 0, 0, newYork),
		},
		{
			name:  "crosses month",
			local: time.Date(2024, 10, 2, 12, 0, 0, 0, kinsha),
			want:  time.Date(2024, 9, 30, 0, 0, 0, 0, kinsha),
		},
		{
			name:  "crosses year",
			local: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartMonday(tt.local)
			assert.True(t, got.Equal(tt.want), "StartMonday() = %v, want %v", got, tt.want)
			assert.Equal(t, tt.local.Location(), got.Location())
		})
	}
}

func TestStartMonday_properties(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2*366*24; i += 7 { // every 7 hours over two years
		now := base.Add(time.Duration(i) * time.Hour)
		for _, loc := range []*time.Location{newYork, kinsha, time.UTC} {
			start := StartMonday(now.In(loc))
			if start.Weekday() != time.Monday {
				t.Fatalf("StartMonday(%v) = %v is not a monday", now.In(loc), start)
			}
			if h, m, s := start.Clock(); h != 0 || m != 0 || s != 0 {
				t.Fatalf("StartMonday(%v) = %v is not midnight", now.In(loc), start)
			}
			if again := StartMonday(start); !again.Equal(start) {
				t.Fatalf("StartMonday() not idempotent: %v != %v", again, start)
			}
			if start.After(now) || !End(start).After(now) {
				t.Fatalf("%v not inside [%v, %v)", now, start, End(start))
			}
		}
	}
}

func TestEnd_dst(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		wantHours float64
	}{
		{name: "no transition", start: time.Date(2024, 9, 2, 0, 0, 0, 0, newYork), wantHours: 168},
		{name: "fall back", start: time.Date(2024, 10, 28, 0, 0, 0, 0, newYork), wantHours: 169},
		{name: "spring forward", start: time.Date(2024, 3, 4, 0, 0, 0, 0, newYork), wantHours: 167},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := End(tt.start)
			assert.Equal(t, time.Monday, end.Weekday())
			assert.Equal(t, 0, end.Hour())
			assert.Equal(t, tt.start.AddDate(0, 0, 7), end)
			assert.Equal(t, tt.wantHours, end.Sub(tt.start).Hours())
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		start time.Time
		want  string
	}{
		{start: time.Date(2024, 9, 2, 0, 0, 0, 0, newYork), want: "2024-W36"},
		{start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), want: "2024-W01"},
		{start: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), want: "2025-W01"},
		{start: time.Date(2020, 12, 28, 0, 0, 0, 0, time.UTC), want: "2020-W53"},
		{start: time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), want: "2021-W01"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.start))
		})
	}
}

func TestWeekRange(t *testing.T) {
	now := time.Date(2024, 9, 4, 12, 0, 0, 0, time.UTC)
	rng := WeekRange(now, newYork)

	assert.Equal(t, time.Date(2024, 9, 2, 4, 0, 0, 0, time.UTC), rng.Start)
	assert.Equal(t, time.Date(2024, 9, 9, 4, 0, 0, 0, time.UTC), rng.End)
	assert.Equal(t, time.UTC, rng.Start.Location())

	start, _ := Bounds(now, newYork)
	assert.Equal(t, "2024-W36", Label(start))
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		loc       *time.Location
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "edt month",
			now:       time.Date(2024, 9, 4, 12, 0, 0, 0, time.UTC),
			loc:       newYork,
			wantStart: time.Date(2024, 9, 1, 4, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 10, 1, 4, 0, 0, 0, time.UTC),
		},
		{
			name:      "month crossing dst end",
			now:       time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC),
			loc:       newYork,
			wantStart: time.Date(2024, 11, 1, 4, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 12, 1, 5, 0, 0, 0, time.UTC),
		},
		{
			name:      "utc instant already next month locally",
			now:       time.Date(2024, 8, 31, 23, 30, 0, 0, time.UTC),
			loc:       kinsha, // UTC+1
			wantStart: time.Date(2024, 8, 31, 23, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 9, 30, 23, 0, 0, 0, time.UTC),
		},
		{
			name:      "december",
			now:       time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC),
			loc:       time.UTC,
			wantStart: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := MonthRange(tt.now, tt.loc)
			assert.Equal(t, tt.wantStart, rng.Start)
			assert.Equal(t, tt.wantEnd, rng.End)
		})
	}
}

func TestRange_Overlaps(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2024, 9, d, h, 0, 0, 0, time.UTC) }
	rng := Range{Start: day(2, 0), End: day(9, 0)}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{name: "inside", start: day(3, 10), end: day(3, 12), want: true},
		{name: "straddles start", start: day(1, 23), end: day(2, 1), want: true},
		{name: "straddles end", start: day(8, 23), end: day(9, 1), want: true},
		{name: "ends at start", start: day(1, 22), end: day(2, 0), want: false},
		{name: "starts at end", start: day(9, 0), end: day(9, 2), want: false},
		{name: "covers", start: day(1, 0), end: day(10, 0), want: true},
		{name: "instant inside", start: day(4, 0), end: day(4, 0), want: true},
		{name: "instant at end", start: day(9, 0), end: day(9, 0), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rng.Overlaps(tt.start, tt.end))
		})
	}
}

func TestNewRange(t *testing.T) {
	start := time.Date(2024, 9, 2, 0, 0, 0, 0, newYork)
	rng, err := NewRange(start, start.AddDate(0, 0, 7))
	assert.NoError(t, err)
	assert.Equal(t, time.UTC, rng.Start.Location())

	_, err = NewRange(start, start)
	assert.Error(t, err)
	_, err = NewRange(time.Time{}, start)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	start := time.Date(2024, 9, 2, 0, 0, 0, 0, newYork)
	wk := New("parish-1", start)
	assert.Equal(t, "parish-1", wk.ParishID)
	assert.Equal(t, time.Date(2024, 9, 2, 4, 0, 0, 0, time.UTC), wk.StartsOn)
	assert.Equal(t, time.Date(2024, 9, 9, 4, 0, 0, 0, time.UTC), wk.EndsOn)
	assert.Equal(t, "2024-W36", wk.Label)
	assert.Equal(t, Range{Start: wk.StartsOn, End: wk.EndsOn}, wk.Range())
}
