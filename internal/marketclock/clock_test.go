package marketclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2026-10-19 is a Monday.
func ist(day, hour, minute, sec int) time.Time {
	return time.Date(2026, 10, day, hour, minute, sec, 0, IST)
}

func TestIsMarketOpen(t *testing.T) {
	c := New()
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"monday open boundary", ist(19, 9, 15, 0), true},
		{"monday close boundary", ist(19, 15, 30, 0), true},
		{"monday midday", ist(19, 12, 0, 0), true},
		{"friday midday", ist(23, 11, 0, 0), true},
		{"one second before open", ist(19, 9, 14, 59), false},
		{"one second after close", ist(19, 15, 30, 1), false},
		{"early morning", ist(19, 3, 0, 0), false},
		{"saturday midday", ist(24, 12, 0, 0), false},
		{"sunday midday", ist(25, 12, 0, 0), false},
		{"utc input converted", time.Date(2026, 10, 19, 4, 0, 0, 0, time.UTC), true}, // 09:30 IST
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsMarketOpen(tt.now))
		})
	}
}

func TestSecondsUntilNextOpen(t *testing.T) {
	c := New()
	tests := []struct {
		name     string
		now      time.Time
		wantNext time.Time
		wantSecs int
	}{
		{"before pre-open same day", ist(19, 9, 0, 0), ist(19, 9, 10, 0), 600},
		{"exactly at pre-open rolls over", ist(19, 9, 10, 0), ist(20, 9, 10, 0), 86400},
		{"after close", ist(19, 16, 0, 0), ist(20, 9, 10, 0), 61800},
		{"friday evening skips weekend", ist(23, 16, 0, 0), ist(26, 9, 10, 0), 3*86400 - 6*3600 - 50*60},
		{"saturday", ist(24, 8, 0, 0), ist(26, 9, 10, 0), 2*86400 + 3600 + 600},
		{"sunday just before pre-open", ist(25, 9, 9, 0), ist(26, 9, 10, 0), 86400 + 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secs, next := c.SecondsUntilNextOpen(tt.now)
			assert.True(t, next.Equal(tt.wantNext), "next = %v, want %v", next, tt.wantNext)
			assert.Equal(t, tt.wantSecs, secs)
		})
	}
}

func TestSecondsUntilNextOpenAlwaysWeekdayPreOpen(t *testing.T) {
	c := New()
	start := ist(19, 0, 0, 0)
	for i := 0; i < 14*24*4; i++ {
		now := start.Add(time.Duration(i) * 15 * time.Minute)
		secs, next := c.SecondsUntilNextOpen(now)
		next = next.In(IST)

		assert.GreaterOrEqual(t, secs, 0)
		assert.True(t, next.After(now), "next %v not after %v", next, now)
		assert.NotEqual(t, time.Saturday, next.Weekday())
		assert.NotEqual(t, time.Sunday, next.Weekday())
		assert.Equal(t, 9, next.Hour())
		assert.Equal(t, 10, next.Minute())
		assert.Equal(t, 0, next.Second())
	}
}

func TestUntilOfficialOpen(t *testing.T) {
	c := New()
	assert.Equal(t, 5*time.Minute, c.UntilOfficialOpen(ist(19, 9, 10, 0)))
	assert.Equal(t, 24*time.Hour, c.UntilOfficialOpen(ist(19, 9, 15, 0)))
	assert.Equal(t, 48*time.Hour+time.Hour+15*time.Minute, c.UntilOfficialOpen(ist(24, 8, 0, 0)))
}

func TestIsResetMinute(t *testing.T) {
	c := New()
	assert.True(t, c.IsResetMinute(ist(19, 9, 15, 0)))
	assert.True(t, c.IsResetMinute(ist(19, 9, 15, 59)))
	assert.False(t, c.IsResetMinute(ist(19, 9, 14, 59)))
	assert.False(t, c.IsResetMinute(ist(19, 9, 16, 0)))
	assert.False(t, c.IsResetMinute(ist(19, 21, 15, 0)))
}
