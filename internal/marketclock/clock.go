// Package marketclock answers NSE trading-hour questions in India Standard Time.
// Holidays are not modeled; every weekday is a trading day.
package marketclock

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// IST is India Standard Time. It has no daylight saving, so a fixed zone is exact.
var IST = time.FixedZone("IST", 5*60*60+30*60)

const (
	openHour, openMinute       = 9, 15
	closeHour, closeMinute     = 15, 30
	preOpenHour, preOpenMinute = 9, 10
)

// Clock evaluates market hours. The zero value is not usable; call New.
type Clock struct {
	loc     *time.Location
	preOpen cron.Schedule
	open    cron.Schedule
}

// New returns a Clock for the NSE session in IST.
func New() *Clock {
	return &Clock{
		loc:     IST,
		preOpen: weekdaySchedule(preOpenMinute, preOpenHour, IST),
		open:    weekdaySchedule(openMinute, openHour, IST),
	}
}

// weekdaySchedule fires at hour:minute Monday through Friday in loc.
func weekdaySchedule(minute, hour int, loc *time.Location) cron.Schedule {
	sched, err := cron.ParseStandard(fmt.Sprintf("%d %d * * 1-5", minute, hour))
	if err != nil {
		panic(err)
	}
	sched.(*cron.SpecSchedule).Location = loc
	return sched
}

// Location returns the exchange time zone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// IsMarketOpen reports whether now falls on a weekday between 09:15:00 and
// 15:30:00 IST, both ends inclusive.
func (c *Clock) IsMarketOpen(now time.Time) bool {
	t := now.In(c.loc)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), openHour, openMinute, 0, 0, c.loc)
	end := time.Date(t.Year(), t.Month(), t.Day(), closeHour, closeMinute, 0, 0, c.loc)
	return !t.Before(start) && !t.After(end)
}

// SecondsUntilNextOpen returns the wait until the next weekday 09:10:00 IST
// pre-open mark and the mark itself. At or after today's 09:10 the target
// rolls to the following weekday.
func (c *Clock) SecondsUntilNextOpen(now time.Time) (int, time.Time) {
	next := c.preOpen.Next(now.In(c.loc)).In(c.loc)
	secs := int(next.Sub(now).Seconds())
	if secs < 0 {
		secs = 0
	}
	return secs, next
}

// UntilOfficialOpen returns the wait until the next weekday 09:15:00 IST open.
func (c *Clock) UntilOfficialOpen(now time.Time) time.Duration {
	d := c.open.Next(now.In(c.loc)).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// IsResetMinute reports whether now is inside the 09:15 IST minute, the
// daily edge on which the alert latch re-arms. A loop that does not run
// during this minute skips the reset until the next day.
func (c *Clock) IsResetMinute(now time.Time) bool {
	t := now.In(c.loc)
	return t.Hour() == openHour && t.Minute() == openMinute
}
