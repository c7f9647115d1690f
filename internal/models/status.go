package models

import "time"

// Status is a point-in-time snapshot of the monitor, safe to share across goroutines.
type Status struct {
	Latch       LatchState `json:"-"`
	LatchName   string     `json:"latch"`
	OfficialNAV float64    `json:"official_nav"`
	NavSource   NavSource  `json:"nav_source"`
	MarketOpen  bool       `json:"market_open"`
	LastSample  *Sample    `json:"last_sample,omitempty"`
	LastAction  string     `json:"last_action"`
	LastError   string     `json:"last_error,omitempty"`
	Heartbeat   time.Time  `json:"heartbeat"`
	NextWake    time.Time  `json:"next_wake"`
}
