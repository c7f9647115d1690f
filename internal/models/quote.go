// Package models defines the core domain entities: quotes, NAV readings, samples and alerts.
package models

import (
	"errors"
	"math"
	"time"
)

// Quote is a live market snapshot fetched once per poll. It is never cached.
type Quote struct {
	MarketPrice float64   `json:"market_price"`
	LiveFX      float64   `json:"live_fx"`
	PrevCloseFX float64   `json:"prev_close_fx"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Validate checks quote field constraints.
func (q *Quote) Validate() error {
	if !finitePositive(q.MarketPrice) {
		return errors.New("market price must be a positive finite number")
	}
	if !finitePositive(q.LiveFX) {
		return errors.New("live FX rate must be a positive finite number")
	}
	if !finitePositive(q.PrevCloseFX) {
		return errors.New("previous close FX rate must be a positive finite number")
	}
	return nil
}

// NavSource tells where an official NAV value came from.
type NavSource string

const (
	NavSourceAMFI     NavSource = "amfi"
	NavSourceFallback NavSource = "fallback"
)

// NavReading is the outcome of an official NAV lookup. Err carries the
// reason a fallback was used; it is informational and never returned to callers.
type NavReading struct {
	Value  float64
	Source NavSource
	Err    error
}

// IsFallback reports whether the reading used the hardcoded constant.
func (r NavReading) IsFallback() bool {
	return r.Source == NavSourceFallback
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
