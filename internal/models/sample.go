package models

import (
	"time"

	"github.com/google/uuid"
)

// Sample is one evaluated poll: the quote plus derived fair value and premium.
type Sample struct {
	ID          string    `json:"id"`
	Quote       Quote     `json:"quote"`
	OfficialNAV float64   `json:"official_nav"`
	INAV        float64   `json:"inav"`
	PremiumPct  float64   `json:"premium_pct"`
	ObservedAt  time.Time `json:"observed_at"`
}

// LatchState is the alert latch position for the current trading day.
type LatchState int

const (
	Armed LatchState = iota
	Fired
)

func (s LatchState) String() string {
	switch s {
	case Armed:
		return "armed"
	case Fired:
		return "fired"
	default:
		return "unknown"
	}
}

// Alert is handed to the notification dispatcher when the latch fires.
type Alert struct {
	ID       string
	FundName string
	Sample   Sample
	FiredAt  time.Time
}

// NewAlert creates an alert for a sample with a fresh identifier.
func NewAlert(fundName string, sample Sample, firedAt time.Time) Alert {
	return Alert{
		ID:       uuid.New().String(),
		FundName: fundName,
		Sample:   sample,
		FiredAt:  firedAt,
	}
}
