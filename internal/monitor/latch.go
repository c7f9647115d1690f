package monitor

import "github.com/rewired-gh/premiumwatch/internal/models"

// Latch allows at most one alert per trading day. It starts Armed and stays
// Fired until Reset is called at the daily reset minute.
type Latch struct {
	state models.LatchState
}

// NewLatch returns an armed latch.
func NewLatch() *Latch {
	return &Latch{state: models.Armed}
}

// State returns the current latch position.
func (l *Latch) State() models.LatchState {
	return l.state
}

// TryFire moves Armed to Fired when premiumPct <= limit and reports whether
// it did. A Fired latch never fires again.
func (l *Latch) TryFire(premiumPct, limit float64) bool {
	if l.state == models.Fired || !(premiumPct <= limit) {
		return false
	}
	l.state = models.Fired
	return true
}

// Reset re-arms the latch regardless of its prior state.
func (l *Latch) Reset() {
	l.state = models.Armed
}
