package valuation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/premiumwatch/internal/models"
)

func TestEstimateINAV(t *testing.T) {
	inav, err := EstimateINAV(223.52, 83.50, 83.00)
	require.NoError(t, err)
	assert.InDelta(t, 224.87, inav, 0.01)
}

func TestEstimateINAVUnchangedFX(t *testing.T) {
	inav, err := EstimateINAV(223.52, 83.00, 83.00)
	require.NoError(t, err)
	assert.InDelta(t, 223.52, inav, 1e-9)
}

func TestComputePremiumPct(t *testing.T) {
	premium, err := ComputePremiumPct(230.0, 224.87)
	require.NoError(t, err)
	assert.InDelta(t, 2.28, premium, 0.01)

	discount, err := ComputePremiumPct(220.0, 224.87)
	require.NoError(t, err)
	assert.Less(t, discount, 0.0)
}

func TestComputationFailures(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (float64, error)
	}{
		{"zero previous close", func() (float64, error) { return EstimateINAV(223.52, 83.5, 0) }},
		{"NaN nav", func() (float64, error) { return EstimateINAV(math.NaN(), 83.5, 83) }},
		{"infinite fx", func() (float64, error) { return EstimateINAV(223.52, math.Inf(1), 83) }},
		{"zero inav", func() (float64, error) { return ComputePremiumPct(230, 0) }},
		{"NaN price", func() (float64, error) { return ComputePremiumPct(math.NaN(), 224.87) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrComputationFailure), "got %v", err)
		})
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	q := models.Quote{MarketPrice: 230.0, LiveFX: 83.50, PrevCloseFX: 83.00}

	s, err := Evaluate(223.52, q, now)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.InDelta(t, 224.87, s.INAV, 0.01)
	assert.InDelta(t, 2.28, s.PremiumPct, 0.01)
	assert.Equal(t, 223.52, s.OfficialNAV)
	assert.True(t, s.ObservedAt.Equal(now))

	_, err = Evaluate(223.52, models.Quote{MarketPrice: 230, LiveFX: 83.5}, now)
	assert.ErrorIs(t, err, models.ErrComputationFailure)
}
