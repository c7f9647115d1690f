// Package valuation computes the indicative NAV of an FX-exposed fund and its market premium.
package valuation

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/premiumwatch/internal/models"
)

// EstimateINAV scales the official NAV by the FX move since the previous close.
func EstimateINAV(officialNav, liveFx, prevCloseFx float64) (float64, error) {
	if !finite(officialNav, liveFx, prevCloseFx) {
		return 0, fmt.Errorf("%w: non-finite input (nav=%v live_fx=%v prev_fx=%v)",
			models.ErrComputationFailure, officialNav, liveFx, prevCloseFx)
	}
	if prevCloseFx == 0 {
		return 0, fmt.Errorf("%w: previous close FX is zero", models.ErrComputationFailure)
	}
	return officialNav * (liveFx / prevCloseFx), nil
}

// ComputePremiumPct returns how far marketPrice sits above inav, in percent.
// Negative values mean the fund trades at a discount.
func ComputePremiumPct(marketPrice, inav float64) (float64, error) {
	if !finite(marketPrice, inav) {
		return 0, fmt.Errorf("%w: non-finite input (price=%v inav=%v)",
			models.ErrComputationFailure, marketPrice, inav)
	}
	if inav == 0 {
		return 0, fmt.Errorf("%w: iNAV is zero", models.ErrComputationFailure)
	}
	return (marketPrice - inav) / inav * 100, nil
}

// Evaluate derives a Sample from the official NAV and a live quote.
func Evaluate(officialNav float64, quote models.Quote, observedAt time.Time) (models.Sample, error) {
	inav, err := EstimateINAV(officialNav, quote.LiveFX, quote.PrevCloseFX)
	if err != nil {
		return models.Sample{}, err
	}
	premium, err := ComputePremiumPct(quote.MarketPrice, inav)
	if err != nil {
		return models.Sample{}, err
	}
	return models.Sample{
		ID:          uuid.New().String(),
		Quote:       quote,
		OfficialNAV: officialNav,
		INAV:        inav,
		PremiumPct:  premium,
		ObservedAt:  observedAt,
	}, nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
