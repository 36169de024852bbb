package risk

import (
	"fmt"
	"math"

	"golang-quant/internal/engine"
)

// CalculatePositionLimits builds a date x symbol grid of maximum allowed
// weights. When maxPositionValue is set, the tighter of the weight cap and
// the value cap wins.
func CalculatePositionLimits(panel *engine.Panel, maxWeight float64, maxPositionValue *float64, capital float64) (*engine.Grid, error) {
	if panel == nil || panel.Len() == 0 {
		return nil, fmt.Errorf("price panel is empty")
	}
	dates := panel.DateAxis()
	limits := engine.NewGrid(dates, panel.Symbols())
	maxW := maxWeight
	if maxPositionValue != nil {
		maxW = math.Min(maxW, *maxPositionValue/capital)
	}
	limits.Fill(maxW)
	return limits, nil
}

// ApplyPositionLimits clips target weights to the per-cell limits. With
// normalize set, rows that keep any weight are rescaled to sum to 1.
func ApplyPositionLimits(targetWeights, limits *engine.Grid, normalize bool) *engine.Grid {
	aligned := targetWeights.Reindex(limits.Dates, limits.Symbols, 0.0)
	out := engine.NewGrid(limits.Dates, limits.Symbols)
	for di := range limits.Dates {
		var rowSum float64
		for si := range limits.Symbols {
			w := math.Min(aligned.At(di, si), limits.At(di, si))
			out.Set(di, si, w)
			rowSum += w
		}
		if normalize && rowSum > 0 {
			for si := range limits.Symbols {
				out.Set(di, si, out.At(di, si)/rowSum)
			}
		}
	}
	return out
}

// RebalanceWithRiskLimits composes position limits, weight rebalancing and an
// optional POV throttle into one order stream.
func RebalanceWithRiskLimits(panel *engine.Panel, targetWeights *engine.Grid, capital, maxWeight float64, lotSize int, pov *float64) (*engine.MultiSeries, error) {
	limits, err := CalculatePositionLimits(panel, maxWeight, nil, capital)
	if err != nil {
		return nil, err
	}
	limitedOnAxis := ApplyPositionLimits(targetWeights, limits, true)
	// Keep the caller's rebalance dates; the limit grid spans the full panel.
	limited := limitedOnAxis.Reindex(targetWeights.Dates, targetWeights.Symbols, 0.0)

	orders, err := RebalanceToWeightsOrders(panel, limited, capital, lotSize)
	if err != nil {
		return nil, err
	}
	if pov != nil {
		return ApplyPOVConstraints(panel, orders, *pov, lotSize)
	}
	return orders, nil
}
