package risk

import (
	"fmt"
	"math"

	"golang-quant/internal/engine"
)

// RebalanceToWeightsOrders converts a date x symbol target weight grid into a
// sparse (symbol, date) order series against a fixed capital base. Each day's
// delta is taken against the previous day's *target* position, not an actual
// filled position, so the result assumes every prior day filled in full.
// Composing this with a throttling layer such as ApplyPOVConstraints lets
// tracking error accumulate silently.
func RebalanceToWeightsOrders(panel *engine.Panel, weights *engine.Grid, capital float64, lotSize int) (*engine.MultiSeries, error) {
	if panel == nil || panel.Len() == 0 {
		return nil, fmt.Errorf("price panel is empty")
	}
	if weights == nil {
		return nil, fmt.Errorf("target weights grid is nil")
	}
	closeGrid, err := panel.CloseGrid(weights.Dates)
	if err != nil {
		return nil, err
	}

	targetShares := calculateTargetShares(weights, closeGrid, capital, lotSize)
	return generateRebalanceOrders(targetShares, lotSize), nil
}

// calculateTargetShares sizes weight*capital/price, floored to lot-size
// granularity, with unpriceable targets (missing or zero close) as 0.
func calculateTargetShares(weights, closes *engine.Grid, capital float64, lotSize int) *engine.Grid {
	lot := float64(lotSize)
	if lot < 1 {
		lot = 1
	}
	out := engine.NewGrid(weights.Dates, weights.Symbols)
	for di := range weights.Dates {
		for si := range weights.Symbols {
			price := math.NaN()
			if ci := closes.SymbolIndex(weights.Symbols[si]); ci >= 0 {
				price = closes.At(di, ci)
			}
			shares := weights.At(di, si) * capital / price
			if math.IsNaN(shares) || math.IsInf(shares, 0) {
				shares = 0
			}
			out.Set(di, si, math.Floor(shares/lot)*lot)
		}
	}
	return out
}

// generateRebalanceOrders emits the per-day difference between consecutive
// target rows, re-rounded to lot size, skipping zero deltas.
func generateRebalanceOrders(targetShares *engine.Grid, lotSize int) *engine.MultiSeries {
	orders := engine.NewMultiSeries()
	prev := make([]float64, len(targetShares.Symbols))

	for di, date := range targetShares.Dates {
		for si, sym := range targetShares.Symbols {
			target := targetShares.At(di, si)
			if math.IsNaN(target) {
				target = 0
			}
			delta := target - prev[si]
			if lotSize > 1 {
				delta = math.Round(delta/float64(lotSize)) * float64(lotSize)
			}
			if delta != 0 && !math.IsNaN(delta) {
				orders.Add(sym, date, delta)
			}
			prev[si] = target
		}
	}
	return orders
}
