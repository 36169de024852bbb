package engine

import (
	"fmt"
	"math"
)

// T1Config parameterizes the T+1 rebalancing engine.
type T1Config struct {
	Capital0 float64
	Costs    CostParams
	LotSize  float64
}

// DefaultT1Config starts with 1M capital, default costs and single-share lots.
func DefaultT1Config() T1Config {
	return T1Config{Capital0: 1_000_000.0, Costs: DefaultCostParams(), LotSize: 1.0}
}

// PortfolioT1Result extends PortfolioResult with the running equity series.
type PortfolioT1Result struct {
	PortfolioResult
	Equity []float64
}

// engineState is the per-day state threaded through the T+1 loop. Each slice
// is indexed by the panel's symbol order.
type engineState struct {
	prevPosition  []float64
	pendingOrders []float64
	prevClose     []float64
	hasPrevClose  bool
	equity        float64
}

// RunPortfolioT1Rebalance runs the sequential daily rebalancing loop: orders
// sized from day t's weights, equity and closes execute at day t+1's close.
// The date loop cannot be collapsed because order sizing on day t+1 needs the
// equity realized through day t.
//
// Weights are reindexed onto the panel's date x symbol axes with missing
// entries as 0, then clipped to >= 0 (long-only). Target shares that come out
// infinite or NaN (zero or missing close) are sanitized to 0 rather than
// propagated.
func RunPortfolioT1Rebalance(panel *Panel, weights *Grid, cfg T1Config) (*PortfolioT1Result, error) {
	if panel == nil || panel.Len() == 0 {
		return nil, fmt.Errorf("price panel is empty")
	}
	if weights == nil {
		return nil, fmt.Errorf("target weights grid is nil")
	}

	dates := panel.DateAxis()
	symbols := panel.Symbols()
	nSym := len(symbols)

	closeGrid, err := panel.CloseGrid(dates)
	if err != nil {
		return nil, err
	}
	w := weights.Reindex(dates, symbols, 0.0)

	res := &PortfolioT1Result{
		PortfolioResult: PortfolioResult{
			Dates:       dates,
			Symbols:     symbols,
			PnL:         NewGrid(dates, symbols),
			Positions:   NewGrid(dates, symbols),
			Fills:       NewGrid(dates, symbols),
			TradePrices: NewGrid(dates, symbols),
			Fees:        NewGrid(dates, symbols),
			Taxes:       NewGrid(dates, symbols),
		},
		Equity: make([]float64, len(dates)),
	}
	res.TradePrices.Fill(math.NaN())

	st := engineState{
		prevPosition:  make([]float64, nSym),
		pendingOrders: make([]float64, nSym),
		prevClose:     make([]float64, nSym),
		equity:        cfg.Capital0,
	}

	for di := range dates {
		closeToday := closeGrid.Row(di)

		var pnlSum float64
		positionEOD := make([]float64, nSym)

		for si := 0; si < nSym; si++ {
			c := closeToday[si]

			// 1. Execute the orders queued at the end of the previous day.
			// A symbol without a close today cannot be priced; its fill is
			// skipped for the day.
			fill := st.pendingOrders[si]
			if math.IsNaN(c) {
				fill = 0
			}

			var tradePrice, fee, tax float64
			if fill != 0 {
				tradePrice = TradePrices([]float64{c}, []float64{fill}, cfg.Costs.SlipBP)[0]
				notional := math.Abs(fill) * tradePrice
				fee = Commission([]float64{notional}, cfg.Costs.FeeBP)[0]
				if fill < 0 {
					tax = SellTax([]float64{notional}, cfg.Costs.TaxBPSell)[0]
				}
			}

			// 2. End-of-day position.
			positionEOD[si] = st.prevPosition[si] + fill

			// 3. Price P&L on the position held overnight. No prior close
			// (day 0, or a gap in the symbol's history) means no price move
			// to attribute.
			var pricePnL float64
			if st.hasPrevClose && !math.IsNaN(c) && !math.IsNaN(st.prevClose[si]) {
				pricePnL = (c - st.prevClose[si]) * st.prevPosition[si]
			}

			pnl := pricePnL - fee - tax
			pnlSum += pnl

			// 5. Record the day.
			res.PnL.Set(di, si, pnl)
			res.Positions.Set(di, si, positionEOD[si])
			res.Fills.Set(di, si, fill)
			if fill != 0 {
				res.TradePrices.Set(di, si, tradePrice)
			}
			res.Fees.Set(di, si, fee)
			res.Taxes.Set(di, si, tax)
		}

		// 4. Roll equity.
		st.equity += pnlSum
		res.Equity[di] = st.equity

		// 6. Size tomorrow's orders from today's weights, equity and closes.
		for si := 0; si < nSym; si++ {
			weight := w.At(di, si)
			if weight < 0 || math.IsNaN(weight) {
				weight = 0 // long-only
			}
			target := weight * st.equity / closeToday[si]
			if math.IsInf(target, 0) || math.IsNaN(target) {
				target = 0
			}
			target = floorToLot(target, cfg.LotSize)
			st.pendingOrders[si] = target - positionEOD[si]
		}

		// 7. Roll state.
		copy(st.prevPosition, positionEOD)
		for si := 0; si < nSym; si++ {
			if !math.IsNaN(closeToday[si]) {
				st.prevClose[si] = closeToday[si]
			}
		}
		st.hasPrevClose = true
	}

	res.PortfolioPnL = res.PnL.RowSums()
	return res, nil
}

// floorToLot floors shares to lot-size granularity; lot sizes <= 1 degrade to
// a plain floor.
func floorToLot(shares, lotSize float64) float64 {
	if lotSize <= 1 {
		return math.Floor(shares)
	}
	return math.Floor(shares/lotSize) * lotSize
}
