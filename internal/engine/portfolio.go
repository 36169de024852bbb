package engine

import (
	"fmt"
	"math"
	"time"
)

// PortfolioResult holds the per-symbol wide output frames of a portfolio
// close-fill run, all aligned on the union date axis, plus the row-wise P&L
// sum.
type PortfolioResult struct {
	Dates   []time.Time
	Symbols []string

	PnL         *Grid
	Positions   *Grid
	Fills       *Grid
	TradePrices *Grid
	Fees        *Grid
	Taxes       *Grid

	PortfolioPnL []float64
}

// RunCloseFillPortfolio runs the single-symbol engine independently per
// symbol and aggregates into wide frames. Symbols share nothing: no cash
// constraint, no cross-symbol interaction. Orders missing for a (symbol,
// date) pair are treated as 0.
func RunCloseFillPortfolio(panel *Panel, orders *MultiSeries, costs CostParams) (*PortfolioResult, error) {
	if panel == nil || panel.Len() == 0 {
		return nil, fmt.Errorf("price panel is empty")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders series is nil")
	}

	dates := panel.DateAxis()
	symbols := panel.Symbols()
	res := &PortfolioResult{
		Dates:       dates,
		Symbols:     symbols,
		PnL:         NewGrid(dates, symbols),
		Positions:   NewGrid(dates, symbols),
		Fills:       NewGrid(dates, symbols),
		TradePrices: NewGrid(dates, symbols),
		Fees:        NewGrid(dates, symbols),
		Taxes:       NewGrid(dates, symbols),
	}
	// A date the symbol never traded has no fill and no price, which is not
	// the same thing as a $0 trade price.
	res.TradePrices.Fill(math.NaN())

	for _, sym := range symbols {
		frame := panel.Frame(sym)
		symOrders := orders.Aligned(sym, frame.Dates)
		single, err := RunCloseFillValues(frame, symOrders, costs)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", sym, err)
		}

		pnl := (&Series{Dates: single.Dates, Values: single.DailyPnL}).Reindex(dates, 0.0)
		pos := (&Series{Dates: single.Dates, Values: single.Position}).Reindex(dates, 0.0)
		fills := (&Series{Dates: single.Dates, Values: single.Fills}).Reindex(dates, 0.0)
		price := (&Series{Dates: single.Dates, Values: single.TradePrice}).Reindex(dates, math.NaN())
		fees := (&Series{Dates: single.Dates, Values: single.Fees}).Reindex(dates, 0.0)
		taxes := (&Series{Dates: single.Dates, Values: single.Taxes}).Reindex(dates, 0.0)

		res.PnL.SetColumn(sym, pnl)
		res.Positions.SetColumn(sym, pos)
		res.Fills.SetColumn(sym, fills)
		res.TradePrices.SetColumn(sym, price)
		res.Fees.SetColumn(sym, fees)
		res.Taxes.SetColumn(sym, taxes)
	}

	res.PortfolioPnL = res.PnL.RowSums()
	return res, nil
}
