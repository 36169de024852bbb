package engine

import (
	"fmt"
	"math"
	"time"
)

// BacktestResult holds the six date-aligned output series of a single-symbol
// close-fill run.
type BacktestResult struct {
	Dates      []time.Time
	DailyPnL   []float64
	Position   []float64
	Fills      []float64
	TradePrice []float64
	Fees       []float64
	Taxes      []float64
}

// RunCloseFill runs the vectorized close-fill backtest for one symbol.
// Orders are reindexed onto the frame's date axis with missing days as 0.
func RunCloseFill(frame *Frame, orders *Series, costs CostParams) (*BacktestResult, error) {
	if frame == nil || frame.Len() == 0 {
		return nil, fmt.Errorf("price frame is empty")
	}
	if _, err := frame.Close(); err != nil {
		return nil, err
	}
	aligned := orders.Reindex(frame.Dates, 0.0)
	return RunCloseFillValues(frame, aligned, costs)
}

// RunCloseFillValues is RunCloseFill for a raw order slice already aligned to
// the frame. The slice length must match the frame's row count.
func RunCloseFillValues(frame *Frame, orders []float64, costs CostParams) (*BacktestResult, error) {
	if frame == nil || frame.Len() == 0 {
		return nil, fmt.Errorf("price frame is empty")
	}
	closes, err := frame.Close()
	if err != nil {
		return nil, err
	}
	if len(orders) != frame.Len() {
		return nil, fmt.Errorf("orders length %d does not match %d price rows", len(orders), frame.Len())
	}

	n := frame.Len()
	fills := make([]float64, n)
	copy(fills, orders)

	tradePrice := TradePrices(closes, fills, costs.SlipBP)

	notional := make([]float64, n)
	sellNotional := make([]float64, n)
	for i := range fills {
		notional[i] = math.Abs(fills[i]) * tradePrice[i]
		if fills[i] < 0 {
			sellNotional[i] = notional[i]
		}
	}
	fees := Commission(notional, costs.FeeBP)
	taxes := SellTax(sellNotional, costs.TaxBPSell)

	position := make([]float64, n)
	var cum float64
	for i, f := range fills {
		cum += f
		position[i] = cum
	}

	// Price P&L accrues to the beginning-of-day position, so fills made on
	// day t earn nothing from day t's move. Day 0 has no prior close and
	// therefore zero price P&L.
	dailyPnL := make([]float64, n)
	for i := range closes {
		prevClose := closes[0]
		if i > 0 {
			prevClose = closes[i-1]
		}
		positionBOD := position[i] - fills[i]
		pricePnL := (closes[i] - prevClose) * positionBOD
		dailyPnL[i] = pricePnL - fees[i] - taxes[i]
	}

	return &BacktestResult{
		Dates:      frame.Dates,
		DailyPnL:   dailyPnL,
		Position:   position,
		Fills:      fills,
		TradePrice: tradePrice,
		Fees:       fees,
		Taxes:      taxes,
	}, nil
}
