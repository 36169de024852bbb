package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoSymbolPanel(t *testing.T) *Panel {
	t.Helper()
	panel := NewPanel()
	fa, err := NewFrame(tradingDates(3), map[string][]float64{ColClose: {100, 102, 101}})
	require.NoError(t, err)
	fb, err := NewFrame(tradingDates(3), map[string][]float64{ColClose: {50, 49, 52}})
	require.NoError(t, err)
	panel.Add("AAA", fa)
	panel.Add("BBB", fb)
	return panel
}

func TestRunCloseFillPortfolio_SumsPerSymbolPnL(t *testing.T) {
	panel := twoSymbolPanel(t)
	orders := NewMultiSeries()
	dates := tradingDates(3)
	orders.Add("AAA", dates[0], 10)
	orders.Add("BBB", dates[0], 20)

	res, err := RunCloseFillPortfolio(panel, orders, CostParams{})
	require.NoError(t, err)

	// AAA: 10 shares, +2 then -1. BBB: 20 shares, -1 then +3.
	assert.InDelta(t, 0.0, res.PortfolioPnL[0], 1e-9)
	assert.InDelta(t, 10*2+20*(-1), res.PortfolioPnL[1], 1e-9)
	assert.InDelta(t, 10*(-1)+20*3, res.PortfolioPnL[2], 1e-9)

	aaa := res.Positions.Column("AAA")
	assert.Equal(t, []float64{10, 10, 10}, aaa)
}

func TestRunCloseFillPortfolio_UnionDateAxis(t *testing.T) {
	panel := NewPanel()
	dates := tradingDates(3)
	fa, err := NewFrame(dates, map[string][]float64{ColClose: {100, 101, 102}})
	require.NoError(t, err)
	// BBB only trades on the last two days.
	fb, err := NewFrame(dates[1:], map[string][]float64{ColClose: {50, 51}})
	require.NoError(t, err)
	panel.Add("AAA", fa)
	panel.Add("BBB", fb)

	orders := NewMultiSeries()
	orders.Add("BBB", dates[1], 10)

	res, err := RunCloseFillPortfolio(panel, orders, CostParams{})
	require.NoError(t, err)

	require.Len(t, res.Dates, 3)
	// Days outside a symbol's history contribute zero P&L but no price.
	assert.Equal(t, 0.0, res.PnL.Column("BBB")[0])
	assert.Equal(t, 0.0, res.Positions.Column("BBB")[0])
	assert.True(t, math.IsNaN(res.TradePrices.Column("BBB")[0]))
	assert.InDelta(t, 10.0, res.PnL.Column("BBB")[2], 1e-9)
}

func TestRunCloseFillPortfolio_NilOrders(t *testing.T) {
	_, err := RunCloseFillPortfolio(twoSymbolPanel(t), nil, CostParams{})
	assert.ErrorContains(t, err, "orders")
}

func TestRunCloseFillPortfolio_EmptyPanel(t *testing.T) {
	_, err := RunCloseFillPortfolio(NewPanel(), NewMultiSeries(), CostParams{})
	assert.ErrorContains(t, err, "panel")
}

func TestPanelDateAxis_SortedUnion(t *testing.T) {
	panel := NewPanel()
	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	d3 := d1.AddDate(0, 0, 2)
	fa, err := NewFrame([]time.Time{d2, d3}, map[string][]float64{ColClose: {1, 2}})
	require.NoError(t, err)
	fb, err := NewFrame([]time.Time{d1, d2}, map[string][]float64{ColClose: {3, 4}})
	require.NoError(t, err)
	panel.Add("B", fb)
	panel.Add("A", fa)

	assert.Equal(t, []string{"A", "B"}, panel.Symbols())
	assert.Equal(t, []time.Time{d1, d2, d3}, panel.DateAxis())
}
