package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleSymbolPanel(t *testing.T, symbol string, closes []float64) *Panel {
	t.Helper()
	panel := NewPanel()
	panel.Add(symbol, closeFrame(t, closes))
	return panel
}

func fullWeights(panel *Panel, w float64) *Grid {
	g := NewGrid(panel.DateAxis(), panel.Symbols())
	g.Fill(w)
	return g
}

func TestRunPortfolioT1Rebalance_OrdersLagOneDay(t *testing.T) {
	panel := singleSymbolPanel(t, "AAA", []float64{10, 10, 10})
	weights := fullWeights(panel, 1.0)

	res, err := RunPortfolioT1Rebalance(panel, weights, T1Config{Capital0: 1000, LotSize: 1})
	require.NoError(t, err)

	fills := res.Fills.Column("AAA")
	// Sized from day 0's close and equity, executed on day 1.
	assert.Equal(t, 0.0, fills[0])
	assert.Equal(t, 100.0, fills[1])
	assert.Equal(t, 0.0, fills[2])
	assert.Equal(t, []float64{0, 100, 100}, res.Positions.Column("AAA"))
}

func TestRunPortfolioT1Rebalance_EquityRoll(t *testing.T) {
	panel := singleSymbolPanel(t, "AAA", []float64{10, 11, 9, 12})
	weights := fullWeights(panel, 0.5)

	res, err := RunPortfolioT1Rebalance(panel, weights, T1Config{Capital0: 10000, LotSize: 1})
	require.NoError(t, err)

	assert.InDelta(t, 10000+res.PortfolioPnL[0], res.Equity[0], 1e-9)
	for i := 1; i < len(res.Equity); i++ {
		assert.InDelta(t, res.Equity[i-1]+res.PortfolioPnL[i], res.Equity[i], 1e-9)
	}
}

func TestRunPortfolioT1Rebalance_DayZeroBoundary(t *testing.T) {
	panel := singleSymbolPanel(t, "AAA", []float64{10, 20})
	weights := fullWeights(panel, 1.0)

	res, err := RunPortfolioT1Rebalance(panel, weights, T1Config{Capital0: 1000, LotSize: 1})
	require.NoError(t, err)

	// No prior close and no pending orders on the first day.
	assert.Equal(t, 0.0, res.PortfolioPnL[0])
	assert.Equal(t, 0.0, res.Fills.Column("AAA")[0])
	assert.Equal(t, 1000.0, res.Equity[0])
}

func TestRunPortfolioT1Rebalance_LongOnly(t *testing.T) {
	panel := singleSymbolPanel(t, "AAA", []float64{10, 8, 12, 7, 14})
	weights := fullWeights(panel, 0.0)
	// Negative weights are clipped before sizing.
	weights.Fill(-1.0)

	res, err := RunPortfolioT1Rebalance(panel, weights, T1Config{Capital0: 1000, LotSize: 1})
	require.NoError(t, err)
	for _, pos := range res.Positions.Column("AAA") {
		assert.GreaterOrEqual(t, pos, 0.0)
	}
}

func TestRunPortfolioT1Rebalance_PositionsStayNonNegative(t *testing.T) {
	panel := singleSymbolPanel(t, "AAA", []float64{10, 8, 12, 7, 14})
	weights := fullWeights(panel, 0.8)

	res, err := RunPortfolioT1Rebalance(panel, weights, DefaultT1Config())
	require.NoError(t, err)
	for _, pos := range res.Positions.Column("AAA") {
		assert.GreaterOrEqual(t, pos, 0.0)
	}
}

func TestRunPortfolioT1Rebalance_ZeroPriceSanitized(t *testing.T) {
	panel := singleSymbolPanel(t, "AAA", []float64{10, 0, 10})
	weights := fullWeights(panel, 1.0)

	res, err := RunPortfolioT1Rebalance(panel, weights, T1Config{Capital0: 1000, LotSize: 1})
	require.NoError(t, err)

	// Division by a zero close must not leak inf into the position state.
	for _, pos := range res.Positions.Column("AAA") {
		assert.False(t, pos != pos, "position is NaN")
		assert.Less(t, pos, 1e9)
	}
}

func TestRunPortfolioT1Rebalance_LotSizeFloors(t *testing.T) {
	panel := singleSymbolPanel(t, "AAA", []float64{3, 3, 3})
	weights := fullWeights(panel, 0.5)

	res, err := RunPortfolioT1Rebalance(panel, weights, T1Config{Capital0: 1000, LotSize: 100})
	require.NoError(t, err)

	// 0.5*1000/3 = 166.67 shares, floored to the 100-share lot.
	assert.Equal(t, 100.0, res.Fills.Column("AAA")[1])
}

func TestRunPortfolioT1Rebalance_NilWeights(t *testing.T) {
	panel := singleSymbolPanel(t, "AAA", []float64{10})
	_, err := RunPortfolioT1Rebalance(panel, nil, DefaultT1Config())
	assert.ErrorContains(t, err, "weights")
}

func TestRunPortfolioT1Rebalance_MissingClose(t *testing.T) {
	panel := NewPanel()
	frame, err := NewFrame(tradingDates(2), map[string][]float64{ColOpen: {1, 2}})
	require.NoError(t, err)
	panel.Add("AAA", frame)

	_, err = RunPortfolioT1Rebalance(panel, fullWeights(panel, 1), DefaultT1Config())
	assert.ErrorContains(t, err, "close")
}
