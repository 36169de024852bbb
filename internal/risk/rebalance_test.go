package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-quant/internal/engine"
)

func rebalanceDates(n int) []time.Time {
	dates := make([]time.Time, n)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
	}
	return dates
}

func panelWith(t *testing.T, symbol string, closes, volumes []float64) *engine.Panel {
	t.Helper()
	cols := map[string][]float64{engine.ColClose: closes}
	if volumes != nil {
		cols[engine.ColVolume] = volumes
	}
	frame, err := engine.NewFrame(rebalanceDates(len(closes)), cols)
	require.NoError(t, err)
	panel := engine.NewPanel()
	panel.Add(symbol, frame)
	return panel
}

func TestRebalanceToWeightsOrders_DeltasAgainstPreviousTarget(t *testing.T) {
	panel := panelWith(t, "AAA", []float64{10, 10, 10}, nil)
	dates := rebalanceDates(3)

	weights := engine.NewGrid(dates, []string{"AAA"})
	weights.Set(0, 0, 0.5)
	weights.Set(1, 0, 1.0)
	weights.Set(2, 0, 0.0)

	orders, err := RebalanceToWeightsOrders(panel, weights, 1000, 1)
	require.NoError(t, err)

	q0, ok := orders.Get("AAA", dates[0])
	require.True(t, ok)
	assert.Equal(t, 50.0, q0)

	q1, ok := orders.Get("AAA", dates[1])
	require.True(t, ok)
	assert.Equal(t, 50.0, q1)

	q2, ok := orders.Get("AAA", dates[2])
	require.True(t, ok)
	assert.Equal(t, -100.0, q2)
}

func TestRebalanceToWeightsOrders_LotSize(t *testing.T) {
	panel := panelWith(t, "AAA", []float64{3, 3}, nil)
	dates := rebalanceDates(2)

	weights := engine.NewGrid(dates, []string{"AAA"})
	weights.Fill(0.5)

	orders, err := RebalanceToWeightsOrders(panel, weights, 1000, 100)
	require.NoError(t, err)

	// 0.5*1000/3 = 166.67, floored to the lot: 100 shares, then flat.
	q0, ok := orders.Get("AAA", dates[0])
	require.True(t, ok)
	assert.Equal(t, 100.0, q0)

	_, ok = orders.Get("AAA", dates[1])
	assert.False(t, ok, "no delta day produces no order")
}

func TestRebalanceToWeightsOrders_ZeroPriceSkipped(t *testing.T) {
	panel := panelWith(t, "AAA", []float64{0, 10}, nil)
	dates := rebalanceDates(2)

	weights := engine.NewGrid(dates, []string{"AAA"})
	weights.Fill(1.0)

	orders, err := RebalanceToWeightsOrders(panel, weights, 1000, 1)
	require.NoError(t, err)

	_, ok := orders.Get("AAA", dates[0])
	assert.False(t, ok, "unpriceable day targets zero shares")

	q1, ok := orders.Get("AAA", dates[1])
	require.True(t, ok)
	assert.Equal(t, 100.0, q1)
}

func TestRebalanceToWeightsOrders_MissingClose(t *testing.T) {
	frame, err := engine.NewFrame(rebalanceDates(1), map[string][]float64{engine.ColOpen: {1}})
	require.NoError(t, err)
	panel := engine.NewPanel()
	panel.Add("AAA", frame)

	weights := engine.NewGrid(rebalanceDates(1), []string{"AAA"})
	_, err = RebalanceToWeightsOrders(panel, weights, 1000, 1)
	assert.ErrorContains(t, err, "close")
}
