package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-quant/internal/engine"
)

func TestApplyPOVConstraints_BacklogCarriesForward(t *testing.T) {
	panel := panelWith(t, "AAA", []float64{10, 10, 10}, []float64{3000, 3000, 100000})
	dates := rebalanceDates(3)

	raw := engine.NewMultiSeries()
	raw.Add("AAA", dates[0], 1000)

	out, err := ApplyPOVConstraints(panel, raw, 0.1, 1)
	require.NoError(t, err)

	// Capacity 300/day: 300 fills, 700 rolls, then 300 again, then the rest.
	q0, _ := out.Get("AAA", dates[0])
	q1, _ := out.Get("AAA", dates[1])
	q2, _ := out.Get("AAA", dates[2])
	assert.Equal(t, 300.0, q0)
	assert.Equal(t, 300.0, q1)
	assert.Equal(t, 400.0, q2)
}

func TestApplyPOVConstraints_SellSideSymmetric(t *testing.T) {
	panel := panelWith(t, "AAA", []float64{10, 10}, []float64{3000, 100000})
	dates := rebalanceDates(2)

	raw := engine.NewMultiSeries()
	raw.Add("AAA", dates[0], -1000)

	out, err := ApplyPOVConstraints(panel, raw, 0.1, 1)
	require.NoError(t, err)

	q0, _ := out.Get("AAA", dates[0])
	q1, _ := out.Get("AAA", dates[1])
	assert.Equal(t, -300.0, q0)
	assert.Equal(t, -700.0, q1)
}

func TestApplyPOVConstraints_MinClipFloorsCapacity(t *testing.T) {
	panel := panelWith(t, "AAA", []float64{10}, []float64{2500})
	dates := rebalanceDates(1)

	raw := engine.NewMultiSeries()
	raw.Add("AAA", dates[0], 1000)

	out, err := ApplyPOVConstraints(panel, raw, 0.1, 100)
	require.NoError(t, err)

	// Capacity 250 floors to 200 at a 100-share clip.
	q0, _ := out.Get("AAA", dates[0])
	assert.Equal(t, 200.0, q0)
}

func TestApplyPOVConstraints_MissingVolume(t *testing.T) {
	panel := panelWith(t, "AAA", []float64{10}, nil)
	_, err := ApplyPOVConstraints(panel, engine.NewMultiSeries(), 0.1, 1)
	assert.ErrorContains(t, err, "volume")
}

func TestApplyPOVConstraints_NilOrders(t *testing.T) {
	panel := panelWith(t, "AAA", []float64{10}, []float64{100})
	_, err := ApplyPOVConstraints(panel, nil, 0.1, 1)
	assert.ErrorContains(t, err, "orders")
}

func TestRebalanceWithRiskLimits_CapsWeights(t *testing.T) {
	panel := panelWith(t, "AAA", []float64{10, 10}, []float64{1e9, 1e9})
	dates := rebalanceDates(2)

	weights := engine.NewGrid(dates, []string{"AAA"})
	weights.Fill(1.0)

	orders, err := RebalanceWithRiskLimits(panel, weights, 1000, 0.1, 1, nil)
	require.NoError(t, err)

	// Single-symbol row renormalizes back to 1 after the cap, then sizes
	// against capital.
	q0, ok := orders.Get("AAA", dates[0])
	require.True(t, ok)
	assert.Equal(t, 100.0, q0)
}

func TestApplyPositionLimits_Normalizes(t *testing.T) {
	dates := rebalanceDates(1)
	limits := engine.NewGrid(dates, []string{"AAA", "BBB"})
	limits.Fill(0.3)

	weights := engine.NewGrid(dates, []string{"AAA", "BBB"})
	weights.Set(0, 0, 0.8)
	weights.Set(0, 1, 0.2)

	out := ApplyPositionLimits(weights, limits, true)
	assert.InDelta(t, 0.6, out.At(0, 0), 1e-9)
	assert.InDelta(t, 0.4, out.At(0, 1), 1e-9)

	raw := ApplyPositionLimits(weights, limits, false)
	assert.InDelta(t, 0.3, raw.At(0, 0), 1e-9)
	assert.InDelta(t, 0.2, raw.At(0, 1), 1e-9)
}
