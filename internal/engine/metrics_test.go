package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquityCurve(t *testing.T) {
	curve := EquityCurve([]float64{10, -5, math.NaN(), 20})
	assert.Equal(t, []float64{10, 5, 25}, curve)
}

func TestDailyReturns(t *testing.T) {
	returns, err := DailyReturns([]float64{100, -50}, 10000)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, returns[0], 1e-9)
	assert.InDelta(t, -0.005, returns[1], 1e-9)

	_, err = DailyReturns([]float64{1}, 0)
	assert.Error(t, err)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name  string
		curve []float64
		want  float64
	}{
		{"monotonic up", []float64{1, 2, 3}, 0},
		{"single dip", []float64{0, 100, 40, 80}, -60},
		{"deepest wins", []float64{0, 50, 30, 60, -10}, -70},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mdd, _, _ := MaxDrawdown(tt.curve)
			assert.InDelta(t, tt.want, mdd, 1e-9)
		})
	}
}

func TestSharpeRatio_ZeroVolatility(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0, DefaultTradingDays))
	assert.Equal(t, 0.0, SharpeRatio(nil, 0, DefaultTradingDays))
}

func TestCAGR(t *testing.T) {
	// One full year of zero returns compounds to zero growth.
	flat := make([]float64, DefaultTradingDays)
	assert.InDelta(t, 0.0, CAGR(flat, DefaultTradingDays), 1e-9)

	// Total wipeout floors at -100%.
	assert.Equal(t, -1.0, CAGR([]float64{-1.0}, DefaultTradingDays))
}

func TestComputeSummary(t *testing.T) {
	pnl := []float64{100, -40, 0, 60}
	s, err := ComputeSummary(pnl, 10000, 0, DefaultTradingDays)
	require.NoError(t, err)

	assert.InDelta(t, 120.0, s.TotalPnL, 1e-9)
	assert.Equal(t, 2, s.DaysWon)
	assert.Equal(t, 1, s.DaysLost)
	assert.InDelta(t, 2.0/3.0, s.WinRateDay, 1e-9)
	assert.InDelta(t, 80.0, s.AvgWinDay, 1e-9)
	assert.InDelta(t, -40.0, s.AvgLossDay, 1e-9)
	assert.InDelta(t, -40.0, s.MaxDrawdown, 1e-9)
	assert.InDelta(t, -0.4, s.MaxDDPct, 1e-9)
}
