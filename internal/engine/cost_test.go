package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTradePrices(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		fills  []float64
		slipBP float64
		want   []float64
	}{
		{
			name:   "buy pays up",
			closes: []float64{100},
			fills:  []float64{50},
			slipBP: 2,
			want:   []float64{100 * 1.0002},
		},
		{
			name:   "sell receives less",
			closes: []float64{100},
			fills:  []float64{-50},
			slipBP: 2,
			want:   []float64{100 * 0.9998},
		},
		{
			name:   "zero fill takes buy side",
			closes: []float64{100},
			fills:  []float64{0},
			slipBP: 2,
			want:   []float64{100 * 1.0002},
		},
		{
			name:   "zero slippage is close",
			closes: []float64{100, 200},
			fills:  []float64{10, -10},
			slipBP: 0,
			want:   []float64{100, 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TradePrices(tt.closes, tt.fills, tt.slipBP)
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestCommission(t *testing.T) {
	fees := Commission([]float64{10000, 0, 5000}, 10)
	assert.InDelta(t, 10.0, fees[0], 1e-9)
	assert.Equal(t, 0.0, fees[1])
	assert.InDelta(t, 5.0, fees[2], 1e-9)
}

func TestSellTax(t *testing.T) {
	taxes := SellTax([]float64{0, 10000}, 5)
	assert.Equal(t, 0.0, taxes[0])
	assert.InDelta(t, 5.0, taxes[1], 1e-9)
}
