package engine

// CostParams bundles the trading cost rates, all in basis points.
type CostParams struct {
	FeeBP     float64
	SlipBP    float64
	TaxBPSell float64
}

// DefaultCostParams mirrors a typical A-share retail setup: 10bp commission,
// 2bp slippage, no sell tax.
func DefaultCostParams() CostParams {
	return CostParams{FeeBP: 10.0, SlipBP: 2.0, TaxBPSell: 0.0}
}

// TradePrices applies direction-sensitive slippage: buys pay close*(1+slip),
// sells receive close*(1-slip). Zero fills take the buy-side branch; their
// notional is zero so the choice has no economic effect.
func TradePrices(closes, fills []float64, slipBP float64) []float64 {
	rate := slipBP / 10000.0
	out := make([]float64, len(closes))
	for i, c := range closes {
		if fills[i] >= 0 {
			out[i] = c * (1.0 + rate)
		} else {
			out[i] = c * (1.0 - rate)
		}
	}
	return out
}

// Commission charges feeBP on absolute notional, both sides.
func Commission(notional []float64, feeBP float64) []float64 {
	rate := feeBP / 10000.0
	out := make([]float64, len(notional))
	for i, n := range notional {
		out[i] = n * rate
	}
	return out
}

// SellTax charges taxBP on sell-side notional only. The input is expected to
// be zero on non-sell days.
func SellTax(sellNotional []float64, taxBP float64) []float64 {
	rate := taxBP / 10000.0
	out := make([]float64, len(sellNotional))
	for i, n := range sellNotional {
		out[i] = n * rate
	}
	return out
}
