package engine

import (
	"fmt"
	"math"
)

// DefaultTradingDays is the conventional number of trading days per year.
const DefaultTradingDays = 252

// Summary bundles the headline performance metrics of a daily P&L series.
type Summary struct {
	TotalPnL    float64 `json:"total_pnl"`
	CAGR        float64 `json:"cagr"`
	Sharpe      float64 `json:"sharpe"`
	AnnVol      float64 `json:"ann_vol"`
	MaxDrawdown float64 `json:"max_drawdown"`
	MaxDDPct    float64 `json:"max_dd_pct"`
	DaysWon     int     `json:"days_won"`
	DaysLost    int     `json:"days_lost"`
	WinRateDay  float64 `json:"win_rate_day"`
	AvgWinDay   float64 `json:"avg_win_day"`
	AvgLossDay  float64 `json:"avg_loss_day"`
}

// cleanValues drops NaN observations, keeping order.
func cleanValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// EquityCurve is the cumulative sum of daily P&L.
func EquityCurve(pnl []float64) []float64 {
	out := make([]float64, 0, len(pnl))
	var cum float64
	for _, v := range cleanValues(pnl) {
		cum += v
		out = append(out, cum)
	}
	return out
}

// DailyReturns converts daily P&L to simple returns on a fixed capital base.
func DailyReturns(pnl []float64, capital float64) ([]float64, error) {
	if capital <= 0 {
		return nil, fmt.Errorf("capital must be positive, got %v", capital)
	}
	clean := cleanValues(pnl)
	out := make([]float64, len(clean))
	for i, v := range clean {
		out[i] = v / capital
	}
	return out, nil
}

// MaxDrawdown returns the deepest peak-to-trough drop of an equity curve and
// the indices of the peak and trough. Empty input returns (0, -1, -1).
func MaxDrawdown(curve []float64) (mdd float64, peakIdx, troughIdx int) {
	clean := cleanValues(curve)
	if len(clean) == 0 {
		return 0, -1, -1
	}
	peakIdx, troughIdx = 0, 0
	peak := clean[0]
	curPeakIdx := 0
	for i, v := range clean {
		if v > peak {
			peak = v
			curPeakIdx = i
		}
		if dd := v - peak; dd < mdd {
			mdd = dd
			peakIdx = curPeakIdx
			troughIdx = i
		}
	}
	return mdd, peakIdx, troughIdx
}

// CAGR annualizes compounded returns over tradingDays-day years. A total
// return at or below -100% floors at -1.
func CAGR(returns []float64, tradingDays int) float64 {
	clean := cleanValues(returns)
	if len(clean) == 0 {
		return 0
	}
	total := 1.0
	for _, r := range clean {
		total *= 1 + r
	}
	if total <= 0 {
		return -1
	}
	years := float64(len(clean)) / float64(tradingDays)
	return math.Pow(total, 1/years) - 1
}

// AnnualVolatility is the population standard deviation of daily returns,
// annualized.
func AnnualVolatility(returns []float64, tradingDays int) float64 {
	clean := cleanValues(returns)
	if len(clean) == 0 {
		return 0
	}
	return stddev(clean) * math.Sqrt(float64(tradingDays))
}

// SharpeRatio computes the annualized Sharpe ratio of daily returns against
// an annual risk-free rate.
func SharpeRatio(returns []float64, rfAnnual float64, tradingDays int) float64 {
	clean := cleanValues(returns)
	if len(clean) == 0 {
		return 0
	}
	rfDaily := dailyRiskFree(rfAnnual, tradingDays)
	excess := make([]float64, len(clean))
	for i, r := range clean {
		excess[i] = r - rfDaily
	}
	sd := stddev(excess)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return mean(excess) / sd * math.Sqrt(float64(tradingDays))
}

// ComputeSummary computes the full metric set from a daily P&L series.
func ComputeSummary(pnl []float64, capital, rfAnnual float64, tradingDays int) (Summary, error) {
	if tradingDays <= 0 {
		tradingDays = DefaultTradingDays
	}
	clean := cleanValues(pnl)
	returns, err := DailyReturns(clean, capital)
	if err != nil {
		return Summary{}, err
	}
	curve := EquityCurve(clean)

	mdd, _, troughIdx := MaxDrawdown(curve)
	var mddPct float64
	if troughIdx >= 0 {
		peak := 0.0
		for i := 0; i <= troughIdx; i++ {
			if curve[i] > peak {
				peak = curve[i]
			}
		}
		if peak != 0 {
			mddPct = mdd / peak
		}
	}

	var wins, losses, active int
	var winSum, lossSum, total float64
	for _, v := range clean {
		total += v
		switch {
		case v > 0:
			wins++
			winSum += v
			active++
		case v < 0:
			losses++
			lossSum += v
			active++
		}
	}
	s := Summary{
		TotalPnL:    total,
		CAGR:        CAGR(returns, tradingDays),
		Sharpe:      SharpeRatio(returns, rfAnnual, tradingDays),
		AnnVol:      AnnualVolatility(returns, tradingDays),
		MaxDrawdown: mdd,
		MaxDDPct:    mddPct,
		DaysWon:     wins,
		DaysLost:    losses,
	}
	if active > 0 {
		s.WinRateDay = float64(wins) / float64(active)
	}
	if wins > 0 {
		s.AvgWinDay = winSum / float64(wins)
	}
	if losses > 0 {
		s.AvgLossDay = lossSum / float64(losses)
	}
	return s, nil
}

func dailyRiskFree(rfAnnual float64, tradingDays int) float64 {
	if rfAnnual <= -0.9999 {
		return 0
	}
	return math.Pow(1+rfAnnual, 1/float64(tradingDays)) - 1
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(values)))
}
