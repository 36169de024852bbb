package engine

import (
	"fmt"
	"math"
)

// ATR computes the n-period average true range. The first n-1 entries are NaN
// until a full window is available.
func ATR(frame *Frame, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("atr period must be positive, got %d", n)
	}
	high := frame.Column(ColHigh)
	low := frame.Column(ColLow)
	closes := frame.Column(ColClose)
	if high == nil || low == nil || closes == nil {
		return nil, fmt.Errorf("atr requires %q, %q and %q columns", ColHigh, ColLow, ColClose)
	}

	rows := frame.Len()
	tr := make([]float64, rows)
	for i := 0; i < rows; i++ {
		r := high[i] - low[i]
		if i > 0 {
			prevClose := closes[i-1]
			r = math.Max(r, math.Abs(high[i]-prevClose))
			r = math.Max(r, math.Abs(low[i]-prevClose))
		}
		tr[i] = r
	}

	out := make([]float64, rows)
	var windowSum float64
	for i := 0; i < rows; i++ {
		windowSum += tr[i]
		if i >= n {
			windowSum -= tr[i-n]
		}
		if i >= n-1 {
			out[i] = windowSum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}
