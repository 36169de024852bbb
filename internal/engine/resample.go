package engine

import (
	"fmt"
	"math"
	"time"
)

// Interval identifies a bar period for resampling.
type Interval string

const (
	IntervalDaily   Interval = "1d"
	IntervalWeekly  Interval = "1w"
	IntervalMonthly Interval = "1M"
)

// Resample downsamples a daily OHLCV frame to a coarser interval: open
// first, high max, low min, close last, volume and turnover summed,
// open interest last. Missing turnover is derived as close*volume and
// missing open interest defaults to 0, resolved once before aggregation.
// Buckets missing any OHLC value are dropped. Each bucket is labeled with
// its last observed date.
func Resample(frame *Frame, to Interval) (*Frame, error) {
	if frame == nil || frame.Len() == 0 {
		return NewFrame(nil, map[string][]float64{})
	}

	var bucketOf func(t time.Time) string
	switch to {
	case IntervalWeekly:
		bucketOf = func(t time.Time) string {
			y, w := t.ISOWeek()
			return fmt.Sprintf("%04d-W%02d", y, w)
		}
	case IntervalMonthly:
		bucketOf = func(t time.Time) string {
			return t.Format("2006-01")
		}
	default:
		return nil, fmt.Errorf("unsupported resample interval: %s", to)
	}

	open := frame.Column(ColOpen)
	high := frame.Column(ColHigh)
	low := frame.Column(ColLow)
	closes := frame.Column(ColClose)
	volume := frame.Column(ColVolume)
	if open == nil || high == nil || low == nil || closes == nil || volume == nil {
		return nil, fmt.Errorf("resample requires open/high/low/close/volume columns")
	}

	turnover := frame.Column(ColTurnover)
	if turnover == nil {
		turnover = make([]float64, frame.Len())
		for i := range turnover {
			turnover[i] = closes[i] * volume[i]
		}
	}
	openInterest := frame.Column(ColOpenInterest)
	if openInterest == nil {
		openInterest = make([]float64, frame.Len())
	}

	type bucket struct {
		date                   time.Time
		open, high, low, close float64
		volume, turnover, oi   float64
		hasNaN                 bool
		rows                   int
	}
	var order []string
	buckets := make(map[string]*bucket)

	for i, d := range frame.Dates {
		key := bucketOf(d)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{open: open[i], high: math.Inf(-1), low: math.Inf(1)}
			buckets[key] = b
			order = append(order, key)
		}
		b.date = d
		b.high = math.Max(b.high, high[i])
		b.low = math.Min(b.low, low[i])
		b.close = closes[i]
		b.volume += volume[i]
		b.turnover += turnover[i]
		b.oi = openInterest[i]
		b.rows++
		if math.IsNaN(open[i]) || math.IsNaN(high[i]) || math.IsNaN(low[i]) || math.IsNaN(closes[i]) {
			b.hasNaN = true
		}
	}

	var (
		dates                                     []time.Time
		outO, outH, outL, outC, outV, outT, outOI []float64
	)
	for _, key := range order {
		b := buckets[key]
		if b.hasNaN {
			continue
		}
		dates = append(dates, b.date)
		outO = append(outO, b.open)
		outH = append(outH, b.high)
		outL = append(outL, b.low)
		outC = append(outC, b.close)
		outV = append(outV, b.volume)
		outT = append(outT, b.turnover)
		outOI = append(outOI, b.oi)
	}

	return NewFrame(dates, map[string][]float64{
		ColOpen:         outO,
		ColHigh:         outH,
		ColLow:          outL,
		ColClose:        outC,
		ColVolume:       outV,
		ColTurnover:     outT,
		ColOpenInterest: outOI,
	})
}
