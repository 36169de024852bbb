package risk

import (
	"fmt"
	"math"

	"golang-quant/internal/engine"
)

// ApplyPOVConstraints throttles raw orders to a participation-of-volume cap,
// day by day. Each day a symbol may trade at most volume*pov shares, rounded
// down to minClip granularity; the unexecuted remainder becomes the next
// day's backlog and is never dropped. The returned series is dense over the
// panel's date x symbol grid.
func ApplyPOVConstraints(panel *engine.Panel, rawOrders *engine.MultiSeries, pov float64, minClip int) (*engine.MultiSeries, error) {
	if panel == nil || panel.Len() == 0 {
		return nil, fmt.Errorf("price panel is empty")
	}
	if rawOrders == nil {
		return nil, fmt.Errorf("raw orders series is nil")
	}

	dates := panel.DateAxis()
	symbols := panel.Symbols()

	// Unstack volume, missing days as 0 capacity.
	volumeWide := engine.NewGrid(dates, symbols)
	for si, sym := range symbols {
		frame := panel.Frame(sym)
		vol := frame.Column(engine.ColVolume)
		if vol == nil {
			return nil, fmt.Errorf("symbol %s: price frame must contain a %q column", sym, engine.ColVolume)
		}
		s := &engine.Series{Dates: frame.Dates, Values: vol}
		aligned := s.Reindex(dates, 0.0)
		for di := range dates {
			volumeWide.Set(di, si, aligned[di])
		}
	}

	if minClip < 1 {
		minClip = 1
	}
	clip := float64(minClip)

	executed := engine.NewMultiSeries()
	backlog := make([]float64, len(symbols))

	for di, date := range dates {
		for si, sym := range symbols {
			raw, _ := rawOrders.Get(sym, date)
			want := raw + backlog[si]

			capacity := volumeWide.At(di, si) * pov
			allowed := math.Floor(capacity/clip) * clip

			var filled float64
			if want > 0 {
				filled = math.Min(want, allowed)
			} else if want < 0 {
				filled = math.Max(want, -allowed)
			}

			executed.Add(sym, date, filled)
			backlog[si] = want - filled
		}
	}
	return executed, nil
}
