package engine

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Column names recognized on a price Frame. Close is the only column the
// engine itself requires; the rest are consumed by indicators and resampling.
const (
	ColOpen         = "open"
	ColHigh         = "high"
	ColLow          = "low"
	ColClose        = "close"
	ColVolume       = "volume"
	ColTurnover     = "turnover"
	ColOpenInterest = "open_interest"
)

// Series is a date-indexed float column. Dates are ascending and unique per
// series; Values is parallel to Dates.
type Series struct {
	Dates  []time.Time
	Values []float64
}

// NewSeries builds a Series from parallel slices.
func NewSeries(dates []time.Time, values []float64) (*Series, error) {
	if len(dates) != len(values) {
		return nil, fmt.Errorf("series dates length %d does not match values length %d", len(dates), len(values))
	}
	return &Series{Dates: dates, Values: values}, nil
}

// Len returns the number of observations.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Dates)
}

// Reindex aligns the series onto the given date axis. Dates present in the
// series keep their value, missing dates take fill.
func (s *Series) Reindex(dates []time.Time, fill float64) []float64 {
	out := make([]float64, len(dates))
	byDate := make(map[int64]float64, s.Len())
	if s != nil {
		for i, d := range s.Dates {
			byDate[d.Unix()] = s.Values[i]
		}
	}
	for i, d := range dates {
		if v, ok := byDate[d.Unix()]; ok {
			out[i] = v
		} else {
			out[i] = fill
		}
	}
	return out
}

// Frame is a single-symbol table of date-aligned columns, the engine's view
// of one symbol's OHLCV history. Dates are ascending and unique.
type Frame struct {
	Dates []time.Time
	Cols  map[string][]float64
}

// NewFrame builds a Frame and checks every column is parallel to the date axis.
func NewFrame(dates []time.Time, cols map[string][]float64) (*Frame, error) {
	for name, col := range cols {
		if len(col) != len(dates) {
			return nil, fmt.Errorf("column %q length %d does not match %d dates", name, len(col), len(dates))
		}
	}
	return &Frame{Dates: dates, Cols: cols}, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Dates)
}

// Column returns the named column, or nil when absent.
func (f *Frame) Column(name string) []float64 {
	if f == nil {
		return nil
	}
	return f.Cols[name]
}

// Close returns the close column, which every engine entry point requires.
func (f *Frame) Close() ([]float64, error) {
	closes := f.Column(ColClose)
	if closes == nil {
		return nil, fmt.Errorf("price frame must contain a %q column", ColClose)
	}
	return closes, nil
}

// Panel is a multi-symbol collection of Frames sharing date semantics, the
// Go rendition of a (symbol, date) indexed table.
type Panel struct {
	frames  map[string]*Frame
	symbols []string
}

// NewPanel returns an empty panel.
func NewPanel() *Panel {
	return &Panel{frames: make(map[string]*Frame)}
}

// Add registers a symbol's frame, replacing any previous one.
func (p *Panel) Add(symbol string, f *Frame) {
	if _, exists := p.frames[symbol]; !exists {
		p.symbols = append(p.symbols, symbol)
		sort.Strings(p.symbols)
	}
	p.frames[symbol] = f
}

// Frame returns the frame for a symbol, or nil when the symbol is unknown.
func (p *Panel) Frame(symbol string) *Frame {
	if p == nil {
		return nil
	}
	return p.frames[symbol]
}

// Symbols returns the panel's symbols in sorted order.
func (p *Panel) Symbols() []string {
	if p == nil {
		return nil
	}
	return p.symbols
}

// Len returns the number of symbols.
func (p *Panel) Len() int {
	if p == nil {
		return 0
	}
	return len(p.symbols)
}

// DateAxis returns the sorted union of all per-symbol date axes. Result
// frames for portfolio runs are aligned onto this axis.
func (p *Panel) DateAxis() []time.Time {
	seen := make(map[int64]time.Time)
	for _, sym := range p.symbols {
		for _, d := range p.frames[sym].Dates {
			seen[d.Unix()] = d
		}
	}
	axis := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		axis = append(axis, d)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return axis
}

// CloseGrid unstacks the panel's close column onto a date x symbol grid.
// Dates a symbol never traded on hold NaN.
func (p *Panel) CloseGrid(dates []time.Time) (*Grid, error) {
	g := NewGrid(dates, p.Symbols())
	g.Fill(math.NaN())
	for si, sym := range p.Symbols() {
		frame := p.frames[sym]
		closes, err := frame.Close()
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", sym, err)
		}
		s := &Series{Dates: frame.Dates, Values: closes}
		col := s.Reindex(dates, math.NaN())
		for di := range dates {
			g.Set(di, si, col[di])
		}
	}
	return g, nil
}

// Grid is a dense date x symbol matrix: one wide result or input frame.
type Grid struct {
	Dates   []time.Time
	Symbols []string
	values  [][]float64

	symIdx map[string]int
}

// NewGrid allocates a zero-filled grid over the given axes.
func NewGrid(dates []time.Time, symbols []string) *Grid {
	values := make([][]float64, len(dates))
	for i := range values {
		values[i] = make([]float64, len(symbols))
	}
	symIdx := make(map[string]int, len(symbols))
	for i, s := range symbols {
		symIdx[s] = i
	}
	return &Grid{Dates: dates, Symbols: symbols, values: values, symIdx: symIdx}
}

// Fill sets every cell to v.
func (g *Grid) Fill(v float64) {
	for _, row := range g.values {
		for i := range row {
			row[i] = v
		}
	}
}

// At returns the cell at (date index, symbol index).
func (g *Grid) At(di, si int) float64 {
	return g.values[di][si]
}

// Set writes the cell at (date index, symbol index).
func (g *Grid) Set(di, si int, v float64) {
	g.values[di][si] = v
}

// SymbolIndex returns the column index for a symbol, or -1 when absent.
func (g *Grid) SymbolIndex(symbol string) int {
	if idx, ok := g.symIdx[symbol]; ok {
		return idx
	}
	return -1
}

// Column returns a copy of one symbol's column, or nil when the symbol is
// absent.
func (g *Grid) Column(symbol string) []float64 {
	si := g.SymbolIndex(symbol)
	if si < 0 {
		return nil
	}
	col := make([]float64, len(g.Dates))
	for di := range g.Dates {
		col[di] = g.values[di][si]
	}
	return col
}

// Row returns a copy of one date's row.
func (g *Grid) Row(di int) []float64 {
	row := make([]float64, len(g.Symbols))
	copy(row, g.values[di])
	return row
}

// SetColumn writes a full column for a symbol.
func (g *Grid) SetColumn(symbol string, values []float64) {
	si := g.SymbolIndex(symbol)
	if si < 0 {
		return
	}
	for di := range g.Dates {
		g.values[di][si] = values[di]
	}
}

// RowSums returns the per-date sum across symbols, skipping NaN cells.
func (g *Grid) RowSums() []float64 {
	out := make([]float64, len(g.Dates))
	for di, row := range g.values {
		var sum float64
		for _, v := range row {
			if !math.IsNaN(v) {
				sum += v
			}
		}
		out[di] = sum
	}
	return out
}

// Reindex aligns the grid onto new axes, filling cells absent from the
// original with fill.
func (g *Grid) Reindex(dates []time.Time, symbols []string, fill float64) *Grid {
	out := NewGrid(dates, symbols)
	out.Fill(fill)
	dateIdx := make(map[int64]int, len(g.Dates))
	for i, d := range g.Dates {
		dateIdx[d.Unix()] = i
	}
	for si, sym := range symbols {
		srcSi := g.SymbolIndex(sym)
		if srcSi < 0 {
			continue
		}
		for di, d := range dates {
			if srcDi, ok := dateIdx[d.Unix()]; ok {
				out.Set(di, si, g.values[srcDi][srcSi])
			}
		}
	}
	return out
}

// MultiSeries is a (symbol, date) keyed quantity series: the order book
// handed to the portfolio backtester, or produced by the rebalancing
// utilities.
type MultiSeries struct {
	qty     map[string]map[int64]float64
	dates   map[string]map[int64]time.Time
	symbols []string
}

// NewMultiSeries returns an empty series.
func NewMultiSeries() *MultiSeries {
	return &MultiSeries{
		qty:   make(map[string]map[int64]float64),
		dates: make(map[string]map[int64]time.Time),
	}
}

// Add records a quantity for (symbol, date), overwriting any previous entry.
func (m *MultiSeries) Add(symbol string, date time.Time, quantity float64) {
	if _, ok := m.qty[symbol]; !ok {
		m.qty[symbol] = make(map[int64]float64)
		m.dates[symbol] = make(map[int64]time.Time)
		m.symbols = append(m.symbols, symbol)
		sort.Strings(m.symbols)
	}
	m.qty[symbol][date.Unix()] = quantity
	m.dates[symbol][date.Unix()] = date
}

// Get returns the quantity for (symbol, date) and whether it was set.
func (m *MultiSeries) Get(symbol string, date time.Time) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m.qty[symbol][date.Unix()]
	return v, ok
}

// Symbols returns the symbols present, sorted.
func (m *MultiSeries) Symbols() []string {
	if m == nil {
		return nil
	}
	return m.symbols
}

// Len returns the total number of (symbol, date) entries.
func (m *MultiSeries) Len() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, bySym := range m.qty {
		n += len(bySym)
	}
	return n
}

// Aligned returns one symbol's quantities aligned onto the given date axis,
// with missing entries as 0.
func (m *MultiSeries) Aligned(symbol string, dates []time.Time) []float64 {
	out := make([]float64, len(dates))
	if m == nil {
		return out
	}
	bySym := m.qty[symbol]
	for i, d := range dates {
		out[i] = bySym[d.Unix()]
	}
	return out
}
