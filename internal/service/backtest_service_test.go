package service

import (
	"context"
	"testing"
	"time"

	"golang-quant/config"
	"golang-quant/internal/dto"
	"golang-quant/internal/model"
	"golang-quant/pkg/logger"
	"golang-quant/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCandleRepo struct {
	data map[string]*dto.CandleData
}

func (s *stubCandleRepo) Get(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleData, error) {
	if data, ok := s.data[param.Symbol]; ok {
		return data, nil
	}
	return &dto.CandleData{Symbol: param.Symbol, Interval: dto.Interval1Day}, nil
}

type stubRunRepo struct {
	runs map[string]*model.BacktestRun
}

func newStubRunRepo() *stubRunRepo {
	return &stubRunRepo{runs: make(map[string]*model.BacktestRun)}
}

func (s *stubRunRepo) Create(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error {
	copied := *run
	s.runs[run.RunID] = &copied
	return nil
}

func (s *stubRunRepo) Update(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error {
	copied := *run
	s.runs[run.RunID] = &copied
	return nil
}

func (s *stubRunRepo) GetByRunID(ctx context.Context, runID string) (*model.BacktestRun, error) {
	return s.runs[runID], nil
}

func (s *stubRunRepo) GetRuns(ctx context.Context, param model.GetBacktestRunsParam) ([]model.BacktestRun, error) {
	out := make([]model.BacktestRun, 0, len(s.runs))
	for _, run := range s.runs {
		if param.Kind != nil && run.Kind != *param.Kind {
			continue
		}
		if param.Status != nil && run.Status != *param.Status {
			continue
		}
		out = append(out, *run)
	}
	return out, nil
}

func dailyCandles(symbol string, start time.Time, closes []float64, volumes []float64) *dto.CandleData {
	candles := make([]dto.Candle, len(closes))
	for i, c := range closes {
		vol := 1000.0
		if volumes != nil {
			vol = volumes[i]
		}
		candles[i] = dto.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: vol,
		}
	}
	return &dto.CandleData{Symbol: symbol, Interval: dto.Interval1Day, Candles: candles}
}

func testBacktestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Backtest.Capital = 1_000_000
	cfg.Backtest.TradingDays = 252
	cfg.Scheduler.MaxConcurrency = 2
	return cfg
}

func newTestBacktestService(t *testing.T, candles *stubCandleRepo, runs *stubRunRepo) BacktestService {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return NewBacktestService(testBacktestConfig(), log, candles, runs, nil, nil)
}

func zeroCostOverride() dto.CostOverride {
	zero := 0.0
	return dto.CostOverride{FeeBP: &zero, SlipBP: &zero, TaxBPSell: &zero}
}

func TestRunSingleRoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := &stubCandleRepo{data: map[string]*dto.CandleData{
		"AAA": dailyCandles("AAA", start, []float64{100, 101, 99, 102}, nil),
	}}
	runs := newStubRunRepo()
	svc := newTestBacktestService(t, candles, runs)

	resp, err := svc.RunSingle(context.Background(), dto.BacktestRequest{
		Symbol:    "AAA",
		StartDate: "2024-01-02",
		EndDate:   "2024-01-05",
		Orders: []dto.OrderPoint{
			{Date: "2024-01-03", Shares: 100},
			{Date: "2024-01-05", Shares: -100},
		},
		Costs: zeroCostOverride(),
	})
	require.NoError(t, err)

	require.Len(t, resp.DailyPnL, 4)
	assert.InDelta(t, 0.0, resp.DailyPnL[0].Value, 1e-9)
	assert.InDelta(t, 0.0, resp.DailyPnL[1].Value, 1e-9)
	assert.InDelta(t, -200.0, resp.DailyPnL[2].Value, 1e-9)
	assert.InDelta(t, 300.0, resp.DailyPnL[3].Value, 1e-9)

	require.Len(t, resp.EquityCurve, 4)
	assert.InDelta(t, 100.0, resp.EquityCurve[3].Value, 1e-9)

	stored := runs.runs[resp.RunID]
	require.NotNil(t, stored)
	assert.Equal(t, model.RunStatusCompleted, stored.Status)
	assert.Equal(t, model.RunKindSingle, stored.Kind)
	assert.True(t, stored.CompletedAt.Valid)
}

func TestRunSingleUnknownSymbol(t *testing.T) {
	candles := &stubCandleRepo{data: map[string]*dto.CandleData{}}
	svc := newTestBacktestService(t, candles, newStubRunRepo())

	_, err := svc.RunSingle(context.Background(), dto.BacktestRequest{
		Symbol:    "NOPE",
		StartDate: "2024-01-02",
		EndDate:   "2024-01-05",
		Orders:    []dto.OrderPoint{{Date: "2024-01-02", Shares: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candles found")
}

func TestRunPortfolioSumsSymbols(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := &stubCandleRepo{data: map[string]*dto.CandleData{
		"AAA": dailyCandles("AAA", start, []float64{100, 102, 104}, nil),
		"BBB": dailyCandles("BBB", start, []float64{50, 49, 48}, nil),
	}}
	runs := newStubRunRepo()
	svc := newTestBacktestService(t, candles, runs)

	resp, err := svc.RunPortfolio(context.Background(), dto.PortfolioBacktestRequest{
		StartDate: "2024-01-02",
		EndDate:   "2024-01-04",
		Orders: map[string][]dto.OrderPoint{
			"AAA": {{Date: "2024-01-02", Shares: 10}},
			"BBB": {{Date: "2024-01-02", Shares: 10}},
		},
		Costs: zeroCostOverride(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, resp.Symbols)
	require.Len(t, resp.DailyPnL, 3)
	// day 1: AAA +20, BBB -10; day 2: AAA +20, BBB -10
	assert.InDelta(t, 10.0, resp.DailyPnL[1].Value, 1e-9)
	assert.InDelta(t, 10.0, resp.DailyPnL[2].Value, 1e-9)
}

func TestRunRebalanceT1Lag(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := &stubCandleRepo{data: map[string]*dto.CandleData{
		"AAA": dailyCandles("AAA", start, []float64{10, 10, 10}, nil),
	}}
	runs := newStubRunRepo()
	svc := newTestBacktestService(t, candles, runs)

	capital := 1000.0
	resp, err := svc.RunRebalance(context.Background(), dto.RebalanceBacktestRequest{
		StartDate: "2024-01-02",
		EndDate:   "2024-01-04",
		Weights: []dto.WeightPoint{
			{Date: "2024-01-02", Weights: map[string]float64{"AAA": 1.0}},
		},
		Capital: &capital,
		Costs:   zeroCostOverride(),
	})
	require.NoError(t, err)

	// Flat prices and zero costs: equity stays at the starting capital even
	// though the target position fills on day t+1.
	require.Len(t, resp.EquityCurve, 3)
	for _, point := range resp.EquityCurve {
		assert.InDelta(t, 1000.0, point.Value, 1e-9)
	}

	stored := runs.runs[resp.RunID]
	require.NotNil(t, stored)
	assert.Equal(t, model.RunKindRebalance, stored.Kind)
	assert.Equal(t, model.RunStatusCompleted, stored.Status)
}

func TestRunRebalanceWithPOVThrottle(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := &stubCandleRepo{data: map[string]*dto.CandleData{
		"AAA": dailyCandles("AAA", start, []float64{10, 10, 10}, []float64{1000, 1000, 1000}),
	}}
	runs := newStubRunRepo()
	svc := newTestBacktestService(t, candles, runs)

	capital := 100_000.0
	pov := 0.1
	resp, err := svc.RunRebalance(context.Background(), dto.RebalanceBacktestRequest{
		StartDate: "2024-01-02",
		EndDate:   "2024-01-04",
		Weights: []dto.WeightPoint{
			{Date: "2024-01-02", Weights: map[string]float64{"AAA": 1.0}},
		},
		Capital: &capital,
		POV:     &pov,
		Costs:   zeroCostOverride(),
	})
	require.NoError(t, err)
	require.Len(t, resp.DailyPnL, 3)

	// Flat prices, zero costs: throttled or not, no P&L.
	for _, point := range resp.DailyPnL {
		assert.InDelta(t, 0.0, point.Value, 1e-9)
	}
}

func TestGetRunsFiltersKind(t *testing.T) {
	runs := newStubRunRepo()
	runs.runs["a"] = &model.BacktestRun{RunID: "a", Kind: model.RunKindSingle, Status: model.RunStatusCompleted}
	runs.runs["b"] = &model.BacktestRun{RunID: "b", Kind: model.RunKindRebalance, Status: model.RunStatusCompleted}

	svc := newTestBacktestService(t, &stubCandleRepo{}, runs)

	items, err := svc.GetRuns(context.Background(), dto.GetBacktestRunsRequest{Kind: "single"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].RunID)
}

func TestRerunSavedReplaysCompletedRuns(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := &stubCandleRepo{data: map[string]*dto.CandleData{
		"AAA": dailyCandles("AAA", start, []float64{100, 101, 99, 102}, nil),
	}}
	runs := newStubRunRepo()
	svc := newTestBacktestService(t, candles, runs)

	_, err := svc.RunSingle(context.Background(), dto.BacktestRequest{
		Symbol:    "AAA",
		StartDate: "2024-01-02",
		EndDate:   "2024-01-05",
		Orders:    []dto.OrderPoint{{Date: "2024-01-03", Shares: 100}},
		Costs:     zeroCostOverride(),
	})
	require.NoError(t, err)

	// A failed run must not be replayed.
	runs.runs["dead"] = &model.BacktestRun{
		RunID:  "dead",
		Kind:   model.RunKindSingle,
		Status: model.RunStatusFailed,
		Params: []byte(`{}`),
	}

	replayed, err := svc.RerunSaved(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)
	assert.Len(t, runs.runs, 3)

	for id, run := range runs.runs {
		if id == "dead" {
			continue
		}
		assert.Equal(t, model.RunStatusCompleted, run.Status)
		assert.Equal(t, model.RunKindSingle, run.Kind)
	}
}

func TestRerunSavedSkipsDuplicateParams(t *testing.T) {
	runs := newStubRunRepo()
	params := []byte(`{"symbol":"AAA","start_date":"2024-01-02","end_date":"2024-01-05"}`)
	runs.runs["a"] = &model.BacktestRun{RunID: "a", Kind: model.RunKindSingle, Status: model.RunStatusCompleted, Params: params}
	runs.runs["b"] = &model.BacktestRun{RunID: "b", Kind: model.RunKindSingle, Status: model.RunStatusCompleted, Params: params}

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := &stubCandleRepo{data: map[string]*dto.CandleData{
		"AAA": dailyCandles("AAA", start, []float64{100, 101, 99, 102}, nil),
	}}
	svc := newTestBacktestService(t, candles, runs)

	replayed, err := svc.RerunSaved(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)
}

func TestParseDateRange(t *testing.T) {
	_, _, err := parseDateRange("2024-01-05", "2024-01-02")
	require.Error(t, err)

	_, _, err = parseDateRange("bogus", "2024-01-02")
	require.Error(t, err)

	from, to, err := parseDateRange("2024-01-02", "2024-01-05")
	require.NoError(t, err)
	assert.True(t, to.After(from))
}

func TestWeightPointsToGridCarriesForward(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	}
	grid, err := weightPointsToGrid([]dto.WeightPoint{
		{Date: "2024-01-03", Weights: map[string]float64{"AAA": 0.6, "BBB": 0.4}},
	}, dates, []string{"AAA", "BBB"})
	require.NoError(t, err)

	// Before the first point, weights stay zero.
	assert.Equal(t, 0.0, grid.At(0, 0))
	// On and after the point date, the weights hold.
	assert.Equal(t, 0.6, grid.At(1, 0))
	assert.Equal(t, 0.4, grid.At(2, 1))
}
