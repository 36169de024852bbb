package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang-quant/config"
	"golang-quant/internal/dto"
	"golang-quant/internal/engine"
	"golang-quant/internal/model"
	"golang-quant/internal/repository"
	"golang-quant/internal/risk"
	"golang-quant/pkg/logger"
	"golang-quant/pkg/telegram"
	"golang-quant/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

type BacktestService interface {
	RunSingle(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResponse, error)
	RunPortfolio(ctx context.Context, req dto.PortfolioBacktestRequest) (*dto.BacktestResponse, error)
	RunRebalance(ctx context.Context, req dto.RebalanceBacktestRequest) (*dto.BacktestResponse, error)
	GetRuns(ctx context.Context, req dto.GetBacktestRunsRequest) ([]dto.BacktestRunItem, error)
	RerunSaved(ctx context.Context, limit int) (int, error)
}

type backtestService struct {
	cfg        *config.Config
	log        *logger.Logger
	candleRepo repository.CandleRepository
	runRepo    repository.BacktestRunRepository
	aiRepo     repository.AIRepository
	notifier   *telegram.Notifier
}

func NewBacktestService(
	cfg *config.Config,
	log *logger.Logger,
	candleRepo repository.CandleRepository,
	runRepo repository.BacktestRunRepository,
	aiRepo repository.AIRepository,
	notifier *telegram.Notifier,
) BacktestService {
	return &backtestService{
		cfg:        cfg,
		log:        log,
		candleRepo: candleRepo,
		runRepo:    runRepo,
		aiRepo:     aiRepo,
		notifier:   notifier,
	}
}

func (s *backtestService) RunSingle(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResponse, error) {
	from, to, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	frame, err := s.loadFrame(ctx, req.Symbol, req.Exchange, from, to)
	if err != nil {
		return nil, err
	}

	orders, err := orderPointsToSeries(req.Orders)
	if err != nil {
		return nil, err
	}

	costs := s.costParams(req.Costs)

	run, err := s.startRun(ctx, model.RunKindSingle, req)
	if err != nil {
		return nil, err
	}

	result, err := engine.RunCloseFill(frame, orders, costs)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}

	summary, err := engine.ComputeSummary(result.DailyPnL, s.cfg.Backtest.Capital, s.cfg.Backtest.RfAnnual, s.cfg.Backtest.TradingDays)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}

	equity := engine.EquityCurve(result.DailyPnL)
	return s.finishRun(ctx, run, []string{req.Symbol}, &summary, result.Dates, result.DailyPnL, equity, req.Commentary, req.Notify)
}

func (s *backtestService) RunPortfolio(ctx context.Context, req dto.PortfolioBacktestRequest) (*dto.BacktestResponse, error) {
	from, to, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(req.Orders))
	for symbol := range req.Orders {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	panel, err := s.loadPanel(ctx, symbols, req.Exchange, from, to)
	if err != nil {
		return nil, err
	}

	orders := engine.NewMultiSeries()
	for symbol, points := range req.Orders {
		for _, point := range points {
			date, err := utils.ParseDate(point.Date)
			if err != nil {
				return nil, fmt.Errorf("invalid order date %q for %s: %w", point.Date, symbol, err)
			}
			orders.Add(symbol, date, point.Shares)
		}
	}

	costs := s.costParams(req.Costs)

	run, err := s.startRun(ctx, model.RunKindPortfolio, req)
	if err != nil {
		return nil, err
	}

	result, err := engine.RunCloseFillPortfolio(panel, orders, costs)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}

	summary, err := engine.ComputeSummary(result.PortfolioPnL, s.cfg.Backtest.Capital, s.cfg.Backtest.RfAnnual, s.cfg.Backtest.TradingDays)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}

	equity := engine.EquityCurve(result.PortfolioPnL)
	return s.finishRun(ctx, run, symbols, &summary, result.Dates, result.PortfolioPnL, equity, req.Commentary, req.Notify)
}

func (s *backtestService) RunRebalance(ctx context.Context, req dto.RebalanceBacktestRequest) (*dto.BacktestResponse, error) {
	from, to, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	symbols := weightSymbols(req.Weights)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("weights contain no symbols")
	}

	panel, err := s.loadPanel(ctx, symbols, req.Exchange, from, to)
	if err != nil {
		return nil, err
	}

	dates := panel.DateAxis()
	weights, err := weightPointsToGrid(req.Weights, dates, symbols)
	if err != nil {
		return nil, err
	}

	capital := utils.ValueOr(req.Capital, s.cfg.Backtest.Capital)
	lotSize := utils.ValueOr(req.LotSize, s.cfg.Backtest.LotSize)
	costs := s.costParams(req.Costs)

	run, err := s.startRun(ctx, model.RunKindRebalance, req)
	if err != nil {
		return nil, err
	}

	var (
		pnl    []float64
		equity []float64
	)

	if req.POV != nil {
		// Throttled path: size orders off the weight targets, clip them to
		// participation-of-volume capacity, then fill at the close.
		maxWeight := utils.ValueOr(req.MaxWeight, 1.0)
		orders, err := risk.RebalanceWithRiskLimits(panel, weights, capital, maxWeight, lotSize, req.POV)
		if err != nil {
			s.failRun(ctx, run, err)
			return nil, err
		}

		result, err := engine.RunCloseFillPortfolio(panel, orders, costs)
		if err != nil {
			s.failRun(ctx, run, err)
			return nil, err
		}
		pnl = result.PortfolioPnL
		equity = engine.EquityCurve(result.PortfolioPnL)
		dates = result.Dates
	} else {
		if req.MaxWeight != nil {
			limits, err := risk.CalculatePositionLimits(panel, *req.MaxWeight, nil, capital)
			if err != nil {
				s.failRun(ctx, run, err)
				return nil, err
			}
			weights = risk.ApplyPositionLimits(weights, limits, true)
		}

		result, err := engine.RunPortfolioT1Rebalance(panel, weights, engine.T1Config{
			Capital0: capital,
			Costs:    costs,
			LotSize:  float64(lotSize),
		})
		if err != nil {
			s.failRun(ctx, run, err)
			return nil, err
		}
		pnl = result.PortfolioPnL
		equity = result.Equity
		dates = result.Dates
	}

	summary, err := engine.ComputeSummary(pnl, capital, s.cfg.Backtest.RfAnnual, s.cfg.Backtest.TradingDays)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}

	return s.finishRun(ctx, run, symbols, &summary, dates, pnl, equity, req.Commentary, req.Notify)
}

func (s *backtestService) GetRuns(ctx context.Context, req dto.GetBacktestRunsRequest) ([]dto.BacktestRunItem, error) {
	param := model.GetBacktestRunsParam{Limit: req.Limit}
	if req.Kind != "" {
		param.Kind = utils.ToPointer(model.BacktestRunKind(req.Kind))
	}
	if req.Status != "" {
		param.Status = utils.ToPointer(model.BacktestRunStatus(req.Status))
	}

	runs, err := s.runRepo.GetRuns(ctx, param)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get backtest runs", logger.ErrorField(err))
		return nil, err
	}

	items := make([]dto.BacktestRunItem, 0, len(runs))
	for _, run := range runs {
		item := dto.BacktestRunItem{
			RunID:     run.RunID,
			Kind:      string(run.Kind),
			Status:    string(run.Status),
			StartedAt: run.StartedAt,
		}
		if run.CompletedAt.Valid {
			item.CompletedAt = utils.ToPointer(run.CompletedAt.Time)
		}
		if len(run.Summary) > 0 {
			var summary engine.Summary
			if err := json.Unmarshal(run.Summary, &summary); err == nil {
				item.Summary = summary
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// RerunSaved replays the most recent completed runs against the latest data,
// each under a fresh run id. Failures are logged and skipped so one bad run
// does not stop the batch.
func (s *backtestService) RerunSaved(ctx context.Context, limit int) (int, error) {
	runs, err := s.runRepo.GetRuns(ctx, model.GetBacktestRunsParam{
		Status: utils.ToPointer(model.RunStatusCompleted),
		Limit:  limit,
	})
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{})
	replayed := 0
	for _, run := range runs {
		// Recent windows often hold a run and last night's replay of it.
		key := string(run.Kind) + ":" + string(run.Params)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if err := s.replayRun(ctx, run); err != nil {
			s.log.WarnContext(ctx, "Failed to replay backtest run",
				logger.StringField("run_id", run.RunID),
				logger.StringField("kind", string(run.Kind)),
				logger.ErrorField(err),
			)
			continue
		}
		replayed++
	}
	return replayed, nil
}

func (s *backtestService) replayRun(ctx context.Context, run model.BacktestRun) error {
	switch run.Kind {
	case model.RunKindSingle:
		var req dto.BacktestRequest
		if err := json.Unmarshal(run.Params, &req); err != nil {
			return fmt.Errorf("failed to decode run params: %w", err)
		}
		_, err := s.RunSingle(ctx, req)
		return err
	case model.RunKindPortfolio:
		var req dto.PortfolioBacktestRequest
		if err := json.Unmarshal(run.Params, &req); err != nil {
			return fmt.Errorf("failed to decode run params: %w", err)
		}
		_, err := s.RunPortfolio(ctx, req)
		return err
	case model.RunKindRebalance:
		var req dto.RebalanceBacktestRequest
		if err := json.Unmarshal(run.Params, &req); err != nil {
			return fmt.Errorf("failed to decode run params: %w", err)
		}
		_, err := s.RunRebalance(ctx, req)
		return err
	default:
		return fmt.Errorf("unknown run kind %q", run.Kind)
	}
}

// loadPanel fetches daily candles per symbol concurrently and assembles them
// into a panel keyed by symbol.
func (s *backtestService) loadPanel(ctx context.Context, symbols []string, exchange string, from, to time.Time) (*engine.Panel, error) {
	frames := make([]*engine.Frame, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Scheduler.MaxConcurrency)

	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			frame, err := s.loadFrame(gctx, symbol, exchange, from, to)
			if err != nil {
				return fmt.Errorf("failed to load candles for %s: %w", symbol, err)
			}
			frames[i] = frame
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	panel := engine.NewPanel()
	for i, symbol := range symbols {
		panel.Add(symbol, frames[i])
	}
	return panel, nil
}

func (s *backtestService) loadFrame(ctx context.Context, symbol, exchange string, from, to time.Time) (*engine.Frame, error) {
	data, err := s.candleRepo.Get(ctx, dto.GetCandlesParam{
		Symbol:   symbol,
		Exchange: exchange,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, err
	}
	if len(data.Candles) == 0 {
		return nil, fmt.Errorf("no candles found for symbol %s", symbol)
	}
	return candlesToFrame(data.Candles)
}

func (s *backtestService) costParams(override dto.CostOverride) engine.CostParams {
	return engine.CostParams{
		FeeBP:     utils.ValueOr(override.FeeBP, s.cfg.Backtest.FeeBP),
		SlipBP:    utils.ValueOr(override.SlipBP, s.cfg.Backtest.SlipBP),
		TaxBPSell: utils.ValueOr(override.TaxBPSell, s.cfg.Backtest.TaxBPSell),
	}
}

func (s *backtestService) startRun(ctx context.Context, kind model.BacktestRunKind, params interface{}) (*model.BacktestRun, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run params: %w", err)
	}

	run := &model.BacktestRun{
		RunID:     uuid.NewString(),
		Kind:      kind,
		Status:    model.RunStatusRunning,
		Params:    datatypes.JSON(paramsJSON),
		StartedAt: time.Now().UTC(),
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		s.log.ErrorContext(ctx, "Failed to create backtest run", logger.ErrorField(err))
		return nil, err
	}

	s.log.InfoContext(ctx, "Backtest run started",
		logger.StringField("run_id", run.RunID),
		logger.StringField("kind", string(kind)),
	)
	return run, nil
}

func (s *backtestService) failRun(ctx context.Context, run *model.BacktestRun, cause error) {
	run.Status = model.RunStatusFailed
	run.ErrorMessage = sql.NullString{String: cause.Error(), Valid: true}
	run.CompletedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	if err := s.runRepo.Update(ctx, run); err != nil {
		s.log.ErrorContext(ctx, "Failed to mark backtest run as failed",
			logger.StringField("run_id", run.RunID),
			logger.ErrorField(err),
		)
	}
}

func (s *backtestService) finishRun(
	ctx context.Context,
	run *model.BacktestRun,
	symbols []string,
	summary *engine.Summary,
	dates []time.Time,
	pnl []float64,
	equity []float64,
	wantCommentary bool,
	notify bool,
) (*dto.BacktestResponse, error) {
	resp := &dto.BacktestResponse{
		RunID:       run.RunID,
		Kind:        string(run.Kind),
		Symbols:     symbols,
		Summary:     summary,
		DailyPnL:    toDailyPoints(dates, pnl),
		EquityCurve: toDailyPoints(dates, equity),
	}

	if wantCommentary && s.aiRepo != nil {
		commentary, err := s.aiRepo.CommentOnRun(ctx, string(run.Kind), symbols, summary)
		if err != nil {
			s.log.WarnContext(ctx, "Failed to generate run commentary",
				logger.StringField("run_id", run.RunID),
				logger.ErrorField(err),
			)
		} else {
			resp.Commentary = commentary.Headline + " " + commentary.Assessment
			run.Commentary = sql.NullString{String: resp.Commentary, Valid: true}
		}
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	equityJSON, err := json.Marshal(resp.EquityCurve)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, fmt.Errorf("failed to marshal equity curve: %w", err)
	}

	now := time.Now().UTC()
	run.Status = model.RunStatusCompleted
	run.Summary = datatypes.JSON(summaryJSON)
	run.EquityCurve = datatypes.JSON(equityJSON)
	run.CompletedAt = sql.NullTime{Time: now, Valid: true}
	if err := s.runRepo.Update(ctx, run); err != nil {
		s.log.ErrorContext(ctx, "Failed to persist backtest run", logger.ErrorField(err))
		return nil, err
	}

	s.log.InfoContext(ctx, "Backtest run completed",
		logger.StringField("run_id", run.RunID),
		logger.FloatField("total_pnl", summary.TotalPnL),
		logger.FloatField("sharpe", summary.Sharpe),
	)

	if notify && s.notifier != nil {
		message := telegram.FormatRunReport(run.RunID, string(run.Kind), symbols, summary, now)
		if err := s.notifier.Send(ctx, message); err != nil {
			s.log.WarnContext(ctx, "Failed to send run report",
				logger.StringField("run_id", run.RunID),
				logger.ErrorField(err),
			)
		}
	}

	return resp, nil
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	from, err := utils.ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", start, err)
	}
	to, err := utils.ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", end, err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date %s is before start_date %s", end, start)
	}
	return from, to, nil
}

func candlesToFrame(candles []dto.Candle) (*engine.Frame, error) {
	n := len(candles)
	dates := make([]time.Time, n)
	cols := map[string][]float64{
		engine.ColOpen:   make([]float64, n),
		engine.ColHigh:   make([]float64, n),
		engine.ColLow:    make([]float64, n),
		engine.ColClose:  make([]float64, n),
		engine.ColVolume: make([]float64, n),
	}
	for i, c := range candles {
		dates[i] = c.Date
		cols[engine.ColOpen][i] = c.Open
		cols[engine.ColHigh][i] = c.High
		cols[engine.ColLow][i] = c.Low
		cols[engine.ColClose][i] = c.Close
		cols[engine.ColVolume][i] = c.Volume
	}
	return engine.NewFrame(dates, cols)
}

func orderPointsToSeries(points []dto.OrderPoint) (*engine.Series, error) {
	dates := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, point := range points {
		date, err := utils.ParseDate(point.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid order date %q: %w", point.Date, err)
		}
		dates[i] = date
		values[i] = point.Shares
	}
	return engine.NewSeries(dates, values)
}

func weightSymbols(points []dto.WeightPoint) []string {
	seen := make(map[string]struct{})
	for _, point := range points {
		for symbol := range point.Weights {
			seen[symbol] = struct{}{}
		}
	}
	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// weightPointsToGrid places each weight point on the trading-date axis and
// carries the last set of weights forward until the next point.
func weightPointsToGrid(points []dto.WeightPoint, dates []time.Time, symbols []string) (*engine.Grid, error) {
	type datedWeights struct {
		date    time.Time
		weights map[string]float64
	}

	parsed := make([]datedWeights, 0, len(points))
	for _, point := range points {
		date, err := utils.ParseDate(point.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid weight date %q: %w", point.Date, err)
		}
		parsed = append(parsed, datedWeights{date: date, weights: point.Weights})
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].date.Before(parsed[j].date) })

	grid := engine.NewGrid(dates, symbols)
	cursor := -1
	for di, date := range dates {
		for cursor+1 < len(parsed) && !parsed[cursor+1].date.After(date) {
			cursor++
		}
		if cursor < 0 {
			continue
		}
		for si, symbol := range symbols {
			if w, ok := parsed[cursor].weights[symbol]; ok {
				grid.Set(di, si, w)
			}
		}
	}
	return grid, nil
}

func toDailyPoints(dates []time.Time, values []float64) []dto.DailyPoint {
	n := len(values)
	if len(dates) < n {
		n = len(dates)
	}
	points := make([]dto.DailyPoint, n)
	for i := 0; i < n; i++ {
		points[i] = dto.DailyPoint{
			Date:  dates[i].Format(utils.DateLayout),
			Value: values[i],
		}
	}
	return points
}
