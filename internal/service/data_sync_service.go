package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-quant/config"
	"golang-quant/internal/dto"
	"golang-quant/internal/engine"
	"golang-quant/internal/model"
	"golang-quant/internal/repository"
	"golang-quant/pkg/common"
	"golang-quant/pkg/logger"
	"golang-quant/pkg/utils"

	"golang.org/x/sync/errgroup"
)

type DataSyncService interface {
	SyncCandles(ctx context.Context, req dto.SyncCandlesRequest) (*dto.SyncCandlesResponse, error)
	GetCandles(ctx context.Context, req dto.GetCandlesRequest) (*dto.CandleData, error)
}

type dataSyncService struct {
	cfg        *config.Config
	log        *logger.Logger
	barRepo    repository.BarRepository
	apiRepo    repository.ChartAPIRepository
	candleRepo repository.CandleRepository
	uow        repository.UnitOfWork
}

func NewDataSyncService(
	cfg *config.Config,
	log *logger.Logger,
	barRepo repository.BarRepository,
	apiRepo repository.ChartAPIRepository,
	candleRepo repository.CandleRepository,
	uow repository.UnitOfWork,
) DataSyncService {
	return &dataSyncService{
		cfg:        cfg,
		log:        log,
		barRepo:    barRepo,
		apiRepo:    apiRepo,
		candleRepo: candleRepo,
		uow:        uow,
	}
}

// SyncCandles backfills daily bars from the chart API for each symbol.
// Symbols are fetched concurrently; a failed symbol is reported but does not
// abort the rest of the batch.
func (s *dataSyncService) SyncCandles(ctx context.Context, req dto.SyncCandlesRequest) (*dto.SyncCandlesResponse, error) {
	if req.Exchange != "" && !utils.ContainsString(common.GetExchangeList(), req.Exchange) {
		return nil, fmt.Errorf("unknown exchange %q", req.Exchange)
	}

	// Weekend runs target the last trading day so the range never ends on a
	// day with no bars.
	to := utils.TruncateToDay(time.Now().UTC())
	if utils.IsWeekend(to) {
		to = utils.PrevTradingDay(to)
	}
	from := syncRangeStart(req.Range, to)

	var (
		mu     sync.Mutex
		saved  int
		failed []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Scheduler.MaxConcurrency)

	for _, symbol := range req.Symbols {
		symbol := symbol
		g.Go(func() error {
			if !utils.ShouldContinue(gctx, s.log) {
				return gctx.Err()
			}

			count, err := s.syncSymbol(gctx, symbol, req.Exchange, from, to)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.ErrorContext(gctx, "Failed to sync symbol",
					logger.StringField("symbol", symbol),
					logger.ErrorField(err),
				)
				failed = append(failed, symbol)
				return nil
			}
			saved += count
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Candle sync finished",
		logger.IntField("symbols", len(req.Symbols)),
		logger.IntField("bars_saved", saved),
		logger.IntField("failed", len(failed)),
	)

	if s.cfg.Data.RetentionYears > 0 {
		cutoff := to.AddDate(-s.cfg.Data.RetentionYears, 0, 0)
		pruned, err := s.barRepo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			s.log.WarnContext(ctx, "Failed to prune old bars", logger.ErrorField(err))
		} else if pruned > 0 {
			s.log.InfoContext(ctx, "Pruned old bars",
				logger.IntField("bars", int(pruned)),
				logger.StringField("cutoff", cutoff.Format(utils.DateLayout)),
			)
		}
	}

	return &dto.SyncCandlesResponse{
		Symbols:   req.Symbols,
		BarsSaved: saved,
		Failed:    failed,
	}, nil
}

func (s *dataSyncService) syncSymbol(ctx context.Context, symbol, exchange string, from, to time.Time) (int, error) {
	// Shrink the window to what is missing when bars already exist.
	if last, err := s.barRepo.GetLastDate(ctx, symbol); err == nil && !last.IsZero() {
		next := last.AddDate(0, 0, 1)
		if next.After(from) {
			from = next
		}
		if from.After(to) {
			return 0, nil
		}
	}

	data, err := s.apiRepo.Get(ctx, dto.GetCandlesParam{
		Symbol:   symbol,
		Exchange: exchange,
		From:     from,
		To:       to,
	})
	if err != nil {
		return 0, err
	}

	bars := make([]model.Bar, 0, len(data.Candles))
	for _, c := range data.Candles {
		bars = append(bars, model.Bar{
			Symbol:       symbol,
			Exchange:     exchange,
			Date:         c.Date,
			Open:         c.Open,
			High:         c.High,
			Low:          c.Low,
			Close:        c.Close,
			Volume:       c.Volume,
			Turnover:     c.Turnover,
			OpenInterest: c.OpenInterest,
		})
	}

	err = s.uow.Run(func(opts ...utils.DBOption) error {
		return s.barRepo.UpsertBulk(ctx, bars, opts...)
	})
	if err != nil {
		return 0, err
	}
	return len(bars), nil
}

func (s *dataSyncService) GetCandles(ctx context.Context, req dto.GetCandlesRequest) (*dto.CandleData, error) {
	param := dto.GetCandlesParam{
		Symbol:   req.Symbol,
		Exchange: req.Exchange,
		Source:   req.Source,
	}
	if req.From != "" {
		from, err := utils.ParseDate(req.From)
		if err != nil {
			return nil, fmt.Errorf("invalid from date %q: %w", req.From, err)
		}
		param.From = from
	}
	if req.To != "" {
		to, err := utils.ParseDate(req.To)
		if err != nil {
			return nil, fmt.Errorf("invalid to date %q: %w", req.To, err)
		}
		param.To = to
	}

	data, err := s.candleRepo.Get(ctx, param)
	if err != nil {
		return nil, err
	}

	interval := req.Interval
	if interval == "" || interval == dto.Interval1Day {
		return data, nil
	}

	return resampleCandles(data, engine.Interval(interval))
}

// resampleCandles aggregates daily candles into weekly or monthly buckets.
func resampleCandles(data *dto.CandleData, to engine.Interval) (*dto.CandleData, error) {
	n := len(data.Candles)
	dates := make([]time.Time, n)
	cols := map[string][]float64{
		engine.ColOpen:   make([]float64, n),
		engine.ColHigh:   make([]float64, n),
		engine.ColLow:    make([]float64, n),
		engine.ColClose:  make([]float64, n),
		engine.ColVolume: make([]float64, n),
	}
	for i, c := range data.Candles {
		dates[i] = c.Date
		cols[engine.ColOpen][i] = c.Open
		cols[engine.ColHigh][i] = c.High
		cols[engine.ColLow][i] = c.Low
		cols[engine.ColClose][i] = c.Close
		cols[engine.ColVolume][i] = c.Volume
	}

	frame, err := engine.NewFrame(dates, cols)
	if err != nil {
		return nil, err
	}

	resampled, err := engine.Resample(frame, to)
	if err != nil {
		return nil, err
	}

	candles := make([]dto.Candle, resampled.Len())
	for i := range candles {
		candles[i] = dto.Candle{
			Date:   resampled.Dates[i],
			Open:   resampled.Column(engine.ColOpen)[i],
			High:   resampled.Column(engine.ColHigh)[i],
			Low:    resampled.Column(engine.ColLow)[i],
			Close:  resampled.Column(engine.ColClose)[i],
			Volume: resampled.Column(engine.ColVolume)[i],
		}
	}

	return &dto.CandleData{
		Symbol:   data.Symbol,
		Interval: string(to),
		Candles:  candles,
	}, nil
}

func syncRangeStart(rangeStr string, to time.Time) time.Time {
	switch rangeStr {
	case "1m":
		return to.AddDate(0, -1, 0)
	case "3m":
		return to.AddDate(0, -3, 0)
	case "6m":
		return to.AddDate(0, -6, 0)
	case "2y":
		return to.AddDate(-2, 0, 0)
	case "5y":
		return to.AddDate(-5, 0, 0)
	default: // 1y
		return to.AddDate(-1, 0, 0)
	}
}
