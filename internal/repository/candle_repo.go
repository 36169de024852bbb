package repository

import (
	"context"
	"fmt"
	"time"

	"golang-quant/internal/dto"
	"golang-quant/internal/model"
	"golang-quant/pkg/cache"
	"golang-quant/pkg/common"
	"golang-quant/pkg/logger"
	"golang-quant/pkg/utils"
)

// remoteCandleTTL bounds how long a remote chart lookup is reused. The remote
// API is rate limited, so repeated panel loads should not hit it again.
const remoteCandleTTL = 15 * time.Minute

// CandleRepository resolves daily candles from the first source that has
// them: database, then local CSV, then the remote chart API. A request may
// pin a specific source instead.
type CandleRepository interface {
	Get(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleData, error)
}

type candleRepository struct {
	barRepo BarRepository
	csvRepo CSVBarRepository
	apiRepo ChartAPIRepository
	cache   cache.Cache
	logger  *logger.Logger
}

func NewCandleRepository(barRepo BarRepository, csvRepo CSVBarRepository, apiRepo ChartAPIRepository, c cache.Cache, log *logger.Logger) CandleRepository {
	return &candleRepository{
		barRepo: barRepo,
		csvRepo: csvRepo,
		apiRepo: apiRepo,
		cache:   c,
		logger:  log,
	}
}

func (r *candleRepository) Get(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleData, error) {
	switch param.Source {
	case dto.SourceDatabase:
		return r.getFromDB(ctx, param)
	case dto.SourceCSV:
		return r.csvRepo.Get(ctx, param)
	case dto.SourceRemote:
		return r.getFromRemote(ctx, param)
	case "":
		// fall through to source chain
	default:
		return nil, fmt.Errorf("unknown candle source: %s", param.Source)
	}

	if data, err := r.getFromDB(ctx, param); err == nil && len(data.Candles) > 0 {
		return data, nil
	}

	if data, err := r.csvRepo.Get(ctx, param); err == nil && len(data.Candles) > 0 {
		return data, nil
	} else if err != nil {
		r.logger.DebugContext(ctx, "CSV candle source unavailable",
			logger.StringField("symbol", param.Symbol),
			logger.ErrorField(err),
		)
	}

	return r.getFromRemote(ctx, param)
}

func (r *candleRepository) getFromRemote(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleData, error) {
	key := fmt.Sprintf(common.KEY_CANDLE_PANEL,
		param.Symbol,
		param.From.Format(utils.DateLayout),
		param.To.Format(utils.DateLayout),
	)
	if data, found := cache.TypedGet[*dto.CandleData](r.cache, key); found {
		return data, nil
	}

	data, err := r.apiRepo.Get(ctx, param)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, data, remoteCandleTTL)
	return data, nil
}

func (r *candleRepository) getFromDB(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleData, error) {
	getParam := model.GetBarsParam{Symbols: []string{param.Symbol}}
	if !param.From.IsZero() {
		from := param.From
		getParam.From = &from
	}
	if !param.To.IsZero() {
		to := param.To
		getParam.To = &to
	}

	bars, err := r.barRepo.GetBars(ctx, getParam)
	if err != nil {
		return nil, err
	}

	candles := make([]dto.Candle, 0, len(bars))
	for _, bar := range bars {
		candles = append(candles, dto.Candle{
			Date:         bar.Date,
			Open:         bar.Open,
			High:         bar.High,
			Low:          bar.Low,
			Close:        bar.Close,
			Volume:       bar.Volume,
			Turnover:     bar.Turnover,
			OpenInterest: bar.OpenInterest,
		})
	}

	return &dto.CandleData{
		Symbol:   param.Symbol,
		Interval: dto.Interval1Day,
		Candles:  candles,
	}, nil
}
