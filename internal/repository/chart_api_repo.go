package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang-quant/config"
	"golang-quant/internal/dto"
	"golang-quant/pkg/common"
	"golang-quant/pkg/httpclient"
	"golang-quant/pkg/logger"
	"golang-quant/pkg/utils"

	"golang.org/x/time/rate"
)

type ChartAPIRepository interface {
	Get(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleData, error)
}

// chartAPIRepository backfills daily candles from the remote chart endpoint.
type chartAPIRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewChartAPIRepository(cfg *config.Config, log *logger.Logger) ChartAPIRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.MarketData.MaxRequestPerMin)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &chartAPIRepository{
		httpClient:     httpclient.New(cfg.MarketData.BaseURL, cfg.MarketData.BaseTimeout, ""),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *chartAPIRepository) Get(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleData, error) {
	if !r.requestLimiter.Allow() {
		r.logger.WarnContext(ctx, "Chart API request limit exceeded, waiting",
			logger.IntField("max_request_per_min", r.cfg.MarketData.MaxRequestPerMin),
		)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	symbol := param.Symbol
	if param.Exchange == common.EXCHANGE_IDX {
		symbol = fmt.Sprintf("%s.JK", symbol)
	}

	endpoint := "/" + symbol

	from, to := param.From, param.To
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(-1, 0, 0)
	}

	queryParams := map[string]string{
		"period1":        fmt.Sprintf("%d", from.Unix()),
		"period2":        fmt.Sprintf("%d", to.Unix()),
		"interval":       dto.Interval1Day,
		"includePrePost": "false",
		"events":         "div,split",
	}

	headers := map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
	}

	var chartResp dto.ChartAPIResponse
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, headers, &chartResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from chart api: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Chart API returned non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("chart api returned status: %d", resp.StatusCode)
	}

	if chartResp.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error: %v", chartResp.Chart.Error)
	}
	if len(chartResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data returned for symbol: %s", param.Symbol)
	}

	result := chartResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data available for symbol: %s", param.Symbol)
	}

	quote := result.Indicators.Quote[0]

	var candles []dto.Candle
	for i, timestamp := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			continue
		}

		// Zero prices mean the row is a gap in the feed.
		if quote.Open[i] == 0 || quote.High[i] == 0 || quote.Low[i] == 0 || quote.Close[i] == 0 {
			continue
		}

		candles = append(candles, dto.Candle{
			Date:   utils.TruncateToDay(time.Unix(timestamp, 0).UTC()),
			Open:   quote.Open[i],
			High:   quote.High[i],
			Low:    quote.Low[i],
			Close:  quote.Close[i],
			Volume: quote.Volume[i],
		})
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("no valid candle data found for symbol: %s", param.Symbol)
	}

	return &dto.CandleData{
		Symbol:   param.Symbol,
		Interval: dto.Interval1Day,
		Candles:  candles,
	}, nil
}
