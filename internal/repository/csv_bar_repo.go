package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang-quant/config"
	"golang-quant/internal/dto"
	"golang-quant/pkg/cache"
	"golang-quant/pkg/common"
	"golang-quant/pkg/logger"
	"golang-quant/pkg/utils"
)

// Column aliases accepted in CSV headers. Matching is case-insensitive.
var csvColumnAliases = map[string][]string{
	"date":          {"date", "datetime", "timestamp", "trade_date"},
	"open":          {"open"},
	"high":          {"high"},
	"low":           {"low"},
	"close":         {"close", "adj_close"},
	"volume":        {"volume", "vol"},
	"turnover":      {"turnover", "amount"},
	"open_interest": {"open_interest", "oi"},
}

type CSVBarRepository interface {
	Get(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleData, error)
}

type csvBarRepository struct {
	cfg    *config.Config
	logger *logger.Logger
	cache  cache.Cache
}

func NewCSVBarRepository(cfg *config.Config, log *logger.Logger, c cache.Cache) CSVBarRepository {
	return &csvBarRepository{
		cfg:    cfg,
		logger: log,
		cache:  c,
	}
}

func (r *csvBarRepository) Get(ctx context.Context, param dto.GetCandlesParam) (*dto.CandleData, error) {
	candles, err := r.loadSymbol(ctx, param.Symbol)
	if err != nil {
		return nil, err
	}

	filtered := make([]dto.Candle, 0, len(candles))
	for _, c := range candles {
		if !param.From.IsZero() && c.Date.Before(param.From) {
			continue
		}
		if !param.To.IsZero() && c.Date.After(param.To) {
			continue
		}
		filtered = append(filtered, c)
	}

	return &dto.CandleData{
		Symbol:   param.Symbol,
		Interval: dto.Interval1Day,
		Candles:  filtered,
	}, nil
}

func (r *csvBarRepository) loadSymbol(ctx context.Context, symbol string) ([]dto.Candle, error) {
	cacheKey := fmt.Sprintf(common.KEY_SYMBOL_CANDLES, dto.SourceCSV, symbol)
	if candles, found := cache.TypedGet[[]dto.Candle](r.cache, cacheKey); found {
		return candles, nil
	}

	path := filepath.Join(r.cfg.Data.CSVDir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv for symbol %s: %w", symbol, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv for symbol %s: %w", symbol, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv for symbol %s has no data rows", symbol)
	}

	colIdx, err := resolveColumns(records[0])
	if err != nil {
		return nil, fmt.Errorf("csv for symbol %s: %w", symbol, err)
	}

	candles := make([]dto.Candle, 0, len(records)-1)
	for _, row := range records[1:] {
		candle, err := parseCandleRow(row, colIdx)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping malformed csv row",
				logger.StringField("symbol", symbol),
				logger.ErrorField(err),
			)
			continue
		}
		candles = append(candles, candle)
	}

	r.cache.Set(cacheKey, candles, r.cfg.Cache.DefaultExpiration)
	return candles, nil
}

// resolveColumns maps logical column names to indices via the alias table.
// date, open, high, low, close and volume are required.
func resolveColumns(header []string) (map[string]int, error) {
	normalized := make(map[string]int, len(header))
	for i, name := range header {
		normalized[strings.ToLower(strings.TrimSpace(name))] = i
	}

	colIdx := make(map[string]int)
	for logical, aliases := range csvColumnAliases {
		for _, alias := range aliases {
			if idx, ok := normalized[alias]; ok {
				colIdx[logical] = idx
				break
			}
		}
	}

	for _, required := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := colIdx[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return colIdx, nil
}

func parseCandleRow(row []string, colIdx map[string]int) (dto.Candle, error) {
	date, err := parseCSVDate(row[colIdx["date"]])
	if err != nil {
		return dto.Candle{}, err
	}

	values := make(map[string]float64, 5)
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[colIdx[name]]), 64)
		if err != nil {
			return dto.Candle{}, fmt.Errorf("invalid %s value %q", name, row[colIdx[name]])
		}
		values[name] = v
	}

	candle := dto.Candle{
		Date:   date,
		Open:   values["open"],
		High:   values["high"],
		Low:    values["low"],
		Close:  values["close"],
		Volume: values["volume"],
	}

	if idx, ok := colIdx["turnover"]; ok && idx < len(row) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64); err == nil {
			candle.Turnover = utils.ToPointer(v)
		}
	}
	if idx, ok := colIdx["open_interest"]; ok && idx < len(row) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64); err == nil {
			candle.OpenInterest = utils.ToPointer(v)
		}
	}
	return candle, nil
}

func parseCSVDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006/01/02", "20060102", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return utils.TruncateToDay(t.UTC()), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
