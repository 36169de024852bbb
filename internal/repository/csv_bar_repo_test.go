package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang-quant/config"
	"golang-quant/internal/dto"
	"golang-quant/pkg/cache"
	"golang-quant/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCSVTestRepo(t *testing.T, files map[string]string) CSVBarRepository {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Data.CSVDir = dir
	cfg.Cache.DefaultExpiration = time.Minute

	return NewCSVBarRepository(cfg, log, cache.NewCache(time.Minute, time.Minute))
}

func TestCSVBarRepositoryGet(t *testing.T) {
	repo := newCSVTestRepo(t, map[string]string{
		"AAA.csv": "date,open,high,low,close,volume\n" +
			"2024-01-02,10,11,9,10.5,1000\n" +
			"2024-01-03,10.5,12,10,11.5,2000\n" +
			"2024-01-04,11.5,12,11,11.8,1500\n",
	})

	data, err := repo.Get(context.Background(), dto.GetCandlesParam{Symbol: "AAA"})
	require.NoError(t, err)
	require.Len(t, data.Candles, 3)
	assert.Equal(t, "AAA", data.Symbol)
	assert.Equal(t, dto.Interval1Day, data.Interval)
	assert.Equal(t, 10.5, data.Candles[0].Close)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), data.Candles[0].Date)
}

func TestCSVBarRepositoryColumnAliases(t *testing.T) {
	repo := newCSVTestRepo(t, map[string]string{
		"BBB.csv": "trade_date,Open,High,Low,Close,vol,amount,oi\n" +
			"2024/01/02,10,11,9,10.5,1000,10500,42\n",
	})

	data, err := repo.Get(context.Background(), dto.GetCandlesParam{Symbol: "BBB"})
	require.NoError(t, err)
	require.Len(t, data.Candles, 1)

	candle := data.Candles[0]
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), candle.Date)
	require.NotNil(t, candle.Turnover)
	assert.Equal(t, 10500.0, *candle.Turnover)
	require.NotNil(t, candle.OpenInterest)
	assert.Equal(t, 42.0, *candle.OpenInterest)
}

func TestCSVBarRepositoryDateRangeFilter(t *testing.T) {
	repo := newCSVTestRepo(t, map[string]string{
		"CCC.csv": "date,open,high,low,close,volume\n" +
			"2024-01-02,10,11,9,10.5,1000\n" +
			"2024-01-03,10.5,12,10,11.5,2000\n" +
			"2024-01-04,11.5,12,11,11.8,1500\n",
	})

	data, err := repo.Get(context.Background(), dto.GetCandlesParam{
		Symbol: "CCC",
		From:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, data.Candles, 1)
	assert.Equal(t, 11.5, data.Candles[0].Close)
}

func TestCSVBarRepositorySkipsMalformedRows(t *testing.T) {
	repo := newCSVTestRepo(t, map[string]string{
		"DDD.csv": "date,open,high,low,close,volume\n" +
			"2024-01-02,10,11,9,10.5,1000\n" +
			"not-a-date,10,11,9,10.5,1000\n" +
			"2024-01-04,abc,12,11,11.8,1500\n" +
			"2024-01-05,11.8,12,11,12.0,900\n",
	})

	data, err := repo.Get(context.Background(), dto.GetCandlesParam{Symbol: "DDD"})
	require.NoError(t, err)
	require.Len(t, data.Candles, 2)
	assert.Equal(t, 10.5, data.Candles[0].Close)
	assert.Equal(t, 12.0, data.Candles[1].Close)
}

func TestCSVBarRepositoryMissingColumn(t *testing.T) {
	repo := newCSVTestRepo(t, map[string]string{
		"EEE.csv": "date,open,high,low,volume\n2024-01-02,10,11,9,1000\n",
	})

	_, err := repo.Get(context.Background(), dto.GetCandlesParam{Symbol: "EEE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required column "close"`)
}

func TestCSVBarRepositoryUnknownSymbol(t *testing.T) {
	repo := newCSVTestRepo(t, map[string]string{})

	_, err := repo.Get(context.Background(), dto.GetCandlesParam{Symbol: "NOPE"})
	require.Error(t, err)
}
