package repository

import (
	"golang-quant/config"
	"golang-quant/pkg/cache"
	"golang-quant/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	BarRepo         BarRepository
	CSVBarRepo      CSVBarRepository
	ChartAPIRepo    ChartAPIRepository
	CandleRepo      CandleRepository
	BacktestRunRepo BacktestRunRepository
	GeminiAIRepo    AIRepository
	UnitOfWork      UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger, c cache.Cache) (*Repository, error) {
	uow := NewUnitOfWork(db)

	var geminiAIRepo AIRepository
	if cfg.Gemini.Enabled {
		repo, err := NewGeminiAIRepository(cfg, log)
		if err != nil {
			return nil, err
		}
		geminiAIRepo = repo
	}

	barRepo := NewBarRepository(db)
	csvRepo := NewCSVBarRepository(cfg, log, c)
	apiRepo := NewChartAPIRepository(cfg, log)

	return &Repository{
		BarRepo:         barRepo,
		CSVBarRepo:      csvRepo,
		ChartAPIRepo:    apiRepo,
		CandleRepo:      NewCandleRepository(barRepo, csvRepo, apiRepo, c, log),
		BacktestRunRepo: NewBacktestRunRepository(db),
		GeminiAIRepo:    geminiAIRepo,
		UnitOfWork:      uow,
	}, nil
}
