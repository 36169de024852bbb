package service

import (
	"golang-quant/config"
	"golang-quant/internal/repository"
	"golang-quant/pkg/logger"
	"golang-quant/pkg/telegram"
)

type Service struct {
	BacktestService  BacktestService
	DataSyncService  DataSyncService
	SchedulerService SchedulerService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	notifier *telegram.Notifier,
) *Service {
	backtestService := NewBacktestService(cfg, log, repo.CandleRepo, repo.BacktestRunRepo, repo.GeminiAIRepo, notifier)
	dataSyncService := NewDataSyncService(cfg, log, repo.BarRepo, repo.ChartAPIRepo, repo.CandleRepo, repo.UnitOfWork)
	schedulerService := NewSchedulerService(cfg, log, dataSyncService, backtestService, notifier)

	return &Service{
		BacktestService:  backtestService,
		DataSyncService:  dataSyncService,
		SchedulerService: schedulerService,
	}
}
