package service

import (
	"context"
	"time"

	"golang-quant/config"
	"golang-quant/internal/dto"
	"golang-quant/pkg/logger"
	"golang-quant/pkg/telegram"

	"github.com/robfig/cron/v3"
)

// SchedulerService drives the recurring candle sync and the nightly replay of
// saved backtests. Jobs that fail raise a telegram alert when a notifier is
// configured.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
}

type schedulerService struct {
	cfg      *config.Config
	log      *logger.Logger
	dataSync DataSyncService
	backtest BacktestService
	notifier *telegram.Notifier
	cron     *cron.Cron
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	dataSync DataSyncService,
	backtest BacktestService,
	notifier *telegram.Notifier,
) SchedulerService {
	return &schedulerService{
		cfg:      cfg,
		log:      log,
		dataSync: dataSync,
		backtest: backtest,
		notifier: notifier,
		cron:     cron.New(),
	}
}

func (s *schedulerService) Start(ctx context.Context) error {
	if !s.cfg.Scheduler.Enabled {
		s.log.Info("Scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Scheduler.SyncCron, func() {
		s.runSync(ctx)
	})
	if err != nil {
		return err
	}

	if s.cfg.Scheduler.RerunLimit > 0 {
		_, err := s.cron.AddFunc(s.cfg.Scheduler.RerunCron, func() {
			s.runRerun(ctx)
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	s.log.Info("Scheduler started",
		logger.StringField("sync_cron", s.cfg.Scheduler.SyncCron),
		logger.IntField("symbols", len(s.cfg.Scheduler.SyncSymbols)),
		logger.DurationField("job_timeout", s.cfg.Scheduler.TimeoutDuration),
	)
	return nil
}

func (s *schedulerService) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("Scheduler stopped")
}

func (s *schedulerService) runSync(ctx context.Context) {
	if len(s.cfg.Scheduler.SyncSymbols) == 0 {
		s.log.Warn("No symbols configured for scheduled sync")
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.Scheduler.TimeoutDuration)
	defer cancel()

	resp, err := s.dataSync.SyncCandles(jobCtx, dto.SyncCandlesRequest{
		Symbols:  s.cfg.Scheduler.SyncSymbols,
		Exchange: s.cfg.Scheduler.SyncExchange,
	})
	if err != nil {
		s.log.ErrorContext(jobCtx, "Scheduled candle sync failed", logger.ErrorField(err))
		s.alert(jobCtx, "candle_sync", err)
		return
	}

	if len(resp.Failed) > 0 {
		s.log.WarnContext(jobCtx, "Scheduled candle sync finished with failures",
			logger.IntField("bars_saved", resp.BarsSaved),
			logger.Field("failed", resp.Failed),
		)
		return
	}

	s.log.InfoContext(jobCtx, "Scheduled candle sync completed",
		logger.IntField("bars_saved", resp.BarsSaved),
	)
}

func (s *schedulerService) runRerun(ctx context.Context) {
	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.Scheduler.TimeoutDuration)
	defer cancel()

	replayed, err := s.backtest.RerunSaved(jobCtx, s.cfg.Scheduler.RerunLimit)
	if err != nil {
		s.log.ErrorContext(jobCtx, "Scheduled backtest replay failed", logger.ErrorField(err))
		s.alert(jobCtx, "backtest_replay", err)
		return
	}

	s.log.InfoContext(jobCtx, "Scheduled backtest replay completed",
		logger.IntField("replayed", replayed),
	)
}

func (s *schedulerService) alert(ctx context.Context, job string, cause error) {
	if s.notifier == nil {
		return
	}
	message := telegram.FormatErrorAlert(time.Now().UTC(), job, cause.Error())
	if err := s.notifier.Send(ctx, message); err != nil {
		s.log.WarnContext(ctx, "Failed to send job alert", logger.ErrorField(err))
	}
}
