package cmd

import (
	"context"

	"golang-quant/config"
	"golang-quant/pkg/cache"
	"golang-quant/pkg/logger"
	"golang-quant/pkg/middleware"
	"golang-quant/pkg/postgres"
	"golang-quant/pkg/telegram"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AppDependency struct {
	db        *postgres.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	notifier  *telegram.Notifier
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	var notifier *telegram.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewNotifier(&cfg.Telegram, log)
		if err != nil {
			log.Error("Failed to create telegram notifier", zap.Error(err))
			return nil, err
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewRateLimiterMiddleware(cfg.API.RatePerSecond, cfg.API.RateBurst))

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		db:        db,
		echo:      e,
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		notifier:  notifier,
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
