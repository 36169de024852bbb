package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log        Logger         `mapstructure:"logger"`
	DB         Database       `mapstructure:"database"`
	API        API            `mapstructure:"api"`
	Scheduler  Scheduler      `mapstructure:"scheduler"`
	MarketData MarketData     `mapstructure:"market_data"`
	Data       Data           `mapstructure:"data"`
	Backtest   Backtest       `mapstructure:"backtest"`
	Cache      Cache          `mapstructure:"cache"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
	Gemini     Gemini         `mapstructure:"gemini"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type Scheduler struct {
	Enabled         bool          `mapstructure:"enabled"`
	SyncCron        string        `mapstructure:"sync_cron"`
	SyncSymbols     []string      `mapstructure:"sync_symbols"`
	SyncExchange    string        `mapstructure:"sync_exchange"`
	RerunCron       string        `mapstructure:"rerun_cron"`
	RerunLimit      int           `mapstructure:"rerun_limit"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	TimeoutDuration time.Duration `mapstructure:"timeout_duration"`
}

type API struct {
	Port          int     `mapstructure:"port"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst"`
}

// MarketData configures the remote chart API used to backfill candles.
type MarketData struct {
	BaseURL          string        `mapstructure:"base_url"`
	BaseTimeout      time.Duration `mapstructure:"base_timeout"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
}

// Data configures local CSV candle sources.
type Data struct {
	CSVDir         string `mapstructure:"csv_dir"`
	RetentionYears int    `mapstructure:"retention_years"`
}

// Backtest holds the default simulation parameters. Requests may override
// any of them per run.
type Backtest struct {
	Capital     float64 `mapstructure:"capital"`
	FeeBP       float64 `mapstructure:"fee_bp"`
	SlipBP      float64 `mapstructure:"slip_bp"`
	TaxBPSell   float64 `mapstructure:"tax_bp_sell"`
	LotSize     int     `mapstructure:"lot_size"`
	RfAnnual    float64 `mapstructure:"rf_annual"`
	TradingDays int     `mapstructure:"trading_days"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// TelegramConfig configures the outbound run-report notifier.
type TelegramConfig struct {
	Enabled                   bool          `mapstructure:"enabled"`
	BotToken                  string        `mapstructure:"bot_token"`
	ChatID                    int64         `mapstructure:"chat_id"`
	TimeoutDuration           time.Duration `mapstructure:"timeout_duration"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
}

type Gemini struct {
	Enabled             bool          `mapstructure:"enabled"`
	APIKey              string        `mapstructure:"api_key"`
	BaseURL             string        `mapstructure:"base_url"`
	BaseModel           string        `mapstructure:"base_model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
}

func Load() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.rate_per_second", 5)
	viper.SetDefault("api.rate_burst", 10)
	viper.SetDefault("scheduler.sync_cron", "0 18 * * 1-5")
	viper.SetDefault("scheduler.rerun_cron", "30 18 * * 1-5")
	viper.SetDefault("scheduler.rerun_limit", 0)
	viper.SetDefault("scheduler.max_concurrency", 4)
	viper.SetDefault("scheduler.timeout_duration", 10*time.Minute)
	viper.SetDefault("market_data.base_timeout", 30*time.Second)
	viper.SetDefault("market_data.max_request_per_min", 60)
	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)
	viper.SetDefault("backtest.capital", 1_000_000)
	viper.SetDefault("backtest.fee_bp", 10)
	viper.SetDefault("backtest.slip_bp", 2)
	viper.SetDefault("backtest.tax_bp_sell", 0)
	viper.SetDefault("backtest.lot_size", 1)
	viper.SetDefault("backtest.rf_annual", 0)
	viper.SetDefault("backtest.trading_days", 252)
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta/models")
	viper.SetDefault("gemini.base_model", "gemini-2.0-flash")
	viper.SetDefault("gemini.timeout", 60*time.Second)
	viper.SetDefault("gemini.max_request_per_minute", 10)
	viper.SetDefault("gemini.max_token_per_minute", 250_000)
	viper.SetDefault("telegram.max_global_request_per_second", 30)
	viper.SetDefault("telegram.timeout_duration", 10*time.Second)
}
