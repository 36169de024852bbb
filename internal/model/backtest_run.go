package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

type BacktestRunStatus string

const (
	RunStatusRunning   BacktestRunStatus = "running"
	RunStatusCompleted BacktestRunStatus = "completed"
	RunStatusFailed    BacktestRunStatus = "failed"
)

type BacktestRunKind string

const (
	RunKindSingle    BacktestRunKind = "single"
	RunKindPortfolio BacktestRunKind = "portfolio"
	RunKindRebalance BacktestRunKind = "rebalance"
)

type BacktestRun struct {
	ID           uint              `gorm:"primarykey"`
	RunID        string            `gorm:"type:uuid;not null;uniqueIndex"`
	Kind         BacktestRunKind   `gorm:"type:varchar(20);not null"`
	Status       BacktestRunStatus `gorm:"type:varchar(20);not null"`
	Params       datatypes.JSON    `gorm:"type:jsonb"`
	Summary      datatypes.JSON    `gorm:"type:jsonb"`
	EquityCurve  datatypes.JSON    `gorm:"type:jsonb"`
	Commentary   sql.NullString    `gorm:"type:text"`
	ErrorMessage sql.NullString    `gorm:"type:text"`
	StartedAt    time.Time         `gorm:"not null"`
	CompletedAt  sql.NullTime
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (BacktestRun) TableName() string {
	return "backtest_runs"
}

type GetBacktestRunsParam struct {
	Kind   *BacktestRunKind
	Status *BacktestRunStatus
	Limit  int
}
