package repository

import (
	"context"

	"golang-quant/internal/model"
	"golang-quant/pkg/utils"

	"gorm.io/gorm"
)

type BacktestRunRepository interface {
	Create(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error
	Update(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error
	GetByRunID(ctx context.Context, runID string) (*model.BacktestRun, error)
	GetRuns(ctx context.Context, param model.GetBacktestRunsParam) ([]model.BacktestRun, error)
}

type backtestRunRepository struct {
	db *gorm.DB
}

func NewBacktestRunRepository(db *gorm.DB) BacktestRunRepository {
	return &backtestRunRepository{db: db}
}

func (r *backtestRunRepository) Create(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return db.Create(run).Error
}

func (r *backtestRunRepository) Update(ctx context.Context, run *model.BacktestRun, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return db.Save(run).Error
}

func (r *backtestRunRepository) GetByRunID(ctx context.Context, runID string) (*model.BacktestRun, error) {
	var run model.BacktestRun
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *backtestRunRepository) GetRuns(ctx context.Context, param model.GetBacktestRunsParam) ([]model.BacktestRun, error) {
	limit := param.Limit
	if limit <= 0 {
		limit = 50
	}
	opts := []utils.DBOption{
		utils.WithOrder("started_at DESC"),
		utils.WithLimit(limit),
	}
	if param.Kind != nil {
		opts = append(opts, utils.WithWhere("kind = ?", *param.Kind))
	}
	if param.Status != nil {
		opts = append(opts, utils.WithWhere("status = ?", *param.Status))
	}

	var runs []model.BacktestRun
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Find(&runs).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return runs, nil
}
