package repository

import (
	"context"
	"time"

	"golang-quant/internal/model"
	"golang-quant/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BarRepository interface {
	UpsertBulk(ctx context.Context, bars []model.Bar, opts ...utils.DBOption) error
	GetBars(ctx context.Context, param model.GetBarsParam) ([]model.Bar, error)
	GetLastDate(ctx context.Context, symbol string) (time.Time, error)
	DeleteOlderThan(ctx context.Context, date time.Time) (int64, error)
}

type barRepository struct {
	db *gorm.DB
}

func NewBarRepository(db *gorm.DB) BarRepository {
	return &barRepository{db: db}
}

func (r *barRepository) UpsertBulk(ctx context.Context, bars []model.Bar, opts ...utils.DBOption) error {
	if len(bars) == 0 {
		return nil
	}
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "turnover", "open_interest", "updated_at"}),
	}).CreateInBatches(bars, 500).Error
}

func (r *barRepository) GetBars(ctx context.Context, param model.GetBarsParam) ([]model.Bar, error) {
	query := r.db.WithContext(ctx)
	if len(param.Symbols) > 0 {
		query = query.Where("symbol IN ?", param.Symbols)
	}
	if param.From != nil {
		query = query.Where("date >= ?", *param.From)
	}
	if param.To != nil {
		query = query.Where("date <= ?", *param.To)
	}

	var bars []model.Bar
	err := query.Order("symbol ASC, date ASC").Find(&bars).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return bars, nil
}

func (r *barRepository) GetLastDate(ctx context.Context, symbol string) (time.Time, error) {
	var bar model.Bar
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date DESC").
		First(&bar).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return bar.Date, nil
}

func (r *barRepository) DeleteOlderThan(ctx context.Context, date time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("date < ?", date).
		Delete(&model.Bar{})
	return result.RowsAffected, result.Error
}
