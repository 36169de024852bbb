package model

import (
	"time"
)

type Bar struct {
	ID           uint      `gorm:"primarykey"`
	Symbol       string    `gorm:"not null;uniqueIndex:idx_bars_symbol_date"`
	Exchange     string    `gorm:"not null"`
	Date         time.Time `gorm:"not null;uniqueIndex:idx_bars_symbol_date"`
	Open         float64   `gorm:"not null"`
	High         float64   `gorm:"not null"`
	Low          float64   `gorm:"not null"`
	Close        float64   `gorm:"not null"`
	Volume       float64   `gorm:"not null"`
	Turnover     *float64
	OpenInterest *float64
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Bar) TableName() string {
	return "bars"
}

type GetBarsParam struct {
	Symbols []string
	From    *time.Time
	To      *time.Time
}
