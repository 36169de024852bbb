package dto

import "time"

// CostOverride lets a request override the configured cost defaults.
// Nil fields keep the configured values.
type CostOverride struct {
	FeeBP     *float64 `json:"fee_bp" validate:"omitempty,gte=0"`
	SlipBP    *float64 `json:"slip_bp" validate:"omitempty,gte=0"`
	TaxBPSell *float64 `json:"tax_bp_sell" validate:"omitempty,gte=0"`
}

type OrderPoint struct {
	Date   string  `json:"date" validate:"required"`
	Shares float64 `json:"shares"`
}

// BacktestRequest runs a close-fill simulation for one symbol.
type BacktestRequest struct {
	Symbol     string       `json:"symbol" validate:"required"`
	Exchange   string       `json:"exchange"`
	StartDate  string       `json:"start_date" validate:"required"`
	EndDate    string       `json:"end_date" validate:"required"`
	Orders     []OrderPoint `json:"orders" validate:"required,min=1,dive"`
	Costs      CostOverride `json:"costs"`
	Notify     bool         `json:"notify"`
	Commentary bool         `json:"commentary"`
}

// PortfolioBacktestRequest runs independent close-fill simulations per
// symbol and aggregates daily P&L across the union date axis.
type PortfolioBacktestRequest struct {
	Exchange   string                  `json:"exchange"`
	StartDate  string                  `json:"start_date" validate:"required"`
	EndDate    string                  `json:"end_date" validate:"required"`
	Orders     map[string][]OrderPoint `json:"orders" validate:"required,min=1"`
	Costs      CostOverride            `json:"costs"`
	Notify     bool                    `json:"notify"`
	Commentary bool                    `json:"commentary"`
}

type WeightPoint struct {
	Date    string             `json:"date" validate:"required"`
	Weights map[string]float64 `json:"weights" validate:"required,min=1"`
}

// RebalanceBacktestRequest runs the T+1 target-weight state machine:
// orders sized on day t execute at day t+1's close.
type RebalanceBacktestRequest struct {
	Exchange   string        `json:"exchange"`
	StartDate  string        `json:"start_date" validate:"required"`
	EndDate    string        `json:"end_date" validate:"required"`
	Weights    []WeightPoint `json:"weights" validate:"required,min=1,dive"`
	Capital    *float64      `json:"capital" validate:"omitempty,gt=0"`
	LotSize    *int          `json:"lot_size" validate:"omitempty,gte=1"`
	MaxWeight  *float64      `json:"max_weight" validate:"omitempty,gt=0,lte=1"`
	POV        *float64      `json:"pov" validate:"omitempty,gt=0,lte=1"`
	Costs      CostOverride  `json:"costs"`
	Notify     bool          `json:"notify"`
	Commentary bool          `json:"commentary"`
}

type DailyPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type BacktestResponse struct {
	RunID       string       `json:"run_id"`
	Kind        string       `json:"kind"`
	Symbols     []string     `json:"symbols"`
	Summary     interface{}  `json:"summary"`
	DailyPnL    []DailyPoint `json:"daily_pnl"`
	EquityCurve []DailyPoint `json:"equity_curve"`
	Commentary  string       `json:"commentary,omitempty"`
}

type BacktestRunItem struct {
	RunID       string      `json:"run_id"`
	Kind        string      `json:"kind"`
	Status      string      `json:"status"`
	Summary     interface{} `json:"summary,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

type GetBacktestRunsRequest struct {
	Kind   string `query:"kind" validate:"omitempty,oneof=single portfolio rebalance"`
	Status string `query:"status" validate:"omitempty,oneof=running completed failed"`
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=200"`
}
