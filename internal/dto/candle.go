package dto

import "time"

// GetCandlesParam selects daily candles for one symbol.
type GetCandlesParam struct {
	Symbol   string
	Exchange string
	From     time.Time
	To       time.Time
	Source   string // database, csv or remote; empty picks the first source with data
}

type Candle struct {
	Date         time.Time `json:"date"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"`
	Turnover     *float64  `json:"turnover,omitempty"`
	OpenInterest *float64  `json:"open_interest,omitempty"`
}

type CandleData struct {
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Candles  []Candle `json:"candles"`
}

type GetCandlesRequest struct {
	Symbol   string `query:"symbol" validate:"required"`
	Exchange string `query:"exchange"`
	From     string `query:"from"`
	To       string `query:"to"`
	Interval string `query:"interval" validate:"omitempty,oneof=1d 1w 1M"`
	Source   string `query:"source" validate:"omitempty,oneof=database csv remote"`
}

type SyncCandlesRequest struct {
	Symbols  []string `json:"symbols" validate:"required,min=1,dive,required"`
	Exchange string   `json:"exchange"`
	Range    string   `json:"range" validate:"omitempty,oneof=1m 3m 6m 1y 2y 5y"`
}

type SyncCandlesResponse struct {
	Symbols   []string `json:"symbols"`
	BarsSaved int      `json:"bars_saved"`
	Failed    []string `json:"failed,omitempty"`
}

// ChartAPIResponse is the payload shape of the remote chart endpoint.
type ChartAPIResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}
