package models

import "time"

// CandleSnapshot is the analyzed candle a decision was made on, kept for later review.
type CandleSnapshot struct {
	Symbol     string             `json:"symbol"`
	TimeFrame  int                `json:"time_frame"`
	Candle     Candle             `json:"candle"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Signal     SignalKind         `json:"signal"`
	Outcome    string             `json:"outcome"`
	CreatedAt  time.Time          `json:"created_at"`
}
