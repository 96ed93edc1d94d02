package models

import "time"

// Candle is one closed OHLC bar.
type Candle struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Closes returns the close prices in order.
func Closes(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

// PriceSample is a live read of the instrument: intraday high/low and the last price.
type PriceSample struct {
	High  float64
	Low   float64
	Close float64
	At    time.Time
}

// Instrument identifies the tradable symbol at the broker.
type Instrument struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Exchange string `json:"exchange" yaml:"exchange"`
	Token    int64  `json:"instrument_token" yaml:"instrument_token"`
}

// Key is the broker quote key, e.g. "NSE:INFY".
func (i Instrument) Key() string { return i.Exchange + ":" + i.Symbol }
