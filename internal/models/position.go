package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the open holding on a symbol. Quantity is signed: positive long, negative short.
type Position struct {
	Symbol          string     `json:"symbol"`
	Exchange        string     `json:"exchange"`
	InstrumentToken int64      `json:"instrument_token"`
	Product         string     `json:"product"`
	Quantity        int        `json:"quantity"`
	EntryPrice      float64    `json:"entry_price"`
	EntryTimestamp  time.Time  `json:"entry_timestamp"`
	From            time.Time  `json:"from"` // entry candle
	LastTradedPrice float64    `json:"ltp"`
	Signal          SignalKind `json:"signal"`
	Reason          string     `json:"reason,omitempty"`
	OrderID         string     `json:"entry_order_id,omitempty"`
}

func (p Position) IsLong() bool  { return p.Quantity > 0 }
func (p Position) IsShort() bool { return p.Quantity < 0 }

func (p Position) AbsQuantity() int {
	if p.Quantity < 0 {
		return -p.Quantity
	}
	return p.Quantity
}

// UnrealizedPnL marks the position at its last traded price.
func (p Position) UnrealizedPnL() float64 {
	return pnl(p.EntryPrice, p.LastTradedPrice, p.Quantity)
}

// Trade is a closed position. It is never mutated after creation.
type Trade struct {
	Position
	ExitPrice     float64   `json:"exit_price"`
	ExitTimestamp time.Time `json:"exit_timestamp"`
	To            time.Time `json:"to"` // exit candle
	ExitOrderID   string    `json:"order_id"`
	PnL           float64   `json:"pnl"`
}

// NewTrade closes the given position snapshot. to is the candle the exit signal fired on.
func NewTrade(p Position, exitPrice float64, exitAt, to time.Time, orderID string) Trade {
	p.LastTradedPrice = exitPrice
	return Trade{
		Position:      p,
		ExitPrice:     exitPrice,
		ExitTimestamp: exitAt,
		To:            to,
		ExitOrderID:   orderID,
		PnL:           pnl(p.EntryPrice, exitPrice, p.Quantity),
	}
}

func pnl(entry, mark float64, qty int) float64 {
	v, _ := decimal.NewFromFloat(mark).
		Sub(decimal.NewFromFloat(entry)).
		Mul(decimal.NewFromInt(int64(qty))).
		Round(2).
		Float64()
	return v
}
