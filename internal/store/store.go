package store

import (
	"context"
	"errors"

	"intraday_trader/internal/models"
)

var (
	ErrWriteFailed    = errors.New("store write failed")
	ErrPositionExists = errors.New("position already exists for symbol")
	ErrNotFound       = errors.New("not found")
)

// Store is the position ledger plus the trade, log and candle journals. Every method is
// a single-record atomic operation.
type Store interface {
	// GetPosition reports ok=false when no position is open on symbol.
	GetPosition(ctx context.Context, symbol string) (models.Position, bool, error)
	CreatePosition(ctx context.Context, p models.Position) error
	UpdateLastTradedPrice(ctx context.Context, symbol string, ltp float64) error
	DeletePosition(ctx context.Context, symbol string) error

	InsertTrade(ctx context.Context, t models.Trade) error
	ListTrades(ctx context.Context, symbol string) ([]models.Trade, error)
	// TradeByEntryOrder finds the trade that closed the position opened by entryOrderID.
	TradeByEntryOrder(ctx context.Context, entryOrderID string) (models.Trade, bool, error)

	InsertLog(ctx context.Context, e models.LogEntry) error
	InsertCandleSnapshot(ctx context.Context, s models.CandleSnapshot) error
}
