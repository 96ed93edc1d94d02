package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intraday_trader/internal/models"
)

// ErrUnavailable marks transport failures and 5xx answers. The engine does not
// retry these; they surface to the supervisor.
var ErrUnavailable = errors.New("broker unavailable")

// Broker is the order and market data API the engine drives.
type Broker interface {
	SubmitOrder(ctx context.Context, o models.Order) (string, error)
	GetOrderStatus(ctx context.Context, orderID string) (models.OrderReport, error)
	GetRecentPrice(ctx context.Context, inst models.Instrument) (models.PriceSample, error)
	GetHistoricalCandles(ctx context.Context, inst models.Instrument, interval string, from, to time.Time) ([]models.Candle, error)
}

// Interval maps a timeframe in minutes to the broker's candle interval name.
func Interval(minutes int) (string, error) {
	switch minutes {
	case 1:
		return "minute", nil
	case 3, 5, 10, 15, 30, 60:
		return fmt.Sprintf("%dminute", minutes), nil
	}
	return "", fmt.Errorf("unsupported timeframe %d minutes", minutes)
}

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
