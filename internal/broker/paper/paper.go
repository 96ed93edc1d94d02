package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"intraday_trader/internal/broker"
	"intraday_trader/internal/models"
	"intraday_trader/pkg/logger"

	"github.com/google/uuid"
)

// Broker fills every order on its first status query. Market data comes
// from the wrapped broker.
type Broker struct {
	market broker.Broker

	mu     sync.Mutex
	orders map[string]fill
}

type fill struct {
	order models.Order
	price float64
}

var _ broker.Broker = (*Broker)(nil)

func New(market broker.Broker) *Broker {
	return &Broker{market: market, orders: make(map[string]fill)}
}

func (b *Broker) SubmitOrder(ctx context.Context, o models.Order) (string, error) {
	if o.Quantity <= 0 {
		return "", fmt.Errorf("paper: quantity must be positive, got %d", o.Quantity)
	}

	price := o.Price
	if o.Type == models.OrderTypeMarket {
		s, err := b.market.GetRecentPrice(ctx, models.Instrument{Symbol: o.Symbol, Exchange: o.Exchange})
		if err != nil {
			return "", fmt.Errorf("paper: price market order: %w", err)
		}
		price = s.Close
	}

	id := uuid.NewString()
	b.mu.Lock()
	b.orders[id] = fill{order: o, price: price}
	b.mu.Unlock()

	logger.Info("[PAPER] %s %d %s @ %.2f -> %s", o.Side, o.Quantity, o.Symbol, price, id)
	return id, nil
}

func (b *Broker) GetOrderStatus(_ context.Context, orderID string) (models.OrderReport, error) {
	b.mu.Lock()
	f, ok := b.orders[orderID]
	b.mu.Unlock()
	if !ok {
		return models.OrderReport{}, fmt.Errorf("paper: unknown order %s", orderID)
	}
	return models.OrderReport{
		OrderID:        orderID,
		Status:         models.OrderComplete,
		RawStatus:      string(models.OrderComplete),
		AveragePrice:   f.price,
		FilledQuantity: f.order.Quantity,
	}, nil
}

func (b *Broker) GetRecentPrice(ctx context.Context, inst models.Instrument) (models.PriceSample, error) {
	return b.market.GetRecentPrice(ctx, inst)
}

func (b *Broker) GetHistoricalCandles(ctx context.Context, inst models.Instrument, interval string, from, to time.Time) ([]models.Candle, error) {
	return b.market.GetHistoricalCandles(ctx, inst, interval, from, to)
}
