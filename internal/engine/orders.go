package engine

import (
	"context"
	"fmt"

	"intraday_trader/internal/models"
	"intraday_trader/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

func (e *Engine) submit(ctx context.Context, o models.Order) (string, error) {
	e.setState(StateSubmitting)
	id, err := e.broker.SubmitOrder(ctx, o)
	if err != nil {
		return "", fmt.Errorf("submit %s %s: %w", o.Side, o.Symbol, err)
	}
	ordersSubmitted.WithLabelValues(string(o.Side), string(o.Type)).Inc()
	logger.Info("[ORDER] %s %s %d %s @ %.2f -> %s", o.Type, o.Side, o.Quantity, o.Symbol, o.Price, id)
	return id, nil
}

// awaitTerminal queries the order now and then every status poll interval
// until the broker reports a terminal status. There is no timeout.
func (e *Engine) awaitTerminal(ctx context.Context, orderID string) (models.OrderReport, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.poll")
	span.SetTag("order_id", orderID)
	defer span.Finish()

	e.setState(StatePolling)
	for {
		rep, err := e.broker.GetOrderStatus(ctx, orderID)
		statusPolls.Inc()
		if err != nil {
			return models.OrderReport{}, fmt.Errorf("poll %s: %w", orderID, err)
		}
		if rep.Status.Terminal() {
			ordersTerminal.WithLabelValues(string(rep.Status)).Inc()
			span.SetTag("status", string(rep.Status))
			logger.Info("[POLL] %s: %s", orderID, rep.Status)
			return rep, nil
		}
		logger.Debug("[POLL] %s: %s (%s)", orderID, rep.Status, rep.RawStatus)

		if err := e.clock.Sleep(ctx, e.cfg.StatusPollInterval); err != nil {
			return models.OrderReport{}, err
		}
	}
}
