package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"intraday_trader/internal/broker"
	"intraday_trader/internal/models"
	"intraday_trader/internal/notify"
	"intraday_trader/internal/strategy"
	"intraday_trader/pkg/logger"

	"github.com/google/uuid"
)

const statusNotBroken = "Candle high/low not break"

// SearchEntry evaluates the entry timeframe and, on a signal, confirms the
// breakout, places a limit order with a TTL and opens the position on fill.
func (e *Engine) SearchEntry(ctx context.Context) (Outcome, error) {
	inst := e.cfg.Instrument
	candles, err := e.closedCandles(ctx, e.cfg.EntryTimeFrame)
	if err != nil {
		return OutcomeNone, fmt.Errorf("entry candles: %w", err)
	}

	sig, err := e.eval.Entry(candles)
	e.analyzed(e.cfg.EntryTimeFrame, candles, sig)
	if errors.Is(err, strategy.ErrInsufficientData) {
		logger.Warn("[ENTRY] %s: skip tick: %v", inst.Symbol, err)
		return OutcomeSkipped, nil
	}
	if err != nil {
		return OutcomeNone, fmt.Errorf("entry signal: %w", err)
	}
	if !sig.IsEntry() {
		logger.Debug("[ENTRY] %s: no signal", inst.Symbol)
		return OutcomeNone, nil
	}

	side := sig.Side()
	fields := []notify.Field{
		{Key: "decision_id", Value: uuid.NewString()},
		{Key: "symbol", Value: inst.Symbol},
		{Key: "exchange", Value: inst.Exchange},
		{Key: "signal", Value: string(sig.Kind)},
		{Key: "side", Value: string(side)},
		{Key: "quantity", Value: e.cfg.Quantity},
		{Key: "candidate_price", Value: sig.ReferencePrice},
		{Key: "from", Value: sig.CandleTime},
		{Key: "reason", Value: sig.Reason},
	}
	e.record(ctx, models.LogTrade, "Searching for entry", fields)

	conf, err := e.confirmEntry(ctx, side, sig.ReferencePrice)
	if errors.Is(err, ErrEntryNotConfirmed) {
		logger.Info("[ENTRY] %s %s: %v within %s", inst.Symbol, sig.Kind, err, e.MaxWait())
		e.announce(ctx, models.LogFail, "Order failed", append(fields, notify.Field{Key: "status", Value: statusNotBroken}))
		return OutcomeNotConfirmed, nil
	}
	if err != nil {
		return OutcomeNone, err
	}

	order := models.Order{
		Symbol:      inst.Symbol,
		Exchange:    inst.Exchange,
		Product:     e.cfg.Product,
		Side:        side,
		Quantity:    e.cfg.Quantity,
		Type:        models.OrderTypeLimit,
		Price:       conf.Price,
		Validity:    models.ValidityTTL,
		ValidityTTL: conf.TTL,
	}
	fields = append(fields,
		notify.Field{Key: "price", Value: conf.Price},
		notify.Field{Key: "validity_ttl", Value: conf.TTL},
	)

	orderID, err := e.submit(ctx, order)
	if err != nil {
		return e.submitFailed(ctx, fields, err)
	}
	fields = append(fields, notify.Field{Key: "order_id", Value: orderID})
	e.announce(ctx, models.LogTrade, "Order placed successfully", append(fields, notify.Field{Key: "status", Value: string(models.OrderPending)}))

	rep, err := e.awaitTerminal(ctx, orderID)
	if err != nil {
		return OutcomeNone, err
	}
	fields = append(fields, notify.Field{Key: "status", Value: string(rep.Status)})

	if rep.Status != models.OrderComplete {
		logger.Warn("[ENTRY] %s order %s @ %.2f: %v: %s %s",
			inst.Symbol, orderID, conf.Price, ErrOrderRejectedOrCancelled, rep.RawStatus, rep.Message)
		e.announce(ctx, models.LogFail, "Order failed", append(fields, notify.Field{Key: "message", Value: rep.Message}))
		return OutcomeRejected, nil
	}

	qty := e.cfg.Quantity
	if side == models.SideSell {
		qty = -qty
	}
	now := e.clock.Now()
	pos := models.Position{
		Symbol:          inst.Symbol,
		Exchange:        inst.Exchange,
		InstrumentToken: inst.Token,
		Product:         e.cfg.Product,
		Quantity:        qty,
		EntryPrice:      conf.Price,
		EntryTimestamp:  now,
		From:            sig.CandleTime,
		LastTradedPrice: conf.Price,
		Signal:          sig.Kind,
		Reason:          sig.Reason,
		OrderID:         orderID,
	}
	if err := e.store.CreatePosition(ctx, pos); err != nil {
		logger.Error("[ENTRY] %s order %s filled but position not stored: %v", inst.Symbol, orderID, err)
		e.notifier.Notify(ctx, notify.Event{Kind: notify.KindError, Subject: "Position not stored", Details: slices.Clone(fields), At: now})
		return OutcomeFilled, fmt.Errorf("create position: %w", err)
	}
	positionQuantity.Set(float64(qty))

	e.announce(ctx, models.LogSuccess, "Order executed successfully", fields)
	return OutcomeFilled, nil
}

// submitFailed surfaces transport failures and reports broker refusals as a failed order.
func (e *Engine) submitFailed(ctx context.Context, fields []notify.Field, err error) (Outcome, error) {
	if errors.Is(err, broker.ErrUnavailable) {
		return OutcomeNone, err
	}
	logger.Warn("[ORDER] %s: %v", e.cfg.Instrument.Symbol, err)
	e.announce(ctx, models.LogFail, "Order failed", append(fields,
		notify.Field{Key: "status", Value: string(models.OrderRejected)},
		notify.Field{Key: "message", Value: err.Error()},
	))
	return OutcomeRejected, nil
}
