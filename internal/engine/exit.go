package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"intraday_trader/internal/models"
	"intraday_trader/internal/notify"
	"intraday_trader/internal/store"
	"intraday_trader/internal/strategy"
	"intraday_trader/pkg/logger"

	"github.com/google/uuid"
)

// Suppressed reports whether sig would add to the position instead of closing it.
// A sell exit needs a long position, a buy exit needs a short one.
func Suppressed(pos models.Position, sig models.Signal) bool {
	switch sig.Kind {
	case models.ExitShort:
		return pos.Quantity <= 0
	case models.ExitLong:
		return pos.Quantity >= 0
	}
	return true
}

// SearchExit marks the position to the latest close, evaluates the exit
// timeframe and closes the position with a market order on a valid signal.
// pos is the snapshot read for this tick and becomes the trade record.
func (e *Engine) SearchExit(ctx context.Context, pos models.Position) (Outcome, error) {
	if done, err := e.finishRecordedExit(ctx, pos); done || err != nil {
		return OutcomeFilled, err
	}

	candles, err := e.closedCandles(ctx, e.cfg.ExitTimeFrame)
	if err != nil {
		return OutcomeNone, fmt.Errorf("exit candles: %w", err)
	}
	if len(candles) == 0 {
		logger.Warn("[EXIT] %s: no closed candles", pos.Symbol)
		return OutcomeSkipped, nil
	}
	last := candles[len(candles)-1]

	if err := e.store.UpdateLastTradedPrice(ctx, pos.Symbol, last.Close); err != nil {
		return OutcomeNone, fmt.Errorf("update ltp: %w", err)
	}
	pos.LastTradedPrice = last.Close

	fields := []notify.Field{
		{Key: "decision_id", Value: uuid.NewString()},
		{Key: "symbol", Value: pos.Symbol},
		{Key: "exchange", Value: pos.Exchange},
		{Key: "quantity", Value: pos.Quantity},
		{Key: "entry_price", Value: pos.EntryPrice},
		{Key: "ltp", Value: pos.LastTradedPrice},
	}
	e.record(ctx, models.LogTrade, "Searching for exit", fields)

	sig, err := e.eval.Exit(candles)
	e.analyzed(e.cfg.ExitTimeFrame, candles, sig)
	if errors.Is(err, strategy.ErrInsufficientData) {
		logger.Warn("[EXIT] %s: skip tick: %v", pos.Symbol, err)
		return OutcomeSkipped, nil
	}
	if err != nil {
		return OutcomeNone, fmt.Errorf("exit signal: %w", err)
	}
	if !sig.IsExit() {
		return OutcomeNoExit, nil
	}
	if Suppressed(pos, sig) {
		logger.Info("[EXIT] %s: %s ignored for quantity %d", pos.Symbol, sig.Kind, pos.Quantity)
		return OutcomeSuppressed, nil
	}

	order := models.Order{
		Symbol:   pos.Symbol,
		Exchange: pos.Exchange,
		Product:  pos.Product,
		Side:     sig.Side(),
		Quantity: pos.AbsQuantity(),
		Type:     models.OrderTypeMarket,
		Validity: models.ValidityDay,
	}
	fields = append(fields,
		notify.Field{Key: "signal", Value: string(sig.Kind)},
		notify.Field{Key: "side", Value: string(order.Side)},
		notify.Field{Key: "to", Value: sig.CandleTime},
		notify.Field{Key: "reason", Value: sig.Reason},
	)

	orderID, err := e.submit(ctx, order)
	if err != nil {
		return e.submitFailed(ctx, fields, err)
	}
	fields = append(fields, notify.Field{Key: "order_id", Value: orderID})

	rep, err := e.awaitTerminal(ctx, orderID)
	if err != nil {
		return OutcomeNone, err
	}
	fields = append(fields, notify.Field{Key: "status", Value: string(rep.Status)})

	if rep.Status != models.OrderComplete {
		logger.Warn("[EXIT] %s order %s: %v: %s %s",
			pos.Symbol, orderID, ErrOrderRejectedOrCancelled, rep.RawStatus, rep.Message)
		e.announce(ctx, models.LogFail, "Order failed", append(fields, notify.Field{Key: "message", Value: rep.Message}))
		return OutcomeRejected, nil
	}

	exitPrice := rep.AveragePrice
	if exitPrice <= 0 {
		exitPrice = last.Close
	}
	trade := models.NewTrade(pos, exitPrice, e.clock.Now(), sig.CandleTime, orderID)
	fields = append(fields,
		notify.Field{Key: "exit_price", Value: trade.ExitPrice},
		notify.Field{Key: "pnl", Value: trade.PnL},
	)

	if err := e.store.InsertTrade(ctx, trade); err != nil {
		if !errors.Is(err, store.ErrWriteFailed) {
			err = fmt.Errorf("%w: %w", store.ErrWriteFailed, err)
		}
		logger.Error("[EXIT] %s order %s: trade not stored, position kept: %v", pos.Symbol, orderID, err)
		e.notifier.Notify(ctx, notify.Event{Kind: notify.KindError, Subject: "Trade not stored", Details: slices.Clone(fields), At: e.clock.Now()})
		return OutcomeFilled, fmt.Errorf("insert trade: %w", err)
	}
	if err := e.store.DeletePosition(ctx, pos.Symbol); err != nil {
		return OutcomeFilled, fmt.Errorf("delete position: %w", err)
	}
	positionQuantity.Set(0)

	e.announce(ctx, models.LogSuccess, "Order executed successfully", fields)
	return OutcomeFilled, nil
}

// finishRecordedExit completes an exit whose trade is already journaled but
// whose position was left behind, so the same exit is never ordered twice.
func (e *Engine) finishRecordedExit(ctx context.Context, pos models.Position) (bool, error) {
	if pos.OrderID == "" {
		return false, nil
	}
	trade, ok, err := e.store.TradeByEntryOrder(ctx, pos.OrderID)
	if err != nil {
		return false, fmt.Errorf("read trade: %w", err)
	}
	if !ok {
		return false, nil
	}

	logger.Warn("[EXIT] %s: entry order %s already closed by order %s, removing position",
		pos.Symbol, pos.OrderID, trade.ExitOrderID)
	if err := e.store.DeletePosition(ctx, pos.Symbol); err != nil && !errors.Is(err, store.ErrNotFound) {
		return true, fmt.Errorf("delete position: %w", err)
	}
	positionQuantity.Set(0)

	e.announce(ctx, models.LogSuccess, "Order executed successfully", []notify.Field{
		{Key: "symbol", Value: trade.Symbol},
		{Key: "exchange", Value: trade.Exchange},
		{Key: "quantity", Value: trade.Quantity},
		{Key: "entry_price", Value: trade.EntryPrice},
		{Key: "signal", Value: string(trade.Signal)},
		{Key: "to", Value: trade.To},
		{Key: "order_id", Value: trade.ExitOrderID},
		{Key: "exit_price", Value: trade.ExitPrice},
		{Key: "pnl", Value: trade.PnL},
		{Key: "status", Value: string(models.OrderComplete)},
	})
	return true, nil
}
